package dsl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// CHECK expressions support variable lookups, string and numeric literals,
// the comparison operators == != < <= > >=, the boolean operators and/or/not,
// and parentheses. Nothing else: no calls, no arithmetic, no side effects.
//
// Grammar (recursive descent, lowest precedence first):
//
//	expr   = and { "or" and }
//	and    = unary { "and" unary }
//	unary  = "not" unary | cmp
//	cmp    = value [ op value ]
//	value  = "(" expr ")" | STRING | NUMBER | IDENT
//
// A bare identifier is true when the variable is defined and not one of
// "", "false", "0". Comparisons are numeric when both sides parse as
// numbers, string comparisons otherwise. An undefined variable evaluates
// as the empty string.

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokOp     // == != < <= > >=
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

func lexExpr(s string) ([]token, error) {
	var toks []token
	runes := []rune(s)
	i := 0

	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++

		case r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string literal")
			}
			toks = append(toks, token{tokString, string(runes[i+1 : j])})
			i = j + 1

		case r == '=' || r == '!' || r == '<' || r == '>':
			op := string(r)
			if i+1 < len(runes) && runes[i+1] == '=' {
				op += "="
				i++
			}
			i++
			if op == "=" || op == "!" {
				return nil, fmt.Errorf("invalid operator %q", op)
			}
			toks = append(toks, token{tokOp, op})

		case unicode.IsDigit(r) || (r == '-' && i+1 < len(runes) && unicode.IsDigit(runes[i+1])):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, string(runes[i:j])})
			i = j

		case unicode.IsLetter(r) || r == '_':
			j := i + 1
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '.') {
				j++
			}
			word := string(runes[i:j])
			switch strings.ToLower(word) {
			case "and":
				toks = append(toks, token{tokAnd, word})
			case "or":
				toks = append(toks, token{tokOr, word})
			case "not":
				toks = append(toks, token{tokNot, word})
			case "true", "false":
				toks = append(toks, token{tokString, strings.ToLower(word)})
			default:
				toks = append(toks, token{tokIdent, word})
			}
			i = j

		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}

	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	return toks, nil
}

// Lookup resolves a variable name during evaluation.
type Lookup func(name string) (string, bool)

type exprParser struct {
	toks   []token
	pos    int
	lookup Lookup
}

// ValidateExpr parses an expression without evaluating it, reporting any
// syntax error. Used by the definition parser at load time.
func ValidateExpr(s string) error {
	_, err := evalString(s, func(string) (string, bool) { return "", false })
	return err
}

// EvalExpr evaluates an expression against the given variable lookup.
func EvalExpr(s string, lookup Lookup) (bool, error) {
	return evalString(s, lookup)
}

func evalString(s string, lookup Lookup) (bool, error) {
	toks, err := lexExpr(s)
	if err != nil {
		return false, err
	}
	p := &exprParser{toks: toks, lookup: lookup}
	v, err := p.parseExpr()
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, fmt.Errorf("unexpected token %q", p.toks[p.pos].text)
	}
	return v, nil
}

func (p *exprParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *exprParser) parseExpr() (bool, error) {
	v, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOr {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		v = v || rhs
	}
}

func (p *exprParser) parseAnd() (bool, error) {
	v, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokAnd {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		v = v && rhs
	}
}

func (p *exprParser) parseUnary() (bool, error) {
	if t, ok := p.peek(); ok && t.kind == tokNot {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	return p.parseCmp()
}

func (p *exprParser) parseCmp() (bool, error) {
	left, isBool, err := p.parseValue()
	if err != nil {
		return false, err
	}

	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		if isBool {
			return left.boolVal, nil
		}
		return truthy(left), nil
	}
	if isBool {
		return false, fmt.Errorf("cannot compare a boolean sub-expression with %q", t.text)
	}
	p.pos++

	right, rightBool, err := p.parseValue()
	if err != nil {
		return false, err
	}
	if rightBool {
		return false, fmt.Errorf("cannot compare with a boolean sub-expression")
	}

	return compare(left, right, t.text)
}

// value is an operand: either a resolved string or a defined-ness marker
// for identifiers.
type value struct {
	text    string
	defined bool
	boolVal bool
}

// parseValue returns the operand and whether it was a parenthesised boolean
// sub-expression (which cannot take part in comparisons).
func (p *exprParser) parseValue() (value, bool, error) {
	t, ok := p.peek()
	if !ok {
		return value{}, false, fmt.Errorf("unexpected end of expression")
	}

	switch t.kind {
	case tokLParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return value{}, false, err
		}
		t, ok := p.peek()
		if !ok || t.kind != tokRParen {
			return value{}, false, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value{boolVal: v}, true, nil

	case tokString, tokNumber:
		p.pos++
		return value{text: t.text, defined: true}, false, nil

	case tokIdent:
		p.pos++
		s, ok := p.lookup(t.text)
		return value{text: s, defined: ok}, false, nil

	default:
		return value{}, false, fmt.Errorf("unexpected token %q", t.text)
	}
}

// truthy reports whether a bare operand counts as true: it must be defined
// and not empty, "false", or "0".
func truthy(v value) bool {
	if !v.defined {
		return false
	}
	switch v.text {
	case "", "false", "0":
		return false
	default:
		return true
	}
}

func compare(a, b value, op string) (bool, error) {
	an, aerr := strconv.ParseFloat(a.text, 64)
	bn, berr := strconv.ParseFloat(b.text, 64)
	numeric := aerr == nil && berr == nil

	switch op {
	case "==":
		if numeric {
			return an == bn, nil
		}
		return a.text == b.text, nil
	case "!=":
		if numeric {
			return an != bn, nil
		}
		return a.text != b.text, nil
	case "<":
		if numeric {
			return an < bn, nil
		}
		return a.text < b.text, nil
	case "<=":
		if numeric {
			return an <= bn, nil
		}
		return a.text <= b.text, nil
	case ">":
		if numeric {
			return an > bn, nil
		}
		return a.text > b.text, nil
	case ">=":
		if numeric {
			return an >= bn, nil
		}
		return a.text >= b.text, nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}
