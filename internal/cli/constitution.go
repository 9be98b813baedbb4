package cli

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/vdeworks/agentsuite/internal/framework"
)

var (
	constitutionWorkingDir string
	constitutionRaw        bool
	principlesWorkingDir   string
	principlesRaw          bool
)

var constitutionCmd = &cobra.Command{
	Use:   "constitution",
	Short: "Show the workspace constitution",
	Args:  cobra.NoArgs,
	RunE:  runConstitution,
}

var principlesCmd = &cobra.Command{
	Use:   "principles [name]",
	Short: "List principle documents, or show one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPrinciples,
}

func init() {
	constitutionCmd.Flags().StringVarP(&constitutionWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
	constitutionCmd.Flags().BoolVar(&constitutionRaw, "raw", false, "Print raw markdown without terminal rendering")
	principlesCmd.Flags().StringVarP(&principlesWorkingDir, "dir", "d", "", "Working directory (default: current directory)")
	principlesCmd.Flags().BoolVar(&principlesRaw, "raw", false, "Print raw markdown without terminal rendering")
}

func runConstitution(_ *cobra.Command, _ []string) error {
	wd, err := resolveWorkingDir(constitutionWorkingDir)
	if err != nil {
		return err
	}

	text, err := framework.NewManager(wd).Constitution()
	if err != nil {
		return err
	}
	return renderMarkdown(text, constitutionRaw)
}

func runPrinciples(_ *cobra.Command, args []string) error {
	wd, err := resolveWorkingDir(principlesWorkingDir)
	if err != nil {
		return err
	}
	mgr := framework.NewManager(wd)

	if len(args) == 1 {
		text, err := mgr.Principle(args[0])
		if err != nil {
			return err
		}
		return renderMarkdown(text, principlesRaw)
	}

	principles, err := mgr.Principles()
	if err != nil {
		return err
	}
	if len(principles) == 0 {
		fmt.Println(dimStyle.Render("no principle documents found"))
		return nil
	}
	for _, p := range principles {
		fmt.Printf("%s %s\n", titleStyle.Render(fmt.Sprintf("%d.", p.Number)), p.Title)
	}
	return nil
}

func renderMarkdown(text string, raw bool) error {
	if raw {
		fmt.Print(text)
		return nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// No usable terminal style, fall back to raw markdown.
		fmt.Print(text)
		return nil
	}
	out, err := renderer.Render(text)
	if err != nil {
		fmt.Print(text)
		return nil
	}
	fmt.Print(out)
	return nil
}
