// Package git reads repository state so runs can be stamped with the
// commit and branch they executed against.
package git

import (
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// Info describes the repository state at the start of a run.
type Info struct {
	Commit string
	Branch string
	Dirty  bool
}

// Head returns the repository state for the given working directory,
// walking up parent directories to find the repository root.
func Head(workDir string) (*Info, error) {
	r, err := gogit.PlainOpenWithOptions(workDir, &gogit.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open git repo at %s: %w", workDir, err)
	}

	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("get HEAD: %w", err)
	}

	info := &Info{
		Commit: head.Hash().String(),
		Branch: head.Name().Short(),
	}

	if wt, err := r.Worktree(); err == nil {
		if status, err := wt.Status(); err == nil {
			info.Dirty = !status.IsClean()
		}
	}

	return info, nil
}

// Stamp writes the repository state into a run's initial variables. When
// workDir is not inside a repository the variables are left untouched.
func Stamp(workDir string, vars map[string]string) {
	info, err := Head(workDir)
	if err != nil {
		return
	}
	vars["git_commit"] = info.Commit
	vars["git_branch"] = info.Branch
	if info.Dirty {
		vars["git_dirty"] = "true"
	}
}

// IsInsideRepo reports whether dir is inside a git repository, walking up
// parent directories to find a .git folder.
func IsInsideRepo(dir string) bool {
	_, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{
		DetectDotGit: true,
	})
	return err == nil
}
