package session

import (
	"github.com/go-git/go-git/v6"
)

// GitRoot returns the worktree root of the repository enclosing dir.
func GitRoot(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", false
	}
	return worktree.Filesystem.Root(), true
}
