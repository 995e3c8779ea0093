package hashsum

import (
	"errors"
	"io"
	"sort"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// TrackedFiles returns the set of paths git considers part of the
// repository at root: every path in HEAD's tree, overlaid with the
// worktree's added/modified paths (deleted paths are dropped). This is
// the library equivalent of `git ls-files` the teacher reaches for via
// exec.Command in internal/git/diff.go — here done through go-git,
// the dependency the teacher already uses for repository access
// elsewhere (internal/policy/source_git.go), so hashing never shells
// out (spec.md 4.3).
func TrackedFiles(root string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)

	head, err := repo.Head()
	if err == nil {
		commit, err := repo.CommitObject(head.Hash())
		if err == nil {
			tree, err := commit.Tree()
			if err == nil {
				walker := object.NewTreeWalker(tree, true, nil)
				defer walker.Close()
				for {
					name, entry, err := walker.Next()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						break
					}
					if !entry.Mode.IsFile() {
						continue
					}
					set[name] = true
				}
			}
		}
	}

	wt, err := repo.Worktree()
	if err == nil {
		status, err := wt.Status()
		if err == nil {
			for path, st := range status {
				if st.Worktree == git.Deleted || st.Staging == git.Deleted {
					delete(set, path)
					continue
				}
				set[path] = true
			}
		}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
