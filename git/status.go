package git

import (
	gogit "github.com/go-git/go-git/v5"
)

// RefreshFileStatuses rebuilds the per-file status cache on a worker
// goroutine. The cache is replaced wholesale when the foreground drains the
// queue; it is never patched in place.
func (b *Bridge) RefreshFileStatuses() {
	b.mu.Lock()
	enabled := b.enabled
	b.mu.Unlock()
	if !enabled {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("file status refresh panic: %v", r)
			}
		}()

		statuses, err := b.collectFileStatuses()
		if err != nil {
			// Not a repository or unreadable worktree: nothing to show.
			b.logger.Debug("file status refresh skipped: %v", err)
			return
		}
		b.statusQ.Put(statuses)
	}()
}

// collectFileStatuses reads the worktree status and maps every changed file
// to a short status code.
func (b *Bridge) collectFileStatuses() (map[string]string, error) {
	repo, err := gogit.PlainOpenWithOptions(b.workspacePath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, err
	}

	statuses := make(map[string]string, len(status))
	for path, fs := range status {
		code := statusCode(fs)
		if code == "" {
			continue
		}
		statuses[path] = code
	}
	return statuses, nil
}

// statusCode condenses go-git staging/worktree codes into the single short
// code the UI shows in the file browser.
func statusCode(fs *gogit.FileStatus) string {
	switch {
	case fs.Worktree == gogit.Untracked || fs.Staging == gogit.Untracked:
		return "untracked"
	case fs.Staging == gogit.Added:
		return "added"
	case fs.Worktree == gogit.Deleted || fs.Staging == gogit.Deleted:
		return "deleted"
	case fs.Worktree == gogit.Renamed || fs.Staging == gogit.Renamed:
		return "renamed"
	case fs.Worktree == gogit.Modified || fs.Staging == gogit.Modified:
		return "modified"
	default:
		return ""
	}
}
