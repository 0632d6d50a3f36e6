package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"quill/config"
	"quill/logging"
	"quill/queue"
)

// Info is an immutable snapshot of the repository state shown in the status
// bar. An empty Branch means "not a repository"; a trailing '*' on Branch
// marks a dirty working tree. Value equality between snapshots is what the
// bridge uses to suppress redundant UI updates.
type Info struct {
	Branch  string `json:"branch"`
	User    string `json:"user"`
	Commits string `json:"commits"`
}

// EmptyInfo is the sentinel for "not a repository" or disabled integration.
var EmptyInfo = Info{Commits: "0"}

// String formats the snapshot for the status bar.
func (i Info) String() string {
	if i.Branch == "" {
		return "Not a Git repository."
	}
	return fmt.Sprintf("Git: %s by %s (%s commits)", i.Branch, i.User, i.Commits)
}

// Runner executes one external command in dir and returns captured stdout and
// stderr. A zero timeout means no timeout. Tests substitute a fake runner.
type Runner func(dir string, timeout time.Duration, args ...string) (stdout, stderr string, err error)

const (
	infoTimeout = 3 * time.Second

	// requestInfoRefresh is the marker a command worker enqueues after a
	// mutating command so the foreground triggers a fresh info fetch.
	requestInfoRefresh = "request_git_info_update"
)

// Bridge fetches repository information and runs git commands off the
// foreground thread, delivering results through queues that the foreground
// drains once per tick.
type Bridge struct {
	workspacePath string
	logger        logging.Logger
	run           Runner

	mu          sync.Mutex
	enabled     bool
	info        Info
	lastContext string
	hasContext  bool
	fileStatus  map[string]string

	infoQ   *queue.Queue[Info]
	cmdQ    *queue.Queue[string]
	statusQ *queue.Queue[map[string]string]
}

// NewBridge creates a repository bridge rooted at workspacePath.
func NewBridge(workspacePath string, cfg *config.Config, logger logging.Logger) *Bridge {
	return &Bridge{
		workspacePath: workspacePath,
		logger:        logging.OrNop(logger),
		run:           execRunner,
		enabled:       cfg.GitEnabled(),
		info:          EmptyInfo,
		infoQ:         queue.New[Info](),
		cmdQ:          queue.New[string](),
		statusQ:       queue.New[map[string]string](),
	}
}

// UpdateConfig applies a reloaded configuration.
func (b *Bridge) UpdateConfig(cfg *config.Config) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = cfg.GitEnabled()
}

// Info returns the cached repository snapshot.
func (b *Bridge) Info() Info {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// FileStatus returns the cached short status code for a file path, e.g.
// "modified" or "untracked", and whether one is known.
func (b *Bridge) FileStatus(path string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	code, ok := b.fileStatus[path]
	return code, ok
}

// Reset clears the cached state.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info = EmptyInfo
	b.lastContext = ""
	b.hasContext = false
	b.fileStatus = nil
}

// Close tears the bridge down. In-flight workers are allowed to finish; their
// late results are dropped by the closed queues.
func (b *Bridge) Close() {
	b.infoQ.Close()
	b.cmdQ.Close()
	b.statusQ.Close()
}

// GetInfoSync fetches the repository snapshot directly. It is safe to call
// off the foreground thread; every failure degrades to EmptyInfo.
func (b *Bridge) GetInfoSync(fileContext string) Info {
	repoDir := b.repoDir(fileContext)
	if _, err := os.Stat(filepath.Join(repoDir, ".git")); err != nil {
		return EmptyInfo
	}

	info := EmptyInfo

	branchOut, _, err := b.run(repoDir, infoTimeout, "git", "branch", "--show-current")
	branch := strings.TrimSpace(branchOut)
	if err != nil || branch == "" {
		refOut, _, refErr := b.run(repoDir, infoTimeout, "git", "symbolic-ref", "--short", "HEAD")
		if ref := strings.TrimSpace(refOut); refErr == nil && ref != "" {
			branch = ref
		} else {
			branch = "detached"
		}
	}

	statusOut, _, _ := b.run(repoDir, infoTimeout, "git", "status", "--porcelain")
	if strings.TrimSpace(statusOut) != "" {
		branch += "*"
	}
	info.Branch = branch

	userOut, _, err := b.run(repoDir, infoTimeout, "git", "config", "user.name")
	if err == nil {
		info.User = strings.TrimSpace(userOut)
	}

	commitsOut, _, err := b.run(repoDir, infoTimeout, "git", "rev-list", "--count", "HEAD")
	if commits := strings.TrimSpace(commitsOut); err == nil && isDigits(commits) {
		info.Commits = commits
	}

	return info
}

// RequestAsyncUpdate starts a non-blocking info refresh for the given file
// context. A repeated call with an unchanged context is a no-op, so bursts
// of redraws do not spawn redundant workers.
func (b *Bridge) RequestAsyncUpdate(fileContext string) {
	b.mu.Lock()
	if !b.enabled {
		reset := b.info != EmptyInfo
		b.mu.Unlock()
		if reset {
			b.Reset()
		}
		return
	}
	if b.hasContext && b.lastContext == fileContext {
		b.mu.Unlock()
		return
	}
	b.lastContext = fileContext
	b.hasContext = true
	b.mu.Unlock()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("git info fetch panic: %v", r)
				b.infoQ.Put(Info{Branch: fmt.Sprintf("fetch_error %v", r), Commits: "0"})
			}
		}()
		b.infoQ.Put(b.GetInfoSync(fileContext))
	}()
}

// RunCommandAsync executes a git command (argv form) on a worker goroutine
// with no timeout and enqueues a human-readable result. Mutating commands
// additionally enqueue an info-refresh marker.
func (b *Bridge) RunCommandAsync(args []string) {
	name := "command"
	if len(args) > 1 {
		name = args[1]
	}

	fileContext := b.currentContext()

	go func() {
		var msg string
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("git %s worker panic: %v", name, r)
				msg = fmt.Sprintf("Git %s system error: %v", name, r)
			}
			b.cmdQ.Put(msg)
		}()

		stdout, stderr, err := b.run(b.repoDir(fileContext), 0, args...)
		if err != nil {
			msg = fmt.Sprintf("Git %s error: %s", name, firstLine(stderr, 100))
			return
		}

		msg = fmt.Sprintf("Git %s: successful.", name)
		switch name {
		case "commit", "pull", "push":
			b.cmdQ.Put(requestInfoRefresh)
		}
		if out := strings.TrimSpace(stdout); out != "" {
			msg += " Output: " + firstLine(out, 90)
		}
	}()
}

// DrainQueues processes every pending result from the bridge queues. New
// snapshots are applied only when they differ from the cached one; command
// results are forwarded to setStatus. It returns whether anything changed,
// which the caller uses as a redraw signal.
func (b *Bridge) DrainQueues(currentContext string, setStatus func(string)) bool {
	changed := false

	for {
		info, ok := b.infoQ.TryPop()
		if !ok {
			break
		}
		changed = true
		if !b.applyInfo(info) {
			continue
		}
		setStatus(info.String())
	}

	for {
		msg, ok := b.cmdQ.TryPop()
		if !ok {
			break
		}
		changed = true
		if msg == requestInfoRefresh {
			// Force a re-fetch even though the context is unchanged.
			b.mu.Lock()
			b.hasContext = false
			b.mu.Unlock()
			b.RequestAsyncUpdate(currentContext)
			continue
		}
		setStatus(msg)
	}

	for {
		statuses, ok := b.statusQ.TryPop()
		if !ok {
			break
		}
		changed = true
		b.mu.Lock()
		b.fileStatus = statuses
		b.mu.Unlock()
	}

	return changed
}

// applyInfo stores a fresh snapshot, reporting false when it matches the
// cached one.
func (b *Bridge) applyInfo(info Info) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if info == b.info {
		return false
	}
	b.info = info
	return true
}

func (b *Bridge) currentContext() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastContext
}

// repoDir resolves the directory git commands run in: the directory of the
// current file when one is open, otherwise the workspace root.
func (b *Bridge) repoDir(fileContext string) string {
	if fileContext != "" {
		if fi, err := os.Stat(fileContext); err == nil && !fi.IsDir() {
			if abs, err := filepath.Abs(fileContext); err == nil {
				return filepath.Dir(abs)
			}
		}
	}
	return b.workspacePath
}

// execRunner is the production Runner backed by os/exec.
func execRunner(dir string, timeout time.Duration, args ...string) (string, string, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// firstLine returns the first line of s truncated to max characters.
func firstLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
