package lsp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"quill/config"
	"quill/linter"
	"quill/logging"
	"quill/queue"
)

// State tracks the analysis server lifecycle. All transitions happen on the
// foreground thread; the reader goroutine never writes bridge state.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateInitialized
	StateShuttingDown
	StateStopped
)

// StatusUpdate is the UI-facing outcome of lint activity: a one-line status
// bar message plus the full output for the issues panel.
type StatusUpdate struct {
	Message   string
	Panel     string
	ShowPanel bool
}

const (
	pushQueueSize   = 256
	shutdownTimeout = 2 * time.Second
)

// Bridge owns one persistent analysis-server subprocess and converts its
// diagnostics pushes into status updates. It also dispatches to synchronous
// external linters for languages the server does not handle; that path wins
// when a linter is registered for the current language.
type Bridge struct {
	workspacePath string
	logger        logging.Logger
	linters       *linter.Registry

	command    []string
	serverLang string

	state       State
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	exited      chan struct{}
	seqID       int64
	docVersions map[string]int

	pushQ   *queue.Bounded[Message]
	statusQ *queue.Queue[StatusUpdate]
}

// NewBridge creates an analysis bridge. The server process is started lazily
// on the first lint request that needs it.
func NewBridge(workspacePath string, cfg *config.Config, linters *linter.Registry, logger logging.Logger) *Bridge {
	return &Bridge{
		workspacePath: workspacePath,
		logger:        logging.OrNop(logger),
		linters:       linters,
		command:       cfg.Analysis.Command,
		serverLang:    cfg.Analysis.Language,
		state:         StateNotStarted,
		docVersions:   make(map[string]int),
		pushQ:         queue.NewBounded[Message](pushQueueSize),
		statusQ:       queue.New[StatusUpdate](),
	}
}

// UpdateConfig applies a reloaded configuration. A running server keeps its
// current command; the new one takes effect on the next start.
func (b *Bridge) UpdateConfig(cfg *config.Config) {
	b.command = cfg.Analysis.Command
	b.serverLang = cfg.Analysis.Language
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	return b.state
}

// DocumentVersion returns the tracked version for a document URI.
func (b *Bridge) DocumentVersion(uri string) (int, bool) {
	v, ok := b.docVersions[uri]
	return v, ok
}

// Lint dispatches a lint request for the current buffer and returns the
// immediate status update. Long-running results arrive later through
// DrainQueues. Must be called from the foreground thread.
func (b *Bridge) Lint(filename, language, code string) StatusUpdate {
	// External linters take priority over the protocol path.
	if l, ok := b.linters.Find(language); ok {
		b.runExternalLinter(l, language, code)
		return StatusUpdate{Message: fmt.Sprintf("Running linter for %s...", language)}
	}

	if language != b.serverLang {
		msg := fmt.Sprintf("Linting is only available for %s files.", b.serverLang)
		return StatusUpdate{Message: msg, Panel: msg}
	}

	if err := b.ensureStarted(); err != nil {
		msg := fmt.Sprintf("Analysis server error: %v", err)
		return StatusUpdate{Message: msg, Panel: msg}
	}

	uri := DocumentURI(filename)
	if version, seen := b.docVersions[uri]; seen {
		b.docVersions[uri] = version + 1
		b.sendDidChange(uri, version+1, code)
	} else {
		b.docVersions[uri] = 1
		b.sendDidOpen(uri, code)
	}

	return StatusUpdate{
		Message: "Analysis started...",
		Panel:   "Analysis in progress...",
	}
}

// runExternalLinter executes a synchronous linter on a short-lived worker
// goroutine and delivers its full output as one status update.
func (b *Bridge) runExternalLinter(l linter.ExternalLinter, language, code string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("external linter panic for %s: %v", language, r)
				b.statusQ.Put(StatusUpdate{
					Message:   fmt.Sprintf("Error in %s linter: %v", language, r),
					Panel:     fmt.Sprintf("%v", r),
					ShowPanel: true,
				})
			}
		}()

		output, err := l.Run(language, code)
		if err != nil {
			b.statusQ.Put(StatusUpdate{
				Message:   fmt.Sprintf("Error in %s linter: %v", language, err),
				Panel:     err.Error(),
				ShowPanel: true,
			})
			return
		}
		b.statusQ.Put(StatusUpdate{
			Message:   fmt.Sprintf("%s: analysis complete.", language),
			Panel:     output,
			ShowPanel: true,
		})
	}()
}

// ensureStarted starts the server process if it is not already running and
// healthy. Initialization is complete once the initialize request and
// initialized notification have been written; no response is awaited, since
// the reader loop handles responses asynchronously.
func (b *Bridge) ensureStarted() error {
	if b.state == StateInitialized && b.alive() {
		return nil
	}

	if len(b.command) == 0 {
		return fmt.Errorf("no analysis server command configured")
	}

	b.state = StateStarting

	cmd := exec.Command(b.command[0], b.command[1:]...)
	cmd.Dir = b.workspacePath

	stdin, err := cmd.StdinPipe()
	if err != nil {
		b.state = StateStopped
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		b.state = StateStopped
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		b.state = StateStopped
		return fmt.Errorf("failed to start analysis server: %w", err)
	}
	b.logger.Info("analysis server started with PID %d", cmd.Process.Pid)

	b.cmd = cmd
	b.stdin = stdin
	b.exited = make(chan struct{})
	// A fresh server has seen no documents; the version table restarts too.
	b.docVersions = make(map[string]int)

	exited := b.exited
	go func() {
		cmd.Wait()
		close(exited)
	}()
	go b.readerLoop(stdout)

	rootURI := "file://" + b.workspacePath
	initParams := map[string]any{
		"processId":    os.Getpid(),
		"rootUri":      rootURI,
		"capabilities": map[string]any{},
		"clientInfo":   map[string]any{"name": "Quill"},
		"workspaceFolders": []map[string]any{
			{"uri": rootURI, "name": "workspace"},
		},
	}
	if err := b.send("initialize", initParams, true); err != nil {
		return fmt.Errorf("failed to send initialize: %w", err)
	}
	if err := b.send("initialized", map[string]any{}, false); err != nil {
		return fmt.Errorf("failed to send initialized: %w", err)
	}

	b.state = StateInitialized
	return nil
}

// send writes one JSON-RPC message to the server. Requests get the next
// sequence id; notifications carry none.
func (b *Bridge) send(method string, params any, isRequest bool) error {
	if !b.alive() || b.stdin == nil {
		return fmt.Errorf("analysis server is not running")
	}

	payload := request{JSONRPC: "2.0", Method: method, Params: params}
	if isRequest {
		b.seqID++
		id := b.seqID
		payload.ID = &id
	}

	if err := WriteFrame(b.stdin, payload); err != nil {
		// A broken pipe means the server died mid-write; tear down so the
		// next lint request restarts it.
		b.logger.Warn("analysis server write failed: %v", err)
		b.Shutdown()
		return err
	}
	return nil
}

func (b *Bridge) sendDidOpen(uri, text string) {
	params := map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": b.serverLang,
			"version":    1,
			"text":       text,
		},
	}
	b.send("textDocument/didOpen", params, false)
}

func (b *Bridge) sendDidChange(uri string, version int, text string) {
	params := map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": version},
		"contentChanges": []map[string]any{{"text": text}},
	}
	b.send("textDocument/didChange", params, false)
}

// readerLoop continuously deframes and decodes messages off the server's
// stdout, pushing each onto the bounded queue. It does no interpretation:
// framing is byte-oriented and must never stall behind foreground work.
// Framing errors end the loop quietly; the bridge notices the dead process
// on next use and restarts it.
func (b *Bridge) readerLoop(stdout io.Reader) {
	for {
		body, err := ReadFrame(stdout)
		if err != nil {
			if err != io.EOF {
				b.logger.Debug("analysis reader stopped: %v", err)
			}
			return
		}

		msg, err := decodeMessage(body)
		if err != nil {
			// One bad body never desynchronizes framing; drop it and go on.
			b.logger.Warn("dropping invalid analysis message: %v", err)
			continue
		}

		if !b.pushQ.Put(msg) {
			b.logger.Warn("analysis message queue is full; dropping message")
		}
	}
}

// DrainQueues processes every pending server push and linter result,
// forwarding status updates to apply. Returns whether anything changed.
func (b *Bridge) DrainQueues(apply func(StatusUpdate)) bool {
	changed := false

	for {
		msg, ok := b.pushQ.TryPop()
		if !ok {
			break
		}
		if msg.Method != methodPublishDiagnostics {
			continue
		}
		apply(diagnosticsUpdate(msg.Params))
		changed = true
	}

	for {
		update, ok := b.statusQ.TryPop()
		if !ok {
			break
		}
		apply(update)
		changed = true
	}

	return changed
}

// diagnosticsUpdate formats a publishDiagnostics payload for the UI: a
// one-line summary from the first diagnostic and a panel listing every
// entry as "line:col  message" (1-based).
func diagnosticsUpdate(raw json.RawMessage) StatusUpdate {
	var params publishDiagnosticsParams
	if err := json.Unmarshal(raw, &params); err != nil {
		msg := "Analysis: issues found (check panel)"
		return StatusUpdate{Message: msg, Panel: "Malformed diagnostics payload.", ShowPanel: true}
	}

	if len(params.Diagnostics) == 0 {
		msg := "✓ No issues found"
		return StatusUpdate{Message: msg, Panel: msg}
	}

	message := "Analysis: issues found (check panel)"
	if first, ok := decodeDiagnostic(params.Diagnostics[0]); ok {
		if line := diagnosticLine(first); line > 0 {
			message = fmt.Sprintf("Analysis: %s (Line %d)", first.Message, line)
		} else {
			message = fmt.Sprintf("Analysis: %s", first.Message)
		}
	}

	lines := make([]string, 0, len(params.Diagnostics))
	for _, raw := range params.Diagnostics {
		diag, ok := decodeDiagnostic(raw)
		if !ok {
			lines = append(lines, "Malformed diagnostic item.")
			continue
		}
		if line := diagnosticLine(diag); line > 0 {
			lines = append(lines, fmt.Sprintf("%d:%d  %s", line, diag.Range.Start.Character+1, diag.Message))
		} else {
			lines = append(lines, diag.Message)
		}
	}

	return StatusUpdate{
		Message:   message,
		Panel:     strings.Join(lines, "\n"),
		ShowPanel: true,
	}
}

func decodeDiagnostic(raw json.RawMessage) (Diagnostic, bool) {
	var diag Diagnostic
	if err := json.Unmarshal(raw, &diag); err != nil {
		return Diagnostic{}, false
	}
	if diag.Message == "" {
		diag.Message = "No message provided."
	}
	return diag, true
}

// diagnosticLine returns the 1-based line of a diagnostic, or 0 when its
// position is unavailable.
func diagnosticLine(d Diagnostic) int {
	if d.Range == nil {
		return 0
	}
	return d.Range.Start.Line + 1
}

// Shutdown gracefully stops the server: shutdown request, exit notification,
// then a bounded wait before a forced kill. It never lets errors propagate.
func (b *Bridge) Shutdown() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("analysis shutdown panic: %v", r)
		}
		b.state = StateStopped
		b.cmd = nil
		b.stdin = nil
	}()

	if b.cmd == nil || !b.alive() {
		b.state = StateStopped
		return
	}

	b.state = StateShuttingDown
	b.logger.Info("shutting down analysis server...")

	if b.stdin != nil {
		payload := request{JSONRPC: "2.0", Method: "shutdown"}
		b.seqID++
		id := b.seqID
		payload.ID = &id
		if err := WriteFrame(b.stdin, payload); err == nil {
			WriteFrame(b.stdin, request{JSONRPC: "2.0", Method: "exit"})
		}
		b.stdin.Close()
	}

	select {
	case <-b.exited:
	case <-time.After(shutdownTimeout):
		b.logger.Warn("forcing analysis server kill after %s", shutdownTimeout)
		if b.cmd.Process != nil {
			b.cmd.Process.Kill()
		}
	}
}

// Close shuts the server down and closes the bridge queues; late worker
// results are silently dropped.
func (b *Bridge) Close() {
	b.Shutdown()
	b.pushQ.Close()
	b.statusQ.Close()
}

// alive reports whether the server process is still running. The reader
// goroutine also relies on exit detection through its stdout EOF, so this is
// only consulted on the foreground thread.
func (b *Bridge) alive() bool {
	if b.cmd == nil || b.exited == nil {
		return false
	}
	select {
	case <-b.exited:
		return false
	default:
		return true
	}
}

// DocumentURI returns the file:// URI identifying a buffer. An unnamed
// buffer gets a stable placeholder identity.
func DocumentURI(path string) string {
	if path == "" {
		path = "<buffer>"
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + path
}
