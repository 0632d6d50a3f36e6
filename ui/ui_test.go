package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"quill/config"
	"quill/engine"
	"quill/git"
	"quill/linter"
	"quill/logging"
	"quill/lsp"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Analysis.Command = []string{"cat"}
	cfg.Analysis.Language = "python"

	linters := linter.NewRegistry(cfg)
	bridges := Bridges{
		Git:      git.NewBridge(dir, cfg, logging.Nop()),
		Analysis: lsp.NewBridge(dir, cfg, linters, logging.Nop()),
		Linters:  linters,
		Tasks:    engine.New(cfg, logging.Nop()),
	}
	t.Cleanup(func() {
		bridges.Analysis.Close()
		bridges.Git.Close()
		bridges.Tasks.Close()
	})

	return New(dir, "main.py", "python", cfg, bridges, logging.Nop())
}

func key(m Model, msg tea.KeyMsg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func runes(m Model, s string) Model {
	for _, r := range s {
		m = key(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestTypingAndEnterEditsBuffer(t *testing.T) {
	m := newTestModel(t)

	m = runes(m, "x = 1")
	if m.input != "x = 1" {
		t.Fatalf("input = %q", m.input)
	}

	m = key(m, tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.lines) != 1 || m.lines[0] != "x = 1" {
		t.Fatalf("lines = %v", m.lines)
	}
	if m.input != "" {
		t.Errorf("input not cleared after enter: %q", m.input)
	}
	if !m.dirty {
		t.Error("buffer not marked dirty after edit")
	}
}

func TestBackspace(t *testing.T) {
	m := newTestModel(t)
	m = runes(m, "ab")
	m = key(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.input != "a" {
		t.Errorf("input = %q, want %q", m.input, "a")
	}
}

func TestTickDrainsGitQueue(t *testing.T) {
	m := newTestModel(t)
	m.bridges.Git.RequestAsyncUpdate(m.bufferContext())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		next, _ := m.Update(tickMsg(time.Now()))
		m = next.(Model)
		if m.gitInfo == "Not a Git repository." {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("git info never arrived; last = %q", m.gitInfo)
}

func TestLintKeyUnsupportedLanguage(t *testing.T) {
	m := newTestModel(t)
	m.language = "go"

	m = key(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.status != "Linting is only available for python files." {
		t.Errorf("status = %q", m.status)
	}
}

func TestSubmitChatRequiresPrompt(t *testing.T) {
	m := newTestModel(t)

	m = key(m, tea.KeyMsg{Type: tea.KeyCtrlA})
	if m.status != "Type a prompt first." {
		t.Errorf("status = %q", m.status)
	}
}

func TestSubmitChatRejectedWhenEngineStopped(t *testing.T) {
	m := newTestModel(t)
	m = runes(m, "explain this")

	m = key(m, tea.KeyMsg{Type: tea.KeyCtrlA})
	if !strings.Contains(m.status, "AI task rejected") {
		t.Errorf("status = %q", m.status)
	}
}

func TestTabTogglesPanel(t *testing.T) {
	m := newTestModel(t)
	m = key(m, tea.KeyMsg{Type: tea.KeyTab})
	if !m.showPanel {
		t.Error("panel not shown after tab")
	}
	m = key(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.showPanel {
		t.Error("panel not hidden after second tab")
	}
}

func TestViewContainsStatusAndGitInfo(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	if !strings.Contains(view, "Quill") {
		t.Error("view missing title")
	}
	if !strings.Contains(view, "Ready") {
		t.Error("view missing status")
	}
}
