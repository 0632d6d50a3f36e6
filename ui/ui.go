package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"quill/config"
	"quill/engine"
	"quill/git"
	"quill/linter"
	"quill/logging"
	"quill/lsp"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	bufferStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#F25D94")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	gitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A550DF"))
)

// drainInterval paces the foreground tick that empties every bridge queue.
const drainInterval = 100 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(drainInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Bridges bundles the background subsystems the editor drains each tick.
type Bridges struct {
	Git      *git.Bridge
	Analysis *lsp.Bridge
	Linters  *linter.Registry
	Tasks    *engine.Engine
	Watcher  *config.Watcher
}

// Model is the editor's foreground loop. All bridge state mutations happen
// here; the bridges only ever hand results over via their queues.
type Model struct {
	workspacePath string
	cfg           *config.Config
	logger        logging.Logger
	bridges       Bridges

	filename string
	language string
	lines    []string
	input    string
	dirty    bool

	gitInfo   string
	status    string
	panel     string
	showPanel bool
	chatReply string
	taskSeq   int

	width  int
	height int
}

// New creates the editor model for one buffer.
func New(workspacePath, filename, language string, cfg *config.Config, bridges Bridges, logger logging.Logger) Model {
	m := Model{
		workspacePath: workspacePath,
		cfg:           cfg,
		logger:        logging.OrNop(logger),
		bridges:       bridges,
		filename:      filename,
		language:      language,
		status:        "Ready",
		gitInfo:       git.EmptyInfo.String(),
	}
	return m
}

func (m Model) Init() tea.Cmd {
	m.bridges.Git.RequestAsyncUpdate(m.bufferContext())
	m.bridges.Git.RefreshFileStatuses()
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.drainBridges()
		return m, tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+l":
			update := m.bridges.Analysis.Lint(m.filename, m.language, m.buffer())
			m.applyAnalysisUpdate(update)
		case "ctrl+r":
			m.bridges.Git.RequestAsyncUpdate(m.bufferContext())
			m.bridges.Git.RefreshFileStatuses()
			m.status = "Refreshing repository info..."
		case "ctrl+a":
			m.submitChatTask()
		case "tab":
			m.showPanel = !m.showPanel
		case "enter":
			m.lines = append(m.lines, m.input)
			m.input = ""
			m.dirty = true
			m.bridges.Git.RequestAsyncUpdate(m.bufferContext())
		case "backspace":
			if len(m.input) > 0 {
				m.input = m.input[:len(m.input)-1]
			}
		default:
			if len(msg.String()) == 1 || msg.String() == " " {
				m.input += msg.String()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m Model) View() string {
	title := titleStyle.Render(fmt.Sprintf("Quill - %s", m.displayName()))

	body := bufferStyle.Render(m.buffer())

	var sections []string
	sections = append(sections, title, body)

	if m.showPanel && m.panel != "" {
		sections = append(sections, panelStyle.Render(m.panel))
	}
	if m.chatReply != "" {
		sections = append(sections, panelStyle.Render("AI: "+m.chatReply))
	}

	input := fmt.Sprintf("> %s", m.input)
	statusBar := fmt.Sprintf("%s | %s", gitStyle.Render(m.gitInfo), statusStyle.Render(m.status))
	sections = append(sections, input, statusBar)

	return strings.Join(sections, "\n")
}

// drainBridges empties every bridge queue once. It never blocks: each drain
// is a non-blocking pop loop, so an empty tick costs almost nothing.
func (m *Model) drainBridges() {
	if m.bridges.Watcher != nil && m.bridges.Watcher.Changed() {
		m.reloadConfig()
	}

	m.bridges.Git.DrainQueues(m.bufferContext(), func(status string) {
		m.status = status
	})
	m.gitInfo = m.bridges.Git.Info().String()

	m.bridges.Analysis.DrainQueues(m.applyAnalysisUpdate)

	m.bridges.Tasks.DrainResults(func(r engine.Result) {
		if r.Status == engine.StatusDone {
			m.chatReply = r.Content
			m.status = "AI reply ready."
		} else {
			m.status = fmt.Sprintf("AI task failed: %s", r.Err)
		}
	})
}

func (m *Model) applyAnalysisUpdate(update lsp.StatusUpdate) {
	if update.Message != "" {
		m.status = update.Message
	}
	if update.Panel != "" {
		m.panel = update.Panel
	}
	m.showPanel = update.ShowPanel
}

// reloadConfig re-reads configuration from disk and pushes it into every
// subsystem that caches it.
func (m *Model) reloadConfig() {
	cfg, err := config.LoadConfig(m.workspacePath)
	if err != nil {
		m.logger.Warn("config reload failed: %v", err)
		m.status = "Config reload failed."
		return
	}
	m.cfg = cfg
	m.bridges.Git.UpdateConfig(cfg)
	m.bridges.Analysis.UpdateConfig(cfg)
	m.bridges.Linters.Reload(cfg)
	m.bridges.Tasks.UpdateConfig(cfg)
	m.status = "Configuration reloaded."
	m.logger.Info("configuration reloaded")
}

// submitChatTask sends the input line to the task engine as an AI prompt.
func (m *Model) submitChatTask() {
	prompt := strings.TrimSpace(m.input)
	if prompt == "" {
		m.status = "Type a prompt first."
		return
	}

	m.taskSeq++
	task := engine.Task{
		ID:       fmt.Sprintf("chat-%d", m.taskSeq),
		Kind:     engine.TaskKindAIChat,
		Provider: m.cfg.AI.DefaultProvider,
		Prompt:   prompt,
		Filename: m.filename,
		Buffer:   m.buffer(),
	}
	if err := m.bridges.Tasks.SubmitTask(task); err != nil {
		m.status = fmt.Sprintf("AI task rejected: %v", err)
		return
	}
	m.input = ""
	m.status = "AI task submitted..."
}

func (m *Model) buffer() string {
	return strings.Join(m.lines, "\n")
}

// bufferContext identifies the buffer state for git debouncing: repeated
// requests for the same file and dirty flag collapse into one fetch.
func (m *Model) bufferContext() string {
	return fmt.Sprintf("%s|%t", m.filename, m.dirty)
}

func (m *Model) displayName() string {
	if m.filename == "" {
		return "(unsaved buffer)"
	}
	return m.filename
}
