package linter

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"quill/config"
)

// ExternalLinter is a synchronous, non-protocol linter for languages the
// analysis server does not handle (infrastructure-as-code formats). Linters
// are resolved from configuration at startup; "reloading" them means
// re-resolving the registry, not swapping code at runtime.
type ExternalLinter interface {
	Supports(language string) bool
	Run(language, code string) (string, error)
}

// Registry holds the resolved external linters. It is safe to re-resolve
// from a reloaded config while the editor is running.
type Registry struct {
	mu      sync.RWMutex
	linters []ExternalLinter
}

// NewRegistry resolves a registry from configuration.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{}
	r.Reload(cfg)
	return r
}

// Reload replaces the registered linters with the ones the given config
// defines.
func (r *Registry) Reload(cfg *config.Config) {
	var linters []ExternalLinter
	if len(cfg.Linters) > 0 {
		linters = append(linters, newCommandLinter(cfg.Linters))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.linters = linters
}

// Register adds a linter to the registry.
func (r *Registry) Register(l ExternalLinter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linters = append(r.linters, l)
}

// Find returns a linter supporting the language, if any is registered.
func (r *Registry) Find(language string) (ExternalLinter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.linters {
		if l.Supports(language) {
			return l, true
		}
	}
	return nil, false
}

// commandLinter runs a configured external command per language, feeding the
// buffer on stdin and returning the combined output.
type commandLinter struct {
	commands map[string][]string
}

func newCommandLinter(commands map[string]config.LinterCommand) *commandLinter {
	resolved := make(map[string][]string, len(commands))
	for lang, lc := range commands {
		if len(lc.Command) > 0 {
			resolved[lang] = lc.Command
		}
	}
	return &commandLinter{commands: resolved}
}

func (c *commandLinter) Supports(language string) bool {
	_, ok := c.commands[language]
	return ok
}

func (c *commandLinter) Run(language, code string) (string, error) {
	argv, ok := c.commands[language]
	if !ok {
		return "", fmt.Errorf("no linter configured for %s", language)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(code)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	// Linters report issues via output and often a non-zero exit; only a
	// failure to run the command at all is an error here.
	if err := cmd.Run(); err != nil {
		if _, isExit := err.(*exec.ExitError); !isExit {
			return "", fmt.Errorf("failed to run %s linter: %w", language, err)
		}
	}

	output := strings.TrimSpace(out.String())
	if output == "" {
		output = fmt.Sprintf("%s: no issues found.", language)
	}
	return output, nil
}
