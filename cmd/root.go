package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"quill/config"
	"quill/engine"
	"quill/git"
	"quill/linter"
	"quill/logging"
	"quill/lsp"
	"quill/ui"
	"quill/workspace"
)

var (
	fileName string
	language string
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Quill is a terminal text editor with asynchronous integrations",
	Long: `Quill is a terminal text editor written in Go. Git status, code
analysis, and AI chat all run on background workers; the editor drains
their result queues once per tick so typing never blocks on them.`,
	Run: func(cmd *cobra.Command, args []string) {
		workspacePath, err := workspace.DetectWorkspace()
		if err != nil {
			fmt.Printf("Error detecting workspace: %v\n", err)
			os.Exit(1)
		}

		cfg, err := config.LoadConfig(workspacePath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		if err := workspace.EnsureQuillDir(workspacePath); err != nil {
			fmt.Printf("Error creating .quill directory: %v\n", err)
			os.Exit(1)
		}

		logger, err := logging.NewFileLogger(filepath.Join(workspacePath, ".quill", "quill.log"))
		if err != nil {
			fmt.Printf("Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer logger.Close()

		linters := linter.NewRegistry(cfg)
		gitBridge := git.NewBridge(workspacePath, cfg, logger)
		analysis := lsp.NewBridge(workspacePath, cfg, linters, logger)
		tasks := engine.New(cfg, logger)
		if err := tasks.Start(); err != nil {
			fmt.Printf("Error starting task engine: %v\n", err)
			os.Exit(1)
		}

		watcher, err := config.NewWatcher(workspacePath)
		if err != nil {
			// The editor works without live reload; log and carry on.
			logger.Warn("config watcher unavailable: %v", err)
			watcher = nil
		}

		bridges := ui.Bridges{
			Git:      gitBridge,
			Analysis: analysis,
			Linters:  linters,
			Tasks:    tasks,
			Watcher:  watcher,
		}
		model := ui.New(workspacePath, fileName, language, cfg, bridges, logger)

		program := tea.NewProgram(model, tea.WithAltScreen())
		_, runErr := program.Run()

		analysis.Close()
		gitBridge.Close()
		tasks.Close()
		if watcher != nil {
			watcher.Close()
		}

		if runErr != nil {
			fmt.Printf("Error running editor: %v\n", runErr)
			os.Exit(1)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().StringVarP(&fileName, "file", "f", "", "File to edit")
	rootCmd.Flags().StringVarP(&language, "language", "l", "python", "Language of the buffer")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}
