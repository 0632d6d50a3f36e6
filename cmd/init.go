package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/config"
	"quill/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize quill configuration for current directory",
	Long:  `Initialize quill configuration for current directory`,
	Run: func(cmd *cobra.Command, args []string) {
		workspacePath, err := workspace.DetectWorkspace()
		if err != nil {
			fmt.Printf("Error detecting workspace: %v\n", err)
			return
		}

		cfg := config.DefaultConfig()
		if err := config.SaveLocalConfig(workspacePath, cfg); err != nil {
			fmt.Printf("Error saving local config: %v\n", err)
			return
		}

		fmt.Printf("Initialized quill for %s\n", workspacePath)
		fmt.Println("Created project-specific configuration with default settings")
	},
}
