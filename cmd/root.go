package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/genfinafrica/genfin-chat/internal/config"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "genfin",
	Short: "Conversational client and demo backend for the GENFIN loan workflow",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// A .env in the working directory overlays the environment.
		_ = godotenv.Load()

		// First-run: global config missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !config.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Println()
			fmt.Println("  Welcome to genfin! Looks like this is your first time.")
			if err := runSetup(true); err != nil {
				return err
			}
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.ApplyEnv(config.Merge(global, project))
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
