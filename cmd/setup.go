package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/genfinafrica/genfin-chat/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure genfin (re-run anytime to edit settings)",
	// Bypass the normal PersistentPreRunE so setup works before config exists.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(false)
	},
}

// runSetup runs the interactive setup wizard and saves the global config.
// If firstRun is true, a welcome message is shown.
func runSetup(firstRun bool) error {
	if firstRun {
		fmt.Println()
		fmt.Println("  Welcome to genfin! Let's get you set up.")
	}

	// Existing values become the prompt defaults (edit mode).
	current := config.Defaults()
	if config.Exists() {
		if loaded, err := config.LoadGlobal(); err == nil && loaded != nil {
			current = config.Merge(loaded, nil)
		}
	}

	r := bufio.NewReader(os.Stdin)
	ask := func(prompt, defaultVal string) (string, error) {
		fmt.Printf("%s [%s]: ", prompt, defaultVal)
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	fmt.Println()
	fmt.Println("  ┌─────────────────────────────────┐")
	fmt.Println("  │    genfin — first-time setup    │")
	fmt.Println("  └─────────────────────────────────┘")
	fmt.Println()

	var err error
	current.APIBaseURL, err = ask("  Backend URL the chat talks to", current.APIBaseURL)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	current.ListenAddr, err = ask("  Address 'genfin serve' binds to", current.ListenAddr)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	current.DBPath, err = ask("  SQLite file for the demo backend", current.DBPath)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}

	if err := config.Save(current); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Println("  ✓ Config saved.")
	fmt.Println("  Setup complete. Run 'genfin serve' and then 'genfin chat'.")
	fmt.Println()
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
