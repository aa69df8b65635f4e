package cmd

import (
	"github.com/spf13/cobra"

	"github.com/genfinafrica/genfin-chat/internal/api"
	"github.com/genfinafrica/genfin-chat/internal/chat"
	"github.com/genfinafrica/genfin-chat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the Seasonaware chat window",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := chat.New(api.NewClient(cfg.APIBaseURL))
		return tui.Run(engine)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
