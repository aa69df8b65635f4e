package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/genfinafrica/genfin-chat/internal/api"
	"github.com/genfinafrica/genfin-chat/internal/chat"
)

var statusSeason int

var statusCmd = &cobra.Command{
	Use:   "status <farmer-id>",
	Short: "Print a farmer's loan status without opening the chat window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		farmerID, err := strconv.Atoi(args[0])
		if err != nil || farmerID <= 0 {
			return fmt.Errorf("farmer id must be a positive number, got %q", args[0])
		}

		client := api.NewClient(cfg.APIBaseURL)
		snap, err := client.FetchStatus(cmd.Context(), farmerID, statusSeason)
		if err != nil {
			return err
		}

		summary := chat.Message{Sender: chat.SenderSystem, Text: chat.Summarize(snap, farmerID)}
		cmd.Println(chat.RenderText(summary))
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusSeason, "season", 0, "past season number (default: current)")
	rootCmd.AddCommand(statusCmd)
}
