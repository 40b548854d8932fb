package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/intervoice/internal/state"
	"github.com/user/intervoice/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionTranscriptCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect archived call transcripts",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions with an archived transcript",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := state.NewTranscriptLog(cfg.DataDir)
		ctx := context.Background()

		ids, err := log.Sessions(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}
		for _, id := range ids {
			utts, err := log.Read(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s  %s\n", id, dimStyle.Render(fmt.Sprintf("%d utterances", len(utts))))
		}
		return nil
	},
}

var sessionTranscriptCmd = &cobra.Command{
	Use:   "transcript <session-id>",
	Short: "Print the archived transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		utts, err := state.NewTranscriptLog(cfg.DataDir).Read(context.Background(), types.SessionID(args[0]))
		if err != nil {
			return err
		}
		if len(utts) == 0 {
			return fmt.Errorf("no transcript for session %s", args[0])
		}
		for _, u := range utts {
			fmt.Fprintf(os.Stdout, "%s %s\n", headerStyle.Render(string(u.Role)+":"), u.Content)
		}
		return nil
	},
}
