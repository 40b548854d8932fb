package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/intervoice/internal/feedback"
	"github.com/user/intervoice/internal/store"
	"github.com/user/intervoice/internal/types"
)

var (
	fbInterview  string
	fbUser       string
	fbTranscript string
	fbID         string
)

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.AddCommand(feedbackShowCmd, feedbackGenerateCmd)
	for _, c := range []*cobra.Command{feedbackShowCmd, feedbackGenerateCmd} {
		c.Flags().StringVar(&fbInterview, "interview", "", "interview id")
		c.Flags().StringVar(&fbUser, "user", "", "user id")
		_ = c.MarkFlagRequired("interview")
		_ = c.MarkFlagRequired("user")
	}
	feedbackGenerateCmd.Flags().StringVar(&fbTranscript, "transcript", "", "JSON file with [{role, content}, ...]")
	feedbackGenerateCmd.Flags().StringVar(&fbID, "id", "", "overwrite this feedback record")
	_ = feedbackGenerateCmd.MarkFlagRequired("transcript")
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Inspect and generate interview feedback",
}

var feedbackShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the feedback of a user for an interview",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := context.Background()
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		rec, err := st.FeedbackByInterview(ctx, types.InterviewID(fbInterview), types.UserID(fbUser))
		if errors.Is(err, types.ErrNotFound) {
			fmt.Println("No feedback found.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("load feedback: %w", err)
		}
		fmt.Fprint(os.Stdout, renderFeedback(rec))
		return nil
	},
}

var feedbackGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Evaluate a saved transcript and store the feedback",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		ctx := context.Background()

		data, err := os.ReadFile(fbTranscript)
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		var transcript []types.Utterance
		if err := json.Unmarshal(data, &transcript); err != nil {
			return fmt.Errorf("parse transcript: %w", err)
		}

		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		pipeline, closePipeline, err := newPipeline(ctx, cfg, st)
		if err != nil {
			return err
		}
		defer closePipeline()

		res, err := pipeline.Generate(ctx, feedback.Request{
			InterviewID: types.InterviewID(fbInterview),
			UserID:      types.UserID(fbUser),
			Transcript:  transcript,
			FeedbackID:  types.FeedbackID(fbID),
		})
		if err != nil {
			return err
		}
		rec, err := st.FeedbackByInterview(ctx, types.InterviewID(fbInterview), types.UserID(fbUser))
		if err != nil {
			fmt.Fprintf(os.Stdout, "Stored feedback %s\n", res.FeedbackID)
			return nil
		}
		fmt.Fprint(os.Stdout, renderFeedback(rec))
		return nil
	},
}
