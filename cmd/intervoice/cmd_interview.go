package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/intervoice/internal/store"
	"github.com/user/intervoice/internal/types"
)

var (
	ivUser   string
	ivLatest bool
	ivLimit  int
)

func init() {
	rootCmd.AddCommand(interviewCmd)
	interviewCmd.AddCommand(interviewListCmd, interviewAddCmd)
	interviewListCmd.Flags().StringVar(&ivUser, "user", "", "user id")
	interviewListCmd.Flags().BoolVar(&ivLatest, "latest", false, "list finalized interviews of other users instead")
	interviewListCmd.Flags().IntVar(&ivLimit, "limit", types.DefaultLatestLimit, "maximum entries with --latest")
}

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Manage stored interviews",
}

var interviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List interviews of a user, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ivUser == "" && !ivLatest {
			return fmt.Errorf("--user is required unless --latest is set")
		}
		cfg := loadConfig()
		ctx := context.Background()
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		var list []*types.Interview
		if ivLatest {
			list, err = st.LatestInterviews(ctx, types.UserID(ivUser), ivLimit)
		} else {
			list, err = st.InterviewsByUser(ctx, types.UserID(ivUser))
		}
		if err != nil {
			return fmt.Errorf("list interviews: %w", err)
		}
		if len(list) == 0 {
			fmt.Println("No interviews found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, headerStyle.Render("ID")+"\tROLE\tLEVEL\tQUESTIONS\tFINALIZED\tCREATED")
		for _, iv := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
				iv.ID,
				strings.TrimSpace(iv.Role+" "+iv.Type),
				iv.Level,
				len(iv.Questions),
				iv.Finalized,
				dimStyle.Render(iv.CreatedAt.Format("2006-01-02 15:04")),
			)
		}
		return w.Flush()
	},
}

var interviewAddCmd = &cobra.Command{
	Use:   "add <file.json>",
	Short: "Store an interview read from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read interview: %w", err)
		}
		var iv types.Interview
		if err := json.Unmarshal(data, &iv); err != nil {
			return fmt.Errorf("parse interview: %w", err)
		}
		if iv.UserID == "" {
			return fmt.Errorf("interview needs a userId")
		}

		cfg := loadConfig()
		ctx := context.Background()
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		if err := st.PutInterview(ctx, &iv); err != nil {
			return fmt.Errorf("store interview: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Stored interview %s\n", iv.ID)
		return nil
	},
}
