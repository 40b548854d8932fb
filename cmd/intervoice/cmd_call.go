package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/intervoice/internal/vapi"
)

var (
	callWorkflow string
	callVars     []string
	callShapes   []string
)

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.Flags().StringVar(&callWorkflow, "workflow", "", "provider workflow id (defaults to vapi.workflow_id)")
	callCmd.Flags().StringArrayVar(&callVars, "var", nil, "template variable as key=value (repeatable)")
	callCmd.Flags().StringSliceVar(&callShapes, "shapes", nil, "override the candidate shape order")
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Place a web call and print every negotiation attempt",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)
		if len(callShapes) > 0 {
			cfg.Vapi.ShapeOrder = callShapes
		}
		if callWorkflow == "" {
			callWorkflow = cfg.Vapi.WorkflowID
		}
		vars, err := parseVars(callVars)
		if err != nil {
			return err
		}
		initiator, err := newInitiator(cfg)
		if err != nil {
			return err
		}

		handle, err := initiator.Initiate(context.Background(), callWorkflow, vars)
		var neg *vapi.NegotiationError
		if errors.As(err, &neg) {
			fmt.Fprint(os.Stdout, renderAttempts(neg.Attempts))
			fmt.Fprintln(os.Stdout, neg.Hint)
			return vapi.ErrAllShapesRejected
		}
		if err != nil {
			return err
		}

		fmt.Fprint(os.Stdout, renderAttempts(handle.Attempts))
		fmt.Fprintf(os.Stdout, "%s call %s via shape %s\n",
			goodStyle.Render("accepted"), handle.CallID, handle.UsedShape)
		return nil
	},
}

func parseVars(pairs []string) (map[string]any, error) {
	vars := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q: want key=value", p)
		}
		vars[k] = v
	}
	return vars, nil
}
