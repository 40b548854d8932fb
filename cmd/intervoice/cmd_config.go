package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/intervoice/internal/config"
	"github.com/user/intervoice/internal/scheduler"
	"github.com/user/intervoice/internal/store"
	"github.com/user/intervoice/internal/vapi"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configCheckCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the service configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective settings, credentials masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		values := config.Values(cfg, true)
		for _, k := range config.Keys() {
			fmt.Fprintf(os.Stdout, "%s = %s\n", k, describe(k, values[k]))
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting from the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, describe(args[0], val))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting; the file is only written if the result is valid",
	Long: `Change one setting in the config file.

Lists such as vapi.shape_order take comma-separated names or a JSON array;
an empty value restores the built-in negotiation order. The whole
configuration is validated before the file is written.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetValue(cfgPath, key, value, validateConfig); err != nil {
			return err
		}
		if config.IsSecretKey(key) {
			value = "***"
		}
		fmt.Fprintf(os.Stdout, "%s %s = %s\n", goodStyle.Render("set"), key, value)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration serve would start with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateConfig(loadConfig()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, goodStyle.Render("configuration ok"))
		return nil
	},
}

// describe renders a setting for display. An empty shape order shows the
// order the initiator falls back to.
func describe(key string, v any) string {
	if list, ok := v.([]string); ok {
		if len(list) == 0 && key == "vapi.shape_order" {
			return dimStyle.Render("(default) " + strings.Join(defaultShapeNames(), ", "))
		}
		return strings.Join(list, ", ")
	}
	return fmt.Sprint(v)
}

func defaultShapeNames() []string {
	shapes := vapi.DefaultShapes()
	names := make([]string, len(shapes))
	for i, s := range shapes {
		names[i] = s.Name
	}
	return names
}

// validateConfig reports every setting serve would refuse to start with.
func validateConfig(cfg *config.Config) error {
	var errs []error
	if _, err := vapi.Shapes(cfg.Vapi.ShapeOrder); err != nil {
		errs = append(errs, fmt.Errorf("vapi.shape_order: %w", err))
	}
	if cfg.Vapi.AttemptsPerSecond < 0 {
		errs = append(errs, errors.New("vapi.attempts_per_second: must not be negative"))
	}
	if cfg.Session.ReapSchedule != "" {
		if err := scheduler.Validate(cfg.Session.ReapSchedule); err != nil {
			errs = append(errs, fmt.Errorf("session.reap_schedule: %w", err))
		}
	}
	if d, err := time.ParseDuration(cfg.Session.TTL); err != nil {
		errs = append(errs, fmt.Errorf("session.ttl: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("session.ttl: must be positive, got %s", d))
	}
	switch cfg.Store.Backend {
	case "", store.BackendFile, store.BackendSQLite, store.BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", cfg.Store.Backend))
	}
	switch cfg.Evaluator.Provider {
	case "", "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("evaluator.provider: unknown provider %q", cfg.Evaluator.Provider))
	}
	if cfg.Feedback.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("feedback.max_concurrent: must be at least 1, got %d", cfg.Feedback.MaxConcurrent))
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", cfg.LogLevel))
	}
	return errors.Join(errs...)
}
