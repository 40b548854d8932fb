package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/config"
)

func validConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg, path
}

func TestValidateConfigDefaults(t *testing.T) {
	cfg, _ := validConfig(t)
	assert.NoError(t, validateConfig(cfg))
}

func TestValidateConfigReportsEachSetting(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown shape", func(c *config.Config) { c.Vapi.ShapeOrder = []string{"variables", "bogus"} }, "vapi.shape_order"},
		{"duplicate shape", func(c *config.Config) { c.Vapi.ShapeOrder = []string{"spread", "spread"} }, "vapi.shape_order"},
		{"bad schedule", func(c *config.Config) { c.Session.ReapSchedule = "every tuesday" }, "session.reap_schedule"},
		{"bad ttl", func(c *config.Config) { c.Session.TTL = "soon" }, "session.ttl"},
		{"negative ttl", func(c *config.Config) { c.Session.TTL = "-5m" }, "session.ttl"},
		{"unknown backend", func(c *config.Config) { c.Store.Backend = "postgres" }, "store.backend"},
		{"unknown provider", func(c *config.Config) { c.Evaluator.Provider = "claude" }, "evaluator.provider"},
		{"no workers", func(c *config.Config) { c.Feedback.MaxConcurrent = 0 }, "feedback.max_concurrent"},
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := validConfig(t)
			tt.mutate(cfg)
			err := validateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateConfigEmptyScheduleDisablesReaper(t *testing.T) {
	cfg, _ := validConfig(t)
	cfg.Session.ReapSchedule = ""
	assert.NoError(t, validateConfig(cfg))
}

func TestConfigSetRejectsInvalidValues(t *testing.T) {
	_, path := validConfig(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, kv := range [][2]string{
		{"vapi.shape_order", "variables,nope"},
		{"session.reap_schedule", "@sometimes"},
		{"session.ttl", "forever"},
		{"store.backend", "postgres"},
	} {
		err := config.SetValue(path, kv[0], kv[1], validateConfig)
		assert.Error(t, err, kv[0])
	}
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	require.NoError(t, config.SetValue(path, "vapi.shape_order", "workflowOnly,variables", validateConfig))
	require.NoError(t, config.SetValue(path, "session.reap_schedule", "@every 1m", validateConfig))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"workflowOnly", "variables"}, cfg.Vapi.ShapeOrder)
	assert.Equal(t, "@every 1m", cfg.Session.ReapSchedule)
}

func TestDescribeShapeOrder(t *testing.T) {
	out := describe("vapi.shape_order", []string(nil))
	assert.Contains(t, out, "(default)")
	assert.Contains(t, out, strings.Join(defaultShapeNames(), ", "))
	assert.Equal(t, "spread, variables", describe("vapi.shape_order", []string{"spread", "variables"}))
	assert.Equal(t, "8", describe("feedback.max_concurrent", 8))
}
