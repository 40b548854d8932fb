package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	LogLevel string `json:"log_level" yaml:"log_level"`
	HTTP     struct {
		Listen string `json:"listen" yaml:"listen"`
	} `json:"http" yaml:"http"`
	Vapi struct {
		BaseURL               string   `json:"base_url" yaml:"base_url"`
		ServerToken           string   `json:"server_token" yaml:"server_token" config:"secret"`
		WebToken              string   `json:"web_token" yaml:"web_token" config:"secret"`
		WorkflowID            string   `json:"workflow_id" yaml:"workflow_id"`
		InterviewerWorkflowID string   `json:"interviewer_workflow_id" yaml:"interviewer_workflow_id"`
		// ShapeOrder is empty to use the initiator's built-in order.
		ShapeOrder            []string `json:"shape_order" yaml:"shape_order"`
		PromoteAcceptedShape  bool     `json:"promote_accepted_shape" yaml:"promote_accepted_shape"`
		AttemptsPerSecond     float64  `json:"attempts_per_second" yaml:"attempts_per_second"`
	} `json:"vapi" yaml:"vapi"`
	Evaluator struct {
		Provider            string `json:"provider" yaml:"provider"`
		Model               string `json:"model" yaml:"model"`
		APIKey              string `json:"api_key" yaml:"api_key" config:"secret"`
		BaseURL             string `json:"base_url" yaml:"base_url"`
		MaxTranscriptTokens int    `json:"max_transcript_tokens" yaml:"max_transcript_tokens"`
	} `json:"evaluator" yaml:"evaluator"`
	Store struct {
		Backend       string `json:"backend" yaml:"backend"`
		MongoURI      string `json:"mongo_uri" yaml:"mongo_uri" config:"secret"`
		MongoDatabase string `json:"mongo_database" yaml:"mongo_database"`
		SQLitePath    string `json:"sqlite_path" yaml:"sqlite_path"`
	} `json:"store" yaml:"store"`
	Redis struct {
		Addr string `json:"addr" yaml:"addr"`
	} `json:"redis" yaml:"redis"`
	Feedback struct {
		MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
	} `json:"feedback" yaml:"feedback"`
	Session struct {
		TTL          string `json:"ttl" yaml:"ttl"`
		ReapSchedule string `json:"reap_schedule" yaml:"reap_schedule"`
	} `json:"session" yaml:"session"`
	Telegram struct {
		Token  string `json:"token" yaml:"token" config:"secret"`
		ChatID int64  `json:"chat_id" yaml:"chat_id"`
	} `json:"telegram" yaml:"telegram"`
}

func defaults() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".intervoice"),
		LogLevel: "info",
	}
	cfg.HTTP.Listen = "127.0.0.1:8484"
	cfg.Vapi.BaseURL = "https://api.vapi.ai"
	cfg.Vapi.PromoteAcceptedShape = true
	cfg.Vapi.AttemptsPerSecond = 5
	cfg.Evaluator.Provider = "gemini"
	cfg.Evaluator.Model = "gemini-2.0-flash-001"
	cfg.Evaluator.MaxTranscriptTokens = 24000
	cfg.Store.Backend = "file"
	cfg.Store.MongoDatabase = "intervoice"
	cfg.Feedback.MaxConcurrent = 2
	cfg.Session.TTL = "1h"
	cfg.Session.ReapSchedule = "@every 5m"
	return cfg
}

func Load(path string) (*Config, error) {
	cfg, exists, err := readFile(path)
	if err != nil {
		return nil, err
	}
	// Write defaults on first use
	if !exists {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// readFile returns the defaults overlaid with the file at path, without
// environment overrides.
func readFile(path string) (*Config, bool, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := decode(path, data, cfg); err != nil {
		return nil, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, true, nil
}

// applyEnv overrides file values from the environment (highest precedence).
func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Vapi.ServerToken, "VAPI_SERVER_TOKEN")
	set(&cfg.Vapi.WebToken, "VAPI_WEB_TOKEN")
	set(&cfg.Vapi.WorkflowID, "VAPI_WORKFLOW_ID")
	set(&cfg.Vapi.InterviewerWorkflowID, "VAPI_INTERVIEWER_WORKFLOW_ID")
	set(&cfg.Vapi.BaseURL, "VAPI_BASE_URL")
	set(&cfg.Store.MongoURI, "MONGODB_URI")
	set(&cfg.Redis.Addr, "REDIS_ADDR")
	set(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")

	switch cfg.Evaluator.Provider {
	case "openai":
		set(&cfg.Evaluator.APIKey, "OPENAI_API_KEY")
		set(&cfg.Evaluator.BaseURL, "OPENAI_BASE_URL")
	default:
		set(&cfg.Evaluator.APIKey, "GOOGLE_GENERATIVE_AI_API_KEY")
	}
}

// SessionTTL parses session.ttl, falling back to one hour.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, v any) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func encode(path string, v any) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(v)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := encode(path, cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// GetValue returns the value stored for a dotted key in the config file at
// path. Keys missing from the file report their default.
func GetValue(path, key string) (any, error) {
	cfg, _, err := readFile(path)
	if err != nil {
		return nil, err
	}
	s, ok := lookup(cfg, key)
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return s.value.Interface(), nil
}

// SetValue parses value for the setting at key and writes the file back.
// check, if non-nil, sees the updated config first; a check error leaves
// the file untouched.
func SetValue(path, key, value string, check func(*Config) error) error {
	cfg, _, err := readFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	s, ok := lookup(cfg, key)
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := s.assign(value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if check != nil {
		if err := check(cfg); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return Save(path, cfg)
}
