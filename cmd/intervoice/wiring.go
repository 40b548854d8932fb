package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/intervoice/internal/config"
	"github.com/user/intervoice/internal/feedback"
	"github.com/user/intervoice/internal/guard"
	"github.com/user/intervoice/internal/notify"
	"github.com/user/intervoice/internal/prompt"
	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/internal/vapi"
	"github.com/user/intervoice/pkg/llm"
	"github.com/user/intervoice/pkg/llm/gemini"
	"github.com/user/intervoice/pkg/llm/openai"
)

// feedbackTimeout bounds one evaluation run and its guard lease.
const feedbackTimeout = 2 * time.Minute

// shutdownGrace is how long serve waits for queued evaluations on exit.
const shutdownGrace = 30 * time.Second

func newInitiator(cfg *config.Config) (*vapi.Initiator, error) {
	shapes, err := vapi.Shapes(cfg.Vapi.ShapeOrder)
	if err != nil {
		return nil, fmt.Errorf("vapi.shape_order: %w", err)
	}
	return vapi.New(cfg.Vapi.BaseURL, cfg.Vapi.ServerToken,
		vapi.WithShapes(shapes),
		vapi.WithAttemptRate(cfg.Vapi.AttemptsPerSecond),
		vapi.WithPromoteAccepted(cfg.Vapi.PromoteAcceptedShape),
	), nil
}

func newEvaluator(ctx context.Context, cfg *config.Config) (llm.ObjectGenerator, error) {
	lc := &llm.Config{
		BaseURL: cfg.Evaluator.BaseURL,
		APIKey:  cfg.Evaluator.APIKey,
		Model:   cfg.Evaluator.Model,
	}
	switch cfg.Evaluator.Provider {
	case "", "gemini":
		client, err := gemini.New(ctx, lc)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		return openai.New(lc), nil
	}
	return nil, fmt.Errorf("unknown evaluator provider: %q", cfg.Evaluator.Provider)
}

func newPromptEngine(cfg *config.Config) (*prompt.Engine, error) {
	counter, err := prompt.NewTiktokenCounter(cfg.Evaluator.Model)
	if err != nil {
		return nil, fmt.Errorf("create token counter: %w", err)
	}
	return prompt.New(counter, cfg.Evaluator.MaxTranscriptTokens)
}

// newGuard returns the Redis guard when redis.addr is set. The returned
// function releases the connection.
func newGuard(ctx context.Context, cfg *config.Config) (guard.Guard, func(), error) {
	if cfg.Redis.Addr == "" {
		return guard.NewMemory(), func() {}, nil
	}
	rdb, err := guard.Dial(ctx, cfg.Redis.Addr, "")
	if err != nil {
		return nil, nil, err
	}
	slog.Info("feedback guard uses redis", "addr", cfg.Redis.Addr)
	return guard.NewRedis(rdb, guard.DefaultPrefix), func() { _ = rdb.Close() }, nil
}

func newNotifier(cfg *config.Config) (*notify.Registry, error) {
	reg := notify.NewRegistry()
	if cfg.Telegram.Token == "" {
		slog.Debug("telegram notifications disabled (no token)")
		return reg, nil
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, "http://"+cfg.HTTP.Listen)
	if err != nil {
		return nil, fmt.Errorf("create telegram notifier: %w", err)
	}
	reg.Register("telegram", tg.Notify)
	return reg, nil
}

// newPipeline assembles the evaluator, prompt budget, guard and notifier.
func newPipeline(ctx context.Context, cfg *config.Config, store types.FeedbackStore) (*feedback.Pipeline, func(), error) {
	gen, err := newEvaluator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	engine, err := newPromptEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	g, closeGuard, err := newGuard(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	notifier, err := newNotifier(cfg)
	if err != nil {
		closeGuard()
		return nil, nil, err
	}
	p := feedback.NewPipeline(gen, store, engine,
		feedback.WithGuard(g, feedbackTimeout),
		feedback.WithNotifier(notifier),
	)
	return p, closeGuard, nil
}
