package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/intervoice/internal/feedback"
	"github.com/user/intervoice/internal/scheduler"
	"github.com/user/intervoice/internal/server"
	"github.com/user/intervoice/internal/session"
	"github.com/user/intervoice/internal/state"
	"github.com/user/intervoice/internal/store"
	"github.com/user/intervoice/internal/voice"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	initiator, err := newInitiator(cfg)
	if err != nil {
		return err
	}
	hub := voice.NewHub()
	voices := voice.NewRegistry(func() (*voice.Client, error) {
		return voice.NewClient(initiator, hub), nil
	})
	defer voices.Close()

	pipeline, closePipeline, err := newPipeline(ctx, cfg, st)
	if err != nil {
		return fmt.Errorf("create feedback pipeline: %w", err)
	}
	defer closePipeline()

	queue := feedback.NewQueue(int64(cfg.Feedback.MaxConcurrent), func(ctx context.Context, req feedback.Request) (*feedback.Result, error) {
		ctx, cancel := context.WithTimeout(ctx, feedbackTimeout)
		defer cancel()
		return pipeline.Generate(ctx, req)
	})
	// The queue outlives the signal context so sessions ended during
	// shutdown still get evaluated.
	queue.Start(context.Background())

	transcripts := state.NewTranscriptLog(cfg.DataDir)
	trigger := feedback.NewTrigger(queue)
	onFinish := func(m *session.Machine, snap session.Snapshot) {
		if err := transcripts.Append(context.WithoutCancel(ctx), snap.ID, snap.Transcript); err != nil {
			slog.Warn("archive transcript", "session_id", string(snap.ID), "error", err)
		}
		trigger.SessionFinished(m, snap)
	}

	resolver := &session.WorkflowResolver{
		GenerateWorkflow:    cfg.Vapi.WorkflowID,
		InterviewerWorkflow: cfg.Vapi.InterviewerWorkflowID,
		Interviews:          st,
	}
	sessions := session.NewManager(voices, resolver, onFinish)
	defer drainSessions(context.Background(), sessions, queue, shutdownGrace)

	ttl := cfg.SessionTTL()
	sched := scheduler.New(scheduler.Job{
		Name:     "session-reaper",
		Schedule: cfg.Session.ReapSchedule,
		Run: func() {
			sessions.Reap(ctx, time.Now().Add(-ttl))
		},
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	srv := server.New(server.Options{
		Initiator: initiator,
		Feedback:  pipeline,
		Sessions:  sessions,
		Hub:       hub,
		Store:     st,
		Public: server.PublicConfig{
			WebToken:              cfg.Vapi.WebToken,
			WorkflowID:            cfg.Vapi.WorkflowID,
			InterviewerWorkflowID: cfg.Vapi.InterviewerWorkflowID,
		},
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("intervoice started",
		"data_dir", cfg.DataDir,
		"store", cfg.Store.Backend,
		"evaluator", cfg.Evaluator.Provider,
		"model", cfg.Evaluator.Model,
		"shapes", initiator.Order(),
		"session_ttl", ttl,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	return nil
}

// drainSessions ends the sessions still open, waits up to grace for their
// evaluations and then stops the queue. Jobs still running are cancelled.
func drainSessions(ctx context.Context, sessions *session.Manager, queue *feedback.Queue, grace time.Duration) {
	sessions.Close(ctx)
	if !queue.WaitIdle(grace) {
		slog.Warn("feedback jobs still running at shutdown", "grace", grace)
	}
	queue.Stop()
}
