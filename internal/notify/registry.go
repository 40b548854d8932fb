// Package notify fans "feedback ready" notices out to delivery channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/user/intervoice/internal/types"
)

// Handler delivers a notice about a stored feedback record.
type Handler func(ctx context.Context, rec *types.FeedbackRecord) error

// Registry holds the delivery handlers by channel name.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds or replaces the handler for a channel.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Names lists the registered channels in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeedbackReady calls every handler. A failing channel does not stop the
// others; all failures are returned joined.
func (r *Registry) FeedbackReady(ctx context.Context, rec *types.FeedbackRecord) error {
	r.mu.RLock()
	handlers := make(map[string]Handler, len(r.handlers))
	for name, h := range r.handlers {
		handlers[name] = h
	}
	r.mu.RUnlock()

	var errs []error
	for name, h := range handlers {
		if err := h(ctx, rec); err != nil {
			slog.Warn("feedback notice failed", "channel", name, "feedback", rec.ID, "error", err)
			errs = append(errs, fmt.Errorf("deliver %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
