package voice

import (
	"context"
	"errors"
	"sync"

	"github.com/user/intervoice/internal/vapi"
)

// ErrClosed is returned by Registry.Client after Close.
var ErrClosed = errors.New("voice registry closed")

// Registry holds the process-wide voice client. The client is built on the
// first call to Client and never rebuilt; Close releases it and makes
// further calls fail.
type Registry struct {
	build func() (*Client, error)

	mu     sync.Mutex
	client *Client
	closed bool
}

func NewRegistry(build func() (*Client, error)) *Registry {
	return &Registry{build: build}
}

func (r *Registry) Client() (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.client != nil {
		return r.client, nil
	}
	c, err := r.build()
	if err != nil {
		// Construction errors are not cached.
		return nil, err
	}
	r.client = c
	return c, nil
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = nil
	r.closed = true
}

// Dial starts a call on the process-wide client, building it on first use.
func (r *Registry) Dial(ctx context.Context, workflowID string, vars map[string]any) (Call, *vapi.Handle, error) {
	c, err := r.Client()
	if err != nil {
		return nil, nil, err
	}
	return c.Dial(ctx, workflowID, vars)
}
