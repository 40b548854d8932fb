// Package voice adapts the voice provider to the fixed Call interface the
// session state machine works against. Provider events reach a Call through
// the Hub, which the provider webhook feeds.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/internal/vapi"
)

// Call is the session's view of an established provider call.
type Call interface {
	ID() types.CallID
	OnMessage(fn func(types.Utterance)) (unsubscribe func())
	OnFinish(fn func()) (unsubscribe func())
	Disconnect(ctx context.Context) error
}

// Initiator creates a provider call; *vapi.Initiator satisfies it.
type Initiator interface {
	Initiate(ctx context.Context, workflowID string, vars map[string]any) (*vapi.Handle, error)
}

// Client starts calls and binds them to the hub.
type Client struct {
	initiator  Initiator
	hub        *Hub
	httpClient *http.Client
}

func NewClient(initiator Initiator, hub *Hub) *Client {
	return &Client{
		initiator:  initiator,
		hub:        hub,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Dial initiates a call and returns it together with the negotiation handle.
func (c *Client) Dial(ctx context.Context, workflowID string, vars map[string]any) (Call, *vapi.Handle, error) {
	handle, err := c.initiator.Initiate(ctx, workflowID, vars)
	if err != nil {
		return nil, nil, err
	}
	return &call{
		id:         types.CallID(handle.CallID),
		hub:        c.hub,
		controlURL: controlURL(handle.Call),
		httpClient: c.httpClient,
	}, handle, nil
}

type call struct {
	id         types.CallID
	hub        *Hub
	controlURL string
	httpClient *http.Client
}

func (c *call) ID() types.CallID { return c.id }

func (c *call) OnMessage(fn func(types.Utterance)) func() {
	if c.id == "" {
		return func() {}
	}
	return c.hub.Subscribe(c.id, func(ev Event) {
		if ev.Kind == EventMessage {
			fn(ev.Utterance)
		}
	})
}

func (c *call) OnFinish(fn func()) func() {
	if c.id == "" {
		return func() {}
	}
	return c.hub.Subscribe(c.id, func(ev Event) {
		if ev.Kind == EventFinish {
			fn()
		}
	})
}

// Disconnect asks the provider to end the call through its control URL.
// Calls without a control URL are left to end on their own.
func (c *call) Disconnect(ctx context.Context) error {
	if c.controlURL == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{"type": "end-call"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.controlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create end-call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send end-call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("end-call rejected (status %d)", resp.StatusCode)
	}
	return nil
}

func controlURL(raw json.RawMessage) string {
	var partial struct {
		Monitor struct {
			ControlURL string `json:"controlUrl"`
		} `json:"monitor"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return ""
	}
	return partial.Monitor.ControlURL
}
