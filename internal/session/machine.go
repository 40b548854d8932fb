// Package session drives one voice call from start to finish and collects
// its transcript. A Machine moves through idle, connecting, active and
// finished; provider events only count while it is active.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/internal/vapi"
	"github.com/user/intervoice/internal/voice"
)

// Dialer establishes provider calls. *voice.Client and *voice.Registry
// satisfy it.
type Dialer interface {
	Dial(ctx context.Context, workflowID string, vars map[string]any) (voice.Call, *vapi.Handle, error)
}

// Request describes the call a session places.
type Request struct {
	Kind        types.CallKind
	UserName    string
	UserID      types.UserID
	InterviewID types.InterviewID
	// FeedbackID, when set, makes feedback generation overwrite that record.
	FeedbackID types.FeedbackID
}

// FeedbackOutcome reports the evaluation triggered by a finished session.
type FeedbackOutcome struct {
	Status     string           `json:"status"`
	FeedbackID types.FeedbackID `json:"feedbackId,omitempty"`
	Redirect   string           `json:"redirect,omitempty"`
	Error      string           `json:"error,omitempty"`
}

const (
	FeedbackPending = "pending"
	FeedbackStored  = "stored"
	FeedbackFailed  = "failed"
)

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID          types.SessionID   `json:"id"`
	Kind        types.CallKind    `json:"type"`
	Status      types.CallStatus  `json:"status"`
	CallID      types.CallID      `json:"callId,omitempty"`
	WorkflowID  string            `json:"workflowId,omitempty"`
	UsedShape   string            `json:"usedShape,omitempty"`
	UserID      types.UserID      `json:"userId,omitempty"`
	InterviewID types.InterviewID `json:"interviewId,omitempty"`
	FeedbackID  types.FeedbackID  `json:"feedbackId,omitempty"`
	Latest      string            `json:"latest"`
	Transcript  []types.Utterance `json:"transcript"`
	Attempts    []vapi.Attempt    `json:"attempts,omitempty"`
	Error       string            `json:"error,omitempty"`
	Feedback    *FeedbackOutcome  `json:"feedback,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	FinishedAt  *time.Time        `json:"finishedAt,omitempty"`
	// Generation counts the calls placed by the session; it changes on
	// every start.
	Generation uint64 `json:"generation"`
}

// Machine is the state machine of one call session. All methods are safe
// for concurrent use.
type Machine struct {
	id         types.SessionID
	req        Request
	dialer     Dialer
	resolver   Resolver
	onFinished func(Snapshot)
	now        func() time.Time

	mu          sync.Mutex
	status      types.CallStatus
	gen         uint64
	call        voice.Call
	unsubs      []func()
	transcript  *Transcript
	workflowID  string
	usedShape   string
	attempts    []vapi.Attempt
	lastErr     string
	feedback    *FeedbackOutcome
	createdAt   time.Time
	updatedAt   time.Time
	finishedAt  time.Time
	watchers    map[int]chan Snapshot
	nextWatcher int
}

// NewMachine creates an idle session. onFinished, if non-nil, runs once per
// call that reaches finished from active, outside the machine lock.
func NewMachine(id types.SessionID, req Request, dialer Dialer, resolver Resolver, onFinished func(Snapshot)) *Machine {
	now := time.Now().UTC()
	return &Machine{
		id:         id,
		req:        req,
		dialer:     dialer,
		resolver:   resolver,
		onFinished: onFinished,
		now:        func() time.Time { return time.Now().UTC() },
		status:     types.CallStatusIdle,
		transcript: NewTranscript(),
		createdAt:  now,
		updatedAt:  now,
		watchers:   make(map[int]chan Snapshot),
	}
}

func (m *Machine) ID() types.SessionID { return m.id }

func (m *Machine) Request() Request { return m.req }

func (m *Machine) Status() types.CallStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start places the call. It is valid from idle and from finished; starting
// again resets the transcript. Any failure leaves the session finished.
func (m *Machine) Start(ctx context.Context) (err error) {
	m.mu.Lock()
	if m.status == types.CallStatusConnecting || m.status == types.CallStatusActive {
		status := m.status
		m.mu.Unlock()
		return fmt.Errorf("%w: start while %s", ErrInvalidTransition, status)
	}
	m.gen++
	gen := m.gen
	m.transcript = NewTranscript()
	m.call = nil
	m.workflowID = ""
	m.usedShape = ""
	m.attempts = nil
	m.lastErr = ""
	m.feedback = nil
	m.finishedAt = time.Time{}
	m.setStatusLocked(types.CallStatusConnecting)
	m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start call: panic: %v", r)
			m.fail(gen, err)
		}
	}()

	workflowID, vars, err := m.resolver.Resolve(ctx, m.req)
	if err != nil {
		m.fail(gen, err)
		return fmt.Errorf("resolve workflow: %w", err)
	}
	m.mu.Lock()
	if m.gen == gen {
		m.workflowID = workflowID
	}
	m.mu.Unlock()

	call, handle, err := m.dialer.Dial(ctx, workflowID, vars)
	if err != nil {
		m.fail(gen, err)
		return fmt.Errorf("start call: %w", err)
	}
	if call == nil {
		err = errors.New("start call: dialer returned no call")
		m.fail(gen, err)
		return err
	}

	if !m.activate(gen, call, handle) {
		slog.Warn("call established after session ended, hanging up",
			"session_id", string(m.id), "call_id", string(call.ID()))
		hangUp(ctx, m.id, call, nil)
		return ErrStale
	}

	slog.Info("call active", "session_id", string(m.id), "call_id", string(call.ID()),
		"workflow_id", workflowID, "shape", m.Snapshot().UsedShape)
	return nil
}

// activate binds call to a connecting session of generation gen and marks
// it active. A panic from the adapter unwinds with the lock released.
func (m *Machine) activate(gen uint64, call voice.Call, handle *vapi.Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.status != types.CallStatusConnecting {
		return false
	}
	m.call = call
	if handle != nil {
		m.usedShape = handle.UsedShape
		m.attempts = handle.Attempts
	}
	m.unsubs = append(m.unsubs, call.OnMessage(func(u types.Utterance) { m.deliver(gen, u) }))
	m.unsubs = append(m.unsubs, call.OnFinish(func() { m.finish(gen, "provider") }))
	m.setStatusLocked(types.CallStatusActive)
	return true
}

func hangUp(ctx context.Context, id types.SessionID, call voice.Call, unsubs []func()) {
	for _, fn := range unsubs {
		fn()
	}
	if call == nil {
		return
	}
	if err := call.Disconnect(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("hang up call", "session_id", string(id), "error", err)
	}
}

// HandleMessage appends u when the session is active and reports whether it
// was accepted. Messages in any other state are ignored.
func (m *Machine) HandleMessage(u types.Utterance) bool {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	return m.deliver(gen, u)
}

// HandleFinish ends an active session as if the provider had reported the
// end of the call. It reports whether a transition happened.
func (m *Machine) HandleFinish() bool {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	return m.finish(gen, "relay")
}

// Disconnect ends the session regardless of its state and hangs up the
// call if one was established.
func (m *Machine) Disconnect(ctx context.Context) {
	m.mu.Lock()
	if m.status == types.CallStatusFinished {
		m.mu.Unlock()
		return
	}
	wasActive := m.status == types.CallStatusActive
	call := m.call
	unsubs := m.unsubs
	m.unsubs = nil
	m.finishedAt = m.now()
	m.setStatusLocked(types.CallStatusFinished)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	hangUp(ctx, m.id, call, unsubs)
	slog.Info("session disconnected", "session_id", string(m.id), "was_active", wasActive)
	if wasActive && m.onFinished != nil {
		m.onFinished(snap)
	}
}

// SetFeedback records the outcome of the evaluation started by call
// generation gen. Outcomes for a call that has since been replaced by a
// restart are dropped; the result reports whether out was recorded.
func (m *Machine) SetFeedback(gen uint64, out FeedbackOutcome) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		slog.Debug("stale feedback outcome ignored", "session_id", string(m.id),
			"generation", gen, "current", m.gen)
		return false
	}
	m.feedback = &out
	m.touchLocked()
	return true
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Watch streams snapshots after every change. Slow readers only see the
// latest snapshot. The returned function stops the stream.
func (m *Machine) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	m.mu.Lock()
	key := m.nextWatcher
	m.nextWatcher++
	m.watchers[key] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, key)
			m.mu.Unlock()
		})
	}
}

// lastActivity is the time of the most recent change.
func (m *Machine) lastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatedAt
}

func (m *Machine) deliver(gen uint64, u types.Utterance) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.status != types.CallStatusActive {
		slog.Debug("message ignored", "session_id", string(m.id), "status", string(m.status))
		return false
	}
	m.transcript.Append(u)
	m.touchLocked()
	return true
}

func (m *Machine) finish(gen uint64, source string) bool {
	m.mu.Lock()
	if gen != m.gen || m.status != types.CallStatusActive {
		m.mu.Unlock()
		return false
	}
	unsubs := m.unsubs
	m.unsubs = nil
	m.finishedAt = m.now()
	m.setStatusLocked(types.CallStatusFinished)
	snap := m.snapshotLocked()
	m.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	slog.Info("call finished", "session_id", string(m.id), "source", source,
		"utterances", len(snap.Transcript))
	if m.onFinished != nil {
		m.onFinished(snap)
	}
	return true
}

func (m *Machine) fail(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen || m.status != types.CallStatusConnecting {
		m.mu.Unlock()
		return
	}
	m.lastErr = err.Error()
	var negErr *vapi.NegotiationError
	if errors.As(err, &negErr) {
		m.attempts = negErr.Attempts
	}
	call, unsubs := m.call, m.unsubs
	m.unsubs = nil
	m.finishedAt = m.now()
	m.setStatusLocked(types.CallStatusFinished)
	m.mu.Unlock()

	slog.Error("call start failed", "session_id", string(m.id), "error", err)
	hangUp(context.Background(), m.id, call, unsubs)
}

func (m *Machine) setStatusLocked(s types.CallStatus) {
	m.status = s
	m.touchLocked()
}

func (m *Machine) touchLocked() {
	m.updatedAt = m.now()
	if len(m.watchers) == 0 {
		return
	}
	snap := m.snapshotLocked()
	for _, ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:          m.id,
		Kind:        m.req.Kind,
		Status:      m.status,
		WorkflowID:  m.workflowID,
		UsedShape:   m.usedShape,
		UserID:      m.req.UserID,
		InterviewID: m.req.InterviewID,
		FeedbackID:  m.req.FeedbackID,
		Latest:      m.transcript.Latest(),
		Transcript:  m.transcript.Utterances(),
		Attempts:    m.attempts,
		Error:       m.lastErr,
		CreatedAt:   m.createdAt,
		UpdatedAt:   m.updatedAt,
		Generation:  m.gen,
	}
	if m.call != nil {
		s.CallID = m.call.ID()
	}
	if m.feedback != nil {
		fb := *m.feedback
		s.Feedback = &fb
	}
	if !m.finishedAt.IsZero() {
		t := m.finishedAt
		s.FinishedAt = &t
	}
	return s
}
