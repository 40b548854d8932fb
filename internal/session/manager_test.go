package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/types"
)

func TestManagerCreateGetList(t *testing.T) {
	mgr := NewManager(newFakeDialer(), staticResolver{workflow: "wf"}, nil)
	a := mgr.Create(Request{Kind: types.CallKindGenerate})
	time.Sleep(time.Millisecond)
	b := mgr.Create(Request{Kind: types.CallKindFeedback, InterviewID: "iv"})

	got, err := mgr.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = mgr.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	list := mgr.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID(), list[0].ID)
}

func TestManagerFinishHandler(t *testing.T) {
	d := newFakeDialer()
	var finished []*Machine
	mgr := NewManager(d, staticResolver{workflow: "wf"}, func(m *Machine, snap Snapshot) {
		finished = append(finished, m)
		assert.Equal(t, types.CallStatusFinished, snap.Status)
	})
	m := mgr.Create(Request{Kind: types.CallKindFeedback, InterviewID: "iv", UserID: "u"})
	require.NoError(t, m.Start(context.Background()))
	d.end("call-1")

	require.Len(t, finished, 1)
	assert.Same(t, m, finished[0])
}

func TestManagerReap(t *testing.T) {
	d := newFakeDialer()
	mgr := NewManager(d, staticResolver{workflow: "wf"}, nil)
	old := mgr.Create(Request{Kind: types.CallKindGenerate})
	require.NoError(t, old.Start(context.Background()))

	cutoff := time.Now().UTC().Add(time.Second)
	fresh := mgr.Create(Request{Kind: types.CallKindGenerate})
	fresh.mu.Lock()
	fresh.updatedAt = cutoff.Add(time.Minute)
	fresh.mu.Unlock()

	assert.Equal(t, 1, mgr.Reap(context.Background(), cutoff))
	_, err := mgr.Get(old.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, types.CallStatusFinished, old.Status())
	assert.Equal(t, int32(1), d.disconnects.Load())

	_, err = mgr.Get(fresh.ID())
	assert.NoError(t, err)
}

func TestManagerClose(t *testing.T) {
	d := newFakeDialer()
	mgr := NewManager(d, staticResolver{workflow: "wf"}, nil)
	m := mgr.Create(Request{Kind: types.CallKindGenerate})
	require.NoError(t, m.Start(context.Background()))
	mgr.Close(context.Background())
	assert.Equal(t, types.CallStatusFinished, m.Status())
}
