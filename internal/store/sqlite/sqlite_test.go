package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/store/storetest"
	"github.com/user/intervoice/internal/types"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) types.Store { return openMemory(t) })
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intervoice.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.PutInterview(ctx, &types.Interview{ID: "iv", UserID: "u", CreatedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetInterview(ctx, "iv")
	require.NoError(t, err)
	assert.Equal(t, types.UserID("u"), got.UserID)
}
