package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/intervoice/internal/config"
	"github.com/user/intervoice/internal/state"
	"github.com/user/intervoice/internal/types"
)

func TestOpenFile(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &state.Store{}, s)
}

func TestOpenSQLiteDefaultPath(t *testing.T) {
	cfg := &config.Config{DataDir: t.TempDir()}
	cfg.Store.Backend = BackendSQLite
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutInterview(context.Background(), &types.Interview{ID: "iv", UserID: "u"}))
	_, err = os.Stat(filepath.Join(cfg.DataDir, "intervoice.db"))
	assert.NoError(t, err)
}

func TestOpenMongoNeedsURI(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Backend = BackendMongo
	_, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "mongo_uri")
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Backend = "cassandra"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
