// Package store selects the interview and feedback backend named in the
// configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/user/intervoice/internal/config"
	"github.com/user/intervoice/internal/state"
	"github.com/user/intervoice/internal/store/mongo"
	"github.com/user/intervoice/internal/store/sqlite"
	"github.com/user/intervoice/internal/types"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Open returns the configured backend. The caller closes it.
func Open(ctx context.Context, cfg *config.Config) (types.Store, error) {
	switch cfg.Store.Backend {
	case "", BackendFile:
		slog.Debug("using file store", "dir", cfg.DataDir)
		return state.NewStore(cfg.DataDir), nil
	case BackendSQLite:
		path := cfg.Store.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "intervoice.db")
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		slog.Debug("using sqlite store", "path", path)
		s, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMongo:
		if cfg.Store.MongoURI == "" {
			return nil, fmt.Errorf("store.mongo_uri (MONGODB_URI) is required for the mongo backend")
		}
		slog.Debug("using mongo store", "database", cfg.Store.MongoDatabase)
		s, err := mongo.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
}
