package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/ghitriage/internal/cache"
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/sqlite"
)

// OpenStore returns the token store selected by cfg and a func releasing it
func OpenStore(cfg model.SessionConfig) (cache.Cache, func() error, error) {
	noop := func() error { return nil }

	path := cfg.Path
	if path == "" {
		path = model.DefaultSessionPath()
	}

	switch cfg.Store {
	case "", "file":
		return cache.NewDiskCache(path, 0), noop, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create session dir: %w", err)
		}
		db, err := sqlite.New(path + ".db")
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db, 0), db.Close, nil
	case "memory":
		return cache.NewMemoryCache(0, time.Minute), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q (want file, sqlite or memory)", cfg.Store)
	}
}
