package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/bizportal/internal/client/config"
	"github.com/dmitrijs2005/bizportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bizportal/internal/filex"
)

const (
	databaseFile = "portal.db"
	redisHash    = "portal:session"
)

// openRepository opens the credential storage selected by cfg. The returned
// closer releases the underlying connection.
func openRepository(ctx context.Context, cfg *config.Config) (metadata.Repository, func() error, error) {
	var (
		repo   metadata.Repository
		closer = func() error { return nil }
	)

	switch cfg.StorageBackend {
	case config.StorageMemory:
		repo = metadata.NewMemoryRepository()

	case config.StorageRedis:
		rdb, err := metadata.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		repo = metadata.NewRedisRepository(rdb, redisHash)
		closer = rdb.Close

	case config.StorageSQLite:
		dir, err := filex.EnsureDir(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		db, err := metadata.InitDatabase(ctx, filepath.Join(dir, databaseFile))
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing database: %w", err)
		}
		repo = metadata.NewSQLiteRepository(db)
		closer = db.Close

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	if cfg.StorageKey != "" {
		sealed, err := metadata.NewSealedRepository(ctx, repo, []byte(cfg.StorageKey))
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		repo = sealed
	}

	return repo, closer, nil
}
