package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cacheadapter "docvote/contexts/community-experience/document-voting/adapters/cache"
	"docvote/contexts/community-experience/document-voting/adapters/memory"
	mongoadapter "docvote/contexts/community-experience/document-voting/adapters/mongo"
	postgresadapter "docvote/contexts/community-experience/document-voting/adapters/postgres"
	redisadapter "docvote/contexts/community-experience/document-voting/adapters/redis"
	"docvote/contexts/community-experience/document-voting/ports"
	"docvote/internal/platform/config"
	"docvote/internal/platform/db"
)

// storage is the set of ports one backend satisfies. Outbox and Dedup are
// nil for backends that do not keep an outbox.
type storage struct {
	Documents ports.DocumentRepository
	Atomic    ports.VoteApplier
	Outbox    ports.OutboxWriter
	Relay     ports.OutboxRepository
	Dedup     ports.EventDedupStore
	ping      func(ctx context.Context) error
	close     func() error
}

func (s storage) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendPostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage{}, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if cfg.PostgresAutoMigrate {
			if err := repo.Migrate(ctx); err != nil {
				_ = pg.Close()
				return storage{}, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return storage{
			Documents: repo,
			Atomic:    repo,
			Outbox:    repo,
			Relay:     repo,
			Dedup:     repo,
			ping:      pg.Ping,
			close:     pg.Close,
		}, nil
	case config.StorageBackendMongo:
		mg, err := db.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return storage{}, err
		}
		repo := mongoadapter.NewRepository(mg.Database, logger)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = mg.Close()
			return storage{}, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return storage{
			Documents: repo,
			Atomic:    repo,
			ping:      mg.Ping,
			close:     mg.Close,
		}, nil
	case config.StorageBackendRedis:
		rd, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return storage{}, err
		}
		repo := redisadapter.NewRepository(rd.Client, logger)
		return storage{
			Documents: repo,
			Atomic:    repo,
			ping:      rd.Ping,
			close:     rd.Close,
		}, nil
	case config.StorageBackendMemory:
		store := memory.NewStore(nil)
		return storage{
			Documents: store,
			Atomic:    store,
			Outbox:    store,
			Relay:     store,
			Dedup:     store,
		}, nil
	default:
		return storage{}, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// withCache puts an expiring LRU in front of the document repository when
// size is positive.
func withCache(s storage, size int, ttl time.Duration) (storage, error) {
	if size <= 0 {
		return s, nil
	}
	cached, err := cacheadapter.NewRepository(s.Documents, size, ttl)
	if err != nil {
		return storage{}, fmt.Errorf("build document cache: %w", err)
	}
	s.Documents = cached
	s.Atomic = cached.Atomic()
	return s, nil
}
