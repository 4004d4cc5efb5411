package repositories

import (
	"context"
	"fmt"
	"time"

	"vodgate/internal/core/ports"
	"vodgate/internal/infrastructure/reliability"
	"vodgate/internal/infrastructure/repositories/memory"
	redisrepo "vodgate/internal/infrastructure/repositories/redis"
	sqlrepo "vodgate/internal/infrastructure/repositories/sql"
	"vodgate/pkg/config"
	"vodgate/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryFactory opens the configured store and hands out guarded
// repositories for it.
type RepositoryFactory struct {
	driver      string
	redisClient *redis.Client
	db          *gorm.DB
	content     ports.ContentRepository
	users       ports.UserRepository
	health      ports.HealthChecker
	guard       *reliability.StoreGuard
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory connects to the store selected by store.driver.
// Unlike a cache, the store cannot be replaced by an empty in-memory one,
// so a connection failure is returned rather than papered over.
func NewRepositoryFactory(cfg *config.Config, metrics ports.MetricsRecorder, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	f := &RepositoryFactory{
		driver: cfg.Store.Driver,
		logger: logger,
	}

	switch cfg.Store.Driver {
	case "memory":
		content := memory.NewMemoryContentRepository()
		f.content = content
		f.health = content
		f.users = memory.NewMemoryUserRepository()
		logger.Info("using memory repositories")

	case "redis":
		client, err := redisrepo.NewRedisClient(
			cfg.Store.Redis.Address,
			cfg.Store.Redis.Password,
			cfg.Store.Redis.DB,
			cfg.Store.Redis.PoolSize,
			logger,
		)
		if err != nil {
			return nil, err
		}
		content := redisrepo.NewRedisContentRepository(client)
		f.redisClient = client
		f.content = content
		f.health = content
		f.users = redisrepo.NewRedisUserRepository(client)
		logger.Info("using Redis repositories")

	case "sqlite", "postgres":
		db, err := sqlrepo.Open(cfg.Store.Driver, cfg.Store.DSN, logger)
		if err != nil {
			return nil, err
		}
		content := sqlrepo.NewSQLContentRepository(db)
		f.db = db
		f.content = content
		f.health = content
		f.users = sqlrepo.NewSQLUserRepository(db)
		logger.Infow("using SQL repositories", "driver", cfg.Store.Driver)

	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	f.guard = reliability.NewStoreGuard(cfg.Store.Driver, reliability.BreakerConfig{
		Enabled:          cfg.Store.Breaker.Enabled,
		FailureThreshold: cfg.Store.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Store.Breaker.OpenTimeout,
	}, metrics, logger)

	return f, nil
}

// CreateContentRepository returns the guarded content repository
func (f *RepositoryFactory) CreateContentRepository() ports.ContentRepository {
	return f.guard.Content(f.content)
}

// CreateUserRepository returns the guarded user repository
func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	return f.guard.Users(f.users)
}

const seedLockKey = "vodgate:lock:seed"

// Seed loads a seed file into the guarded repositories. On a shared Redis
// store the load runs under a distributed lock so replicas starting
// together do not interleave their writes.
func (f *RepositoryFactory) Seed(ctx context.Context, path string) error {
	load := func(ctx context.Context) error {
		return LoadSeedFile(ctx, path, f.CreateContentRepository(), f.CreateUserRepository(), f.logger)
	}
	if f.redisClient == nil {
		return load(ctx)
	}
	lock := distributed.NewLock(f.redisClient, seedLockKey, 30*time.Second)
	return lock.WithLock(ctx, time.Minute, load)
}

// Driver names the backing store.
func (f *RepositoryFactory) Driver() string {
	return f.driver
}

// BreakerState reports the store circuit breaker state.
func (f *RepositoryFactory) BreakerState() string {
	return f.guard.State()
}

// Close closes the store connection if any
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	if f.db != nil {
		return sqlrepo.Close(f.db)
	}
	return nil
}

// Ping checks store connectivity.
func (f *RepositoryFactory) Ping(ctx context.Context) error {
	return f.health.Ping(ctx)
}
