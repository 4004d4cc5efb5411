package repositories

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vodgate/internal/core/domain"
	"vodgate/internal/infrastructure/repositories/memory"
	"vodgate/pkg/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const seedDoc = `
users:
  - id: user-1
    displayName: Ada
  - id: user-2
    displayName: Grace
    disabled: true
contents:
  - id: video-1
    kind: video
    status: Published
    requiredRole: gold
    expiredAt:
      gold: "2024-01-08T00:00"
      platinum: "2024-01-05T00:00"
      diamond: "2024-01-01T00:00"
credentials:
  - contentId: video-1
    kind: video
    url: https://cdn.example.com/video-1/master.m3u8
`

func TestApplySeed_StoresRecordsAndWarnsOnInversion(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core).Sugar()

	contents := memory.NewMemoryContentRepository()
	users := memory.NewMemoryUserRepository()

	seed, err := ParseSeed([]byte(seedDoc))
	require.NoError(t, err)
	require.NoError(t, Apply(context.Background(), seed, contents, users, logger))

	item, err := contents.GetContent(context.Background(), domain.KindVideo, "video-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGold, item.RequiredRole)

	user, err := users.GetUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.True(t, user.Disabled)

	_, err = contents.GetCredential(context.Background(), domain.KindVideo, "video-1")
	require.NoError(t, err)

	// stored as written, reported once for each inverted pair
	assert.NotNil(t, item.ExpiredAt[domain.RoleDiamond])
	assert.Equal(t, 2, logs.FilterMessage("expiration map is not monotonic").Len())
}

func TestParseSeed_RejectsUnknownFields(t *testing.T) {
	_, err := ParseSeed([]byte("videos: []\n"))
	assert.Error(t, err)
}

func TestLoadSeedFile_InvalidItem(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	doc := `
contents:
  - id: video-1
    kind: video
    status: Streaming
    requiredRole: diamond
    expiredAt:
      diamond: ""
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	err := LoadSeedFile(context.Background(), path,
		memory.NewMemoryContentRepository(), memory.NewMemoryUserRepository(),
		zaptest.NewLogger(t).Sugar())
	assert.ErrorIs(t, err, domain.ErrInvalidContent)
}

func TestRepositoryFactory_Memory(t *testing.T) {
	cfg := config.DefaultConfig()
	f, err := NewRepositoryFactory(cfg, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "memory", f.Driver())
	assert.Equal(t, "closed", f.BreakerState())
	assert.NoError(t, f.Ping(context.Background()))

	_, err = f.CreateContentRepository().GetContent(context.Background(), domain.KindVideo, "nope")
	assert.ErrorIs(t, err, domain.ErrContentNotFound)
}

func TestRepositoryFactory_SQLite(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "sqlite"
	cfg.Store.DSN = ":memory:"

	f, err := NewRepositoryFactory(cfg, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer f.Close()

	seed, err := ParseSeed([]byte(seedDoc))
	require.NoError(t, err)
	require.NoError(t, Apply(context.Background(), seed, f.CreateContentRepository(), f.CreateUserRepository(), zaptest.NewLogger(t).Sugar()))

	cred, err := f.CreateContentRepository().GetCredential(context.Background(), domain.KindVideo, "video-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/video-1/master.m3u8", cred.URL)
}

func TestRepositoryFactory_RedisUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "redis"
	cfg.Store.Redis.Address = "127.0.0.1:1"

	_, err := NewRepositoryFactory(cfg, nil, zaptest.NewLogger(t).Sugar())
	assert.Error(t, err)
}

func TestRepositoryFactory_RedisSeedUnderLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultConfig()
	cfg.Store.Driver = "redis"
	cfg.Store.Redis.Address = mr.Addr()

	f, err := NewRepositoryFactory(cfg, nil, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer f.Close()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedDoc), 0o600))

	require.NoError(t, f.Seed(context.Background(), path))
	assert.False(t, mr.Exists(seedLockKey), "lock released after seeding")

	user, err := f.CreateUserRepository().GetUser(context.Background(), "user-2")
	require.NoError(t, err)
	assert.True(t, user.Disabled)
}
