package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/bidhub/internal/accounts"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/config"
	"github.com/kiranshivaraju/bidhub/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Driver = config.DriverMemory
	cfg.RateLimit.RequestsPerMinute = 60
	cfg.Stats.TTL = time.Minute
	return cfg
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

// ─── dependency wiring ──────────────────────────────────────────────────────

func TestOpenStore_Memory(t *testing.T) {
	st, closeFn, err := openStore(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &memstore.Store{}, st)
	assert.NoError(t, st.Ping(context.Background()))
}

func TestOpenCache_FallsBackToMemory(t *testing.T) {
	ca, closeFn, err := openCache(context.Background(), memoryConfig())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &cache.MemoryCache{}, ca)
}

func TestOpenCache_InvalidURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.URL = "://nope"

	_, _, err := openCache(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create redis cache")
}

func TestBootstrapAdmin_Idempotent(t *testing.T) {
	acct := accounts.NewService(memstore.New()).WithHashCost(bcrypt.MinCost)
	ctx := context.Background()

	require.NoError(t, bootstrapAdmin(ctx, acct, "ops@bidhub.test"))
	require.NoError(t, bootstrapAdmin(ctx, acct, "ops@bidhub.test"))
}

func TestNewRouter_ServesHealth(t *testing.T) {
	cfg := memoryConfig()
	st := memstore.New()
	router := newRouter(st, cache.NewMemoryCache(), accounts.NewService(st), cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "ok", body.Data.Status)
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
