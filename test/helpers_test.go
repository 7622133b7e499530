//go:build integration

package test

import (
	"context"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/fintrackhq/authkit"
	"github.com/fintrackhq/authkit/memstore"
)

// newIntegrationEngine targets a real Redis when REDIS_ADDR is set and an
// embedded miniredis otherwise, so the same tests cover both.
func newIntegrationEngine(t *testing.T) *authkit.Engine {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		mr := miniredis.RunT(t)
		addr = mr.Addr()
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	t.Cleanup(func() { _ = client.Close() })

	cfg := authkit.DefaultConfig()
	cfg.Token.AccessSecret = []byte("integration-access-secret-0123456789")
	cfg.Token.RefreshSecret = []byte("integration-refresh-secret-0123456789")
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.Session.KeyPrefix = "ak:it:" + t.Name()

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(memstore.New()).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func createAndLogin(t *testing.T, engine *authkit.Engine, email string) authkit.TokenPair {
	t.Helper()
	ctx := context.Background()

	if _, err := engine.Register(ctx, "Load Tester", email, "hunter2hunter2"); err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	pair, err := engine.Login(ctx, email, "hunter2hunter2")
	if err != nil {
		t.Fatalf("Login %s: %v", email, err)
	}
	return pair
}
