package user

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"bookcatalog/internal/platform/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_CreateAndGet(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.Open(ctx, postgres.Options{DSN: dsn, MaxConns: 2})
	if err != nil {
		t.Skipf("Skipping test: database not available: %v", err)
	}
	defer pool.Close()
	require.NoError(t, postgres.ApplySchema(ctx, pool))

	repo := NewPostgresRepo(pool, 5*time.Second)
	email := fmt.Sprintf("user-%d@example.com", time.Now().UnixNano())

	u := &User{Email: email, PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	t.Cleanup(func() { _, _ = pool.Exec(ctx, "DELETE FROM users WHERE id = $1", u.ID) })

	got, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	assert.ErrorIs(t, repo.Create(ctx, &User{Email: email, PasswordHash: "x"}), ErrAlreadyExists)

	_, err = repo.GetByEmail(ctx, "missing-"+email)
	assert.ErrorIs(t, err, ErrNotFound)
}
