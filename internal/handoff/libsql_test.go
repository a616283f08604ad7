package handoff_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/internal/handoff/handofftest"
)

func newLibSQL(t *testing.T, path string, opts ...handoff.Option) *handoff.LibSQL {
	t.Helper()
	store, err := handoff.NewLibSQL(context.Background(), "file:"+path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLibSQLStore(t *testing.T) {
	handofftest.RunStoreContract(t, func(t *testing.T, maxBytes int) handoff.Store {
		return newLibSQL(t, filepath.Join(t.TempDir(), "sessions.db"), handoff.WithMaxBytes(maxBytes))
	})
}

func TestLibSQLStore_ReopenKeepsSessions(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	first, err := handoff.NewLibSQL(ctx, "file:"+path)
	require.NoError(t, err)
	s := handoff.NewSession()
	require.NoError(t, first.Save(ctx, s))
	require.NoError(t, first.Close())

	// Migrations are idempotent across opens.
	second := newLibSQL(t, path)
	got, err := second.Load(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.NoError(t, second.Vacuum(ctx))
}
