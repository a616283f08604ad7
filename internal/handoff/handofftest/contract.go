// Package handofftest holds the behavior every handoff.Store must share.
package handofftest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/reqbot/internal/handoff"
	"github.com/rendis/reqbot/pkg/schema"
)

func sampleSession() *handoff.Session {
	s := handoff.NewSession()
	s.AddMessage(schema.RoleUser, "I need a booking system")
	s.AddMessage(schema.RoleAI, "Who will use it?")
	s.Requirements = []schema.Requirement{{
		ID:              "FR-1",
		Type:            schema.RequirementFunctional,
		Description:     "Users can book a room",
		Priority:        schema.PriorityHigh,
		ConfidenceScore: 0.9,
	}}
	return s
}

// RunStoreContract runs the shared suite against a store limited to
// maxBytes per session.
func RunStoreContract(t *testing.T, newStore func(t *testing.T, maxBytes int) handoff.Store) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		s := sampleSession()
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Load(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		require.Len(t, got.Messages, 2)
		assert.Equal(t, schema.RoleAI, got.Messages[1].Role)
		assert.Equal(t, "Who will use it?", got.Messages[1].Text)
		require.Len(t, got.Requirements, 1)
		assert.Equal(t, s.Requirements[0], got.Requirements[0])
		assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
		assert.Equal(t, s.Transcript(), got.Transcript())
	})

	t.Run("Save Replaces", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		s := sampleSession()
		require.NoError(t, store.Save(ctx, s))

		s.AddMessage(schema.RoleUser, "Staff and guests")
		require.NoError(t, store.Save(ctx, s))

		got, err := store.Load(ctx, s.ID)
		require.NoError(t, err)
		assert.Len(t, got.Messages, 3)

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{s.ID}, ids)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		_, err := store.Load(ctx, "missing")
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		s := sampleSession()
		require.NoError(t, store.Save(ctx, s))
		require.NoError(t, store.Delete(ctx, s.ID))

		_, err := store.Load(ctx, s.ID)
		assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))

		err = store.Delete(ctx, s.ID)
		assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, ids)

		a, b := sampleSession(), sampleSession()
		require.NoError(t, store.Save(ctx, a))
		require.NoError(t, store.Save(ctx, b))

		ids, err = store.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
		assert.IsNonDecreasing(t, ids)
	})

	t.Run("Purge", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		s := sampleSession()
		require.NoError(t, store.Save(ctx, s))

		n, err := store.Purge(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = store.Purge(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = store.Load(ctx, s.ID)
		assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	})

	t.Run("Size Limit", func(t *testing.T) {
		store := newStore(t, 512)
		s := sampleSession()
		s.AddMessage(schema.RoleUser, strings.Repeat("x", 1024))

		err := store.Save(ctx, s)
		require.Error(t, err)
		assert.True(t, schema.IsCode(err, schema.ErrCodeStorage))

		_, err = store.Load(ctx, s.ID)
		assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
	})

	t.Run("Missing ID", func(t *testing.T) {
		store := newStore(t, handoff.DefaultMaxBytes)
		err := store.Save(ctx, &handoff.Session{})
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	})
}
