package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetaStore(t *testing.T) *MetaStore {
	t.Helper()
	m, err := NewMetaStore(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMetaStoreDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown document reports absent", func(t *testing.T) {
		m := newTestMetaStore(t)
		_, ok, err := m.Document(ctx, "objects/1.json")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("batch upsert persists and replays cleanly", func(t *testing.T) {
		m := newTestMetaStore(t)
		batch := []DocumentState{
			{Path: "objects/1.json", DocID: "1", Hash: "aaa", ChunkCount: 3},
			{Path: "objects/2.json", DocID: "2", Hash: "bbb", ChunkCount: 1},
		}

		require.NoError(t, m.UpsertDocuments(ctx, batch))
		require.NoError(t, m.UpsertDocuments(ctx, batch))

		state, ok, err := m.Document(ctx, "objects/1.json")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1", state.DocID)
		assert.Equal(t, "aaa", state.Hash)
		assert.Equal(t, 3, state.ChunkCount)

		n, err := m.DocumentCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("upsert overwrites hash and chunk count", func(t *testing.T) {
		m := newTestMetaStore(t)
		require.NoError(t, m.UpsertDocuments(ctx, []DocumentState{
			{Path: "objects/1.json", DocID: "1", Hash: "aaa", ChunkCount: 5},
		}))
		require.NoError(t, m.UpsertDocuments(ctx, []DocumentState{
			{Path: "objects/1.json", DocID: "1", Hash: "ccc", ChunkCount: 2},
		}))

		state, ok, err := m.Document(ctx, "objects/1.json")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "ccc", state.Hash)
		assert.Equal(t, 2, state.ChunkCount)
	})
}

func TestMetaStoreRevisions(t *testing.T) {
	ctx := context.Background()

	t.Run("no marker before first run", func(t *testing.T) {
		m := newTestMetaStore(t)
		marker, err := m.CurrentRevision(ctx)
		require.NoError(t, err)
		assert.Empty(t, marker)
	})

	t.Run("latest recorded marker wins", func(t *testing.T) {
		m := newTestMetaStore(t)
		require.NoError(t, m.RecordRevision(ctx, "rev-1"))
		require.NoError(t, m.RecordRevision(ctx, "rev-2"))

		marker, err := m.CurrentRevision(ctx)
		require.NoError(t, err)
		assert.Equal(t, "rev-2", marker)
	})
}
