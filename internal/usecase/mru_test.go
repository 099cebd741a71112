package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/state"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMRUListCapacity(t *testing.T) {
	m := NewMRUList(MRUCapacity)
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		m.Push(id)
	}
	assert.Equal(t, []string{"f", "e", "d", "c", "b"}, m.Items())
}

func TestMRUListMovesExistingToFront(t *testing.T) {
	m := NewMRUList(MRUCapacity)
	for _, id := range []string{"a", "b", "c", "a", ""} {
		m.Push(id)
	}
	assert.Equal(t, []string{"a", "c", "b"}, m.Items())
}

func TestMRUListRemove(t *testing.T) {
	ctx := context.Background()
	st := newMemoryState()

	m := NewMRUList(MRUCapacity)
	for _, id := range []string{"a", "b", "c"} {
		m.Push(id)
	}
	require.NoError(t, m.Save(ctx, st))

	assert.True(t, m.Remove("b"))
	assert.False(t, m.Remove("b"))
	assert.False(t, m.Remove("zzz"))
	assert.Equal(t, []string{"c", "a"}, m.Items())

	// the removal is unsaved, so a restore must not bring "b" back
	require.NoError(t, m.Restore(ctx, st))
	assert.Equal(t, []string{"c", "a"}, m.Items())
}

func TestMRUListRestoreDeduplicates(t *testing.T) {
	ctx := context.Background()
	st := newMemoryState()
	require.NoError(t, st.Put(ctx, mruStateKey, []byte(`["a","b","a","","c","b","d","e","f"]`)))

	m := NewMRUList(MRUCapacity)
	require.NoError(t, m.Restore(ctx, st))
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, m.Items())

	m.Push("c")
	assert.Equal(t, []string{"c", "a", "b", "d", "e"}, m.Items())
}

func TestMRUListSaveRestore(t *testing.T) {
	ctx := context.Background()
	st := newMemoryState()

	m := NewMRUList(MRUCapacity)
	m.Push("a")
	m.Push("b")
	require.NoError(t, m.Save(ctx, st))

	restored := NewMRUList(MRUCapacity)
	require.NoError(t, restored.Restore(ctx, st))
	assert.Equal(t, []string{"b", "a"}, restored.Items())
}

func TestMRUListRestoreKeepsUnsavedPushes(t *testing.T) {
	ctx := context.Background()
	st := newMemoryState()

	saved := NewMRUList(MRUCapacity)
	saved.Push("old")
	require.NoError(t, saved.Save(ctx, st))

	m := NewMRUList(MRUCapacity)
	m.Push("new")
	require.NoError(t, m.Restore(ctx, st))
	assert.Equal(t, []string{"new"}, m.Items())
}

func TestMRUListRestoreEmptyState(t *testing.T) {
	m := NewMRUList(MRUCapacity)
	require.NoError(t, m.Restore(context.Background(), newMemoryState()))
	assert.Empty(t, m.Items())
}

func TestMRUListSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	st, err := state.NewSQLiteStore(filepath.Join(dir, "state.db"), logger.NewNoOp())
	require.NoError(t, err)
	defer st.Close()

	m := NewMRUList(MRUCapacity)
	m.Push("osm")
	m.Push("topo")
	require.NoError(t, m.Save(ctx, st))

	again := NewMRUList(MRUCapacity)
	require.NoError(t, again.Restore(ctx, st))
	assert.Equal(t, []string{"topo", "osm"}, again.Items())

	_, err = os.Stat(filepath.Join(dir, "state.db"))
	assert.NoError(t, err)
}

func TestLastSourcesIsSingleton(t *testing.T) {
	assert.Same(t, LastSources(), LastSources())
}
