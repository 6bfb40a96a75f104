package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func exerciseAnchor(t *testing.T, a Anchor) {
	t.Helper()
	ctx := context.Background()

	id, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, a.Save(ctx, "42"))
	id, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	require.NoError(t, a.Save(ctx, "7"))
	id, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", id)

	require.NoError(t, a.Clear(ctx))
	id, err = a.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	// clearing an empty slot is fine
	require.NoError(t, a.Clear(ctx))
}

func TestMemorySlot(t *testing.T) {
	exerciseAnchor(t, NewMemorySlot())
}

func TestFileSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	exerciseAnchor(t, NewFileSlot(path))
}

func TestFileSlotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")

	require.NoError(t, NewFileSlot(path).Save(ctx, "99"))

	id, err := NewFileSlot(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "99", id)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileSlotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("member_id: [unterminated"), 0o600))

	_, err := NewFileSlot(path).Load(context.Background())
	assert.Error(t, err)
}

func TestMemoryStoreSlotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	require.NoError(t, s.Slot("browser-a").Save(ctx, "1"))
	require.NoError(t, s.Slot("browser-b").Save(ctx, "2"))

	a, err := s.Slot("browser-a").Load(ctx)
	require.NoError(t, err)
	b, err := s.Slot("browser-b").Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, "1", a)
	assert.Equal(t, "2", b)
}

func TestMemoryStoreHoldsOnlySavedSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	for i := 0; i < 1000; i++ {
		id, err := s.Slot(fmt.Sprintf("visitor-%d", i)).Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, id)
	}
	assert.Zero(t, s.Len())

	require.NoError(t, s.Slot("browser-a").Save(ctx, "7"))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Slot("browser-a").Clear(ctx))
	assert.Zero(t, s.Len())
}

func TestMemoryStoreSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Slot("active").Save(ctx, "1"))
	require.NoError(t, s.Slot("idle").Save(ctx, "2"))

	// reading keeps the active session alive past its first deadline
	now = now.Add(45 * time.Minute)
	id, _ := s.Slot("active").Load(ctx)
	assert.Equal(t, "1", id)

	now = now.Add(30 * time.Minute)
	id, _ = s.Slot("active").Load(ctx)
	assert.Equal(t, "1", id)
	id, _ = s.Slot("idle").Load(ctx)
	assert.Empty(t, id)

	// saves sweep whatever else has lapsed
	require.NoError(t, s.Slot("idle").Save(ctx, "2"))
	now = now.Add(2 * time.Hour)
	require.NoError(t, s.Slot("late").Save(ctx, "3"))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreDefaultTTL(t *testing.T) {
	assert.Equal(t, defaultTTL, NewMemoryStore(0).ttl)
}
