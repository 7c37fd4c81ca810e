package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.Len(t, m.List(), 2)
	assert.True(t, m.Delete(a.ID))
	assert.False(t, m.Delete(a.ID))
	_, ok = m.Get(a.ID)
	assert.False(t, ok)
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Close()

	idle := m.Create()
	busy := m.Create()
	fresh := m.Create()

	future := time.Now().Add(2 * time.Minute)
	fresh.mu.Lock()
	fresh.lastUsed = future
	fresh.mu.Unlock()

	busy.turn.Lock()
	removed := m.Expire(future)
	busy.turn.Unlock()

	assert.Equal(t, 1, removed)
	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(busy.ID)
	assert.True(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}

func TestManagerWithoutTTLKeepsSessions(t *testing.T) {
	m := NewManager(0)
	m.Create()
	assert.Zero(t, m.Expire(time.Now().Add(24*time.Hour)))
	m.StartCleanup(time.Millisecond)
	m.Close()
}
