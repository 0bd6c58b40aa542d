package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortIDStableAndCompact(t *testing.T) {
	ref := ShortID(-1001234567890)
	assert.Len(t, ref, 8)
	assert.Equal(t, ref, ShortID(-1001234567890))
	assert.NotEqual(t, ref, ShortID(-1009876543210))
}

func TestRefMapResolve(t *testing.T) {
	m := NewRefMap()
	ref, err := m.Add(100)
	require.NoError(t, err)

	channelID, err := m.Resolve(ref)
	require.NoError(t, err)
	assert.Equal(t, int64(100), channelID)
}

func TestRefMapUnknownReference(t *testing.T) {
	m := NewRefMap()
	_, err := m.Resolve("deadbeef")
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestRefMapEntriesExpire(t *testing.T) {
	m := NewRefMap()
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	ref, err := m.Add(100)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(refTTL + time.Second) }
	_, err = m.Resolve(ref)
	assert.ErrorIs(t, err, ErrUnknownReference)

	// expired entries are dropped, not resurrected
	m.now = func() time.Time { return issued }
	_, err = m.Resolve(ref)
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestRefMapCollisionRejected(t *testing.T) {
	m := NewRefMap()
	ref, err := m.Add(100)
	require.NoError(t, err)

	// same channel re-registers fine
	again, err := m.Add(100)
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	// force a different channel onto the same ref
	m.entries[ShortID(200)] = refEntry{channelID: 999, issuedAt: m.now()}
	_, err = m.Add(200)
	assert.ErrorIs(t, err, ErrRefCollision)
}

func TestBuildRefMapRegistersAll(t *testing.T) {
	m, err := BuildRefMap([]int64{100, 200, 300})
	require.NoError(t, err)

	for _, id := range []int64{100, 200, 300} {
		got, err := m.Resolve(ShortID(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}
