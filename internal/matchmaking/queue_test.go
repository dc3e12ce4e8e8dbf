// internal/matchmaking/queue_test.go
package matchmaking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysValid(uuid.UUID) bool { return true }

func TestEnqueue_ReturnsOneBasedPosition(t *testing.T) {
	q := NewQueue()

	pos, ok := q.Enqueue(uuid.New(), nil)
	require.True(t, ok)
	assert.Equal(t, 1, pos)

	pos, ok = q.Enqueue(uuid.New(), nil)
	require.True(t, ok)
	assert.Equal(t, 2, pos)
}

func TestEnqueue_RejectsDuplicates(t *testing.T) {
	q := NewQueue()
	id := uuid.New()

	_, ok := q.Enqueue(id, nil)
	require.True(t, ok)

	_, ok = q.Enqueue(id, nil)
	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestRemove_PreservesOrder(t *testing.T) {
	q := NewQueue()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	q.Enqueue(a, nil)
	q.Enqueue(b, nil)
	q.Enqueue(c, nil)

	assert.True(t, q.Remove(b))
	assert.False(t, q.Remove(b))
	assert.False(t, q.Contains(b))

	e1, e2, ok := q.PopPair(alwaysValid)
	require.True(t, ok)
	assert.Equal(t, a, e1.PlayerID)
	assert.Equal(t, c, e2.PlayerID)
}

func TestPopPair_FIFO(t *testing.T) {
	q := NewQueue()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		q.Enqueue(id, nil)
	}

	e1, e2, ok := q.PopPair(alwaysValid)
	require.True(t, ok)
	assert.Equal(t, ids[0], e1.PlayerID)
	assert.Equal(t, ids[1], e2.PlayerID)

	e1, e2, ok = q.PopPair(alwaysValid)
	require.True(t, ok)
	assert.Equal(t, ids[2], e1.PlayerID)
	assert.Equal(t, ids[3], e2.PlayerID)

	_, _, ok = q.PopPair(alwaysValid)
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestPopPair_NotEnoughEntries(t *testing.T) {
	q := NewQueue()
	q.Enqueue(uuid.New(), nil)

	_, _, ok := q.PopPair(alwaysValid)
	assert.False(t, ok)
	assert.Equal(t, 1, q.Len())
}

func TestPopPair_DiscardsStaleEntries(t *testing.T) {
	q := NewQueue()
	stale := uuid.New()
	a, b := uuid.New(), uuid.New()
	q.Enqueue(stale, nil)
	q.Enqueue(a, nil)
	q.Enqueue(b, nil)

	e1, e2, ok := q.PopPair(func(id uuid.UUID) bool { return id != stale })
	require.True(t, ok)
	assert.Equal(t, a, e1.PlayerID)
	assert.Equal(t, b, e2.PlayerID)
	assert.False(t, q.Contains(stale))
}

func TestPopPair_RequeuesSingleValidAtFront(t *testing.T) {
	q := NewQueue()
	valid := uuid.New()
	stale := uuid.New()
	later := uuid.New()
	q.Enqueue(valid, nil)
	q.Enqueue(stale, nil)

	_, _, ok := q.PopPair(func(id uuid.UUID) bool { return id != stale })
	assert.False(t, ok)
	require.Equal(t, 1, q.Len())
	assert.True(t, q.Contains(valid))

	// The survivor keeps its place at the head of the line.
	q.Enqueue(later, nil)
	e1, e2, ok := q.PopPair(alwaysValid)
	require.True(t, ok)
	assert.Equal(t, valid, e1.PlayerID)
	assert.Equal(t, later, e2.PlayerID)
}
