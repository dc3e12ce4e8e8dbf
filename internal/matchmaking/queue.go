// internal/matchmaking/queue.go
package matchmaking

import (
	"sync"

	"github.com/google/uuid"

	"github.com/404zoo/arena/internal/models"
)

// Entry is one player waiting for a match, carrying the deck they enqueued
// with so the room can be seeded at pairing time.
type Entry struct {
	PlayerID uuid.UUID
	Deck     []models.UnitTemplate
}

// Queue is the FIFO match queue. Membership and live player status can
// diverge between enqueue and pairing (cancellation or disconnect races), so
// consumers revalidate entries on pop rather than the queue evicting eagerly.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	queued  map[uuid.UUID]bool
}

// NewQueue returns an empty match queue.
func NewQueue() *Queue {
	return &Queue{
		queued: make(map[uuid.UUID]bool),
	}
}

// Enqueue appends a player. Returns the 1-based queue position and false if
// the player is already queued.
func (q *Queue) Enqueue(playerID uuid.UUID, deck []models.UnitTemplate) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.queued[playerID] {
		return 0, false
	}
	q.entries = append(q.entries, Entry{PlayerID: playerID, Deck: deck})
	q.queued[playerID] = true
	return len(q.entries), true
}

// Remove drops a player from the queue, preserving the order of everyone
// else. Returns whether the player was present.
func (q *Queue) Remove(playerID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.queued[playerID] {
		return false
	}
	delete(q.queued, playerID)
	for i, e := range q.entries {
		if e.PlayerID == playerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports queue membership.
func (q *Queue) Contains(playerID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.queued[playerID]
}

// Len returns the number of waiting entries, stale or not.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// PopPair pops the front two entries whose players still validate. Entries
// failing the validity check are discarded; if only one of a popped pair
// remains valid it is requeued at the front and pairing continues. Returns
// ok=false once fewer than two entries remain.
func (q *Queue) PopPair(valid func(uuid.UUID) bool) (Entry, Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.entries) >= 2 {
		first := q.popFrontLocked()
		second := q.popFrontLocked()

		firstOK := valid(first.PlayerID)
		secondOK := valid(second.PlayerID)

		switch {
		case firstOK && secondOK:
			return first, second, true
		case firstOK:
			q.pushFrontLocked(first)
		case secondOK:
			q.pushFrontLocked(second)
		}
	}
	return Entry{}, Entry{}, false
}

func (q *Queue) popFrontLocked() Entry {
	e := q.entries[0]
	q.entries = q.entries[1:]
	delete(q.queued, e.PlayerID)
	return e
}

func (q *Queue) pushFrontLocked(e Entry) {
	q.entries = append([]Entry{e}, q.entries...)
	q.queued[e.PlayerID] = true
}
