// internal/session/registry.go
package session

import (
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/404zoo/arena/internal/models"
)

// Trophy ladder constants, matching the on-chain settlement: winners gain the
// base plus their current streak, losers lose a flat amount floored at zero.
const (
	BaseTrophyGain = 30
	TrophyLoss     = 30
)

// Registry tracks every connected player and their current status. It is the
// single writer for player state; components read and mutate players only
// through it.
type Registry struct {
	mu      sync.Mutex
	players map[uuid.UUID]*models.Player
	logger  *logrus.Logger
}

// NewRegistry returns an empty in-memory registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		players: make(map[uuid.UUID]*models.Player),
		logger:  logger,
	}
}

// Register creates a Player record for a freshly accepted connection with a
// guest profile and idle status.
func (r *Registry) Register(conn *websocket.Conn) *models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := &models.Player{
		ID:     uuid.New(),
		Conn:   conn,
		Name:   "",
		Status: models.StatusIdle,
	}
	p.Name = fmt.Sprintf("Guest_%s", p.ID.String()[:4])
	r.players[p.ID] = p
	r.logger.WithField("player", p.ID).Info("player registered")
	return p
}

// Get returns the live player record, if any.
func (r *Registry) Get(id uuid.UUID) (*models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	return p, ok
}

// SetProfile updates a player's display name and rating. Empty names are
// ignored so a bad set_profile cannot blank out the guest fallback.
func (r *Registry) SetProfile(id uuid.UUID, name string, rating int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return
	}
	if name != "" {
		p.Name = name
	}
	p.Rating = rating
}

// Profile returns a player's current display name and rating.
func (r *Registry) Profile(id uuid.UUID) (name string, rating int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, found := r.players[id]
	if !found {
		return "", 0, false
	}
	return p.Name, p.Rating, true
}

// Status returns the player's current lifecycle status. Unknown players
// report idle=false via ok.
func (r *Registry) Status(id uuid.UUID) (models.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return "", false
	}
	return p.Status, true
}

// SetStatus transitions a player's status unconditionally.
func (r *Registry) SetStatus(id uuid.UUID, status models.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.Status = status
	}
}

// TransitionStatus moves a player from one status to another only if they are
// currently in the expected state. Returns false on any mismatch.
func (r *Registry) TransitionStatus(id uuid.UUID, from, to models.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok || p.Status != from {
		return false
	}
	p.Status = to
	return true
}

// EnterRoom marks a player as in-game inside the given room.
func (r *Registry) EnterRoom(id, roomID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.Status = models.StatusInGame
		p.RoomID = roomID
	}
}

// LeaveRoom resets a player back to idle with no room reference.
func (r *Registry) LeaveRoom(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.Status = models.StatusIdle
		p.RoomID = uuid.Nil
	}
}

// RoomID returns the room the player currently occupies, or uuid.Nil.
func (r *Registry) RoomID(id uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		return p.RoomID
	}
	return uuid.Nil
}

// Unregister deletes the player record and returns it so the caller can
// unwind queue and room state. Deleting an unknown id is a no-op.
func (r *Registry) Unregister(id uuid.UUID) (*models.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return nil, false
	}
	delete(r.players, id)
	r.logger.WithField("player", id).Info("player unregistered")
	return p, true
}

// Snapshot returns the current player records for iteration (liveness
// sweeps). The slice is a copy; the pointers are the live records.
func (r *Registry) Snapshot() []*models.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	return out
}

// ProfileStats is the ladder slice of a player's profile, as broadcast in
// profile_update events.
type ProfileStats struct {
	Trophies    int `json:"trophies"`
	WinStreak   int `json:"winStreak"`
	TotalWins   int `json:"totalWins"`
	TotalLosses int `json:"totalLosses"`
}

// ApplyMatchResult applies the trophy settlement for a decided match: the
// winner's streak is incremented first, then they gain BaseTrophyGain plus
// the streak; the loser drops TrophyLoss (floored at zero) and their streak
// resets. Draws never reach this path.
func (r *Registry) ApplyMatchResult(winnerID, loserID uuid.UUID) (winner, loser *ProfileStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.players[winnerID]; ok {
		w.WinStreak++
		w.Trophies += BaseTrophyGain + w.WinStreak
		w.TotalWins++
		winner = &ProfileStats{
			Trophies:    w.Trophies,
			WinStreak:   w.WinStreak,
			TotalWins:   w.TotalWins,
			TotalLosses: w.TotalLosses,
		}
	}
	if l, ok := r.players[loserID]; ok {
		l.Trophies -= TrophyLoss
		if l.Trophies < 0 {
			l.Trophies = 0
		}
		l.WinStreak = 0
		l.TotalLosses++
		loser = &ProfileStats{
			Trophies:    l.Trophies,
			WinStreak:   l.WinStreak,
			TotalWins:   l.TotalWins,
			TotalLosses: l.TotalLosses,
		}
	}
	return winner, loser
}
