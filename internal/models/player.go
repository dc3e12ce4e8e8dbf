// internal/models/player.go
package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Status is a player's lifecycle state within the arena.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusMatching Status = "matching"
	StatusInGame   Status = "in_game"
)

// Player is one connected session. The session registry owns every Player and
// all field mutation funnels through it, so no other component holds a
// divergent copy of a player's status.
type Player struct {
	ID     uuid.UUID       `json:"id"`
	Conn   *websocket.Conn `json:"-"`
	Name   string          `json:"name"`
	Rating int             `json:"rating"`
	Status Status          `json:"status"`

	// RoomID is uuid.Nil while the player is not in a room.
	RoomID uuid.UUID `json:"-"`

	// Ladder bookkeeping, updated at game over.
	Trophies    int `json:"trophies"`
	TotalWins   int `json:"totalWins"`
	TotalLosses int `json:"totalLosses"`
	WinStreak   int `json:"winStreak"`
}
