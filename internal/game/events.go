// internal/game/events.go
package game

import (
	"github.com/google/uuid"

	"github.com/404zoo/arena/internal/models"
)

// EventType is an enum-like type for every server-to-client message.
type EventType string

const (
	EventConnected            EventType = "connected"
	EventMatchingStarted      EventType = "matching_started"
	EventMatchFound           EventType = "match_found"
	EventMatchingCancelled    EventType = "matching_cancelled"
	EventRoundStart           EventType = "round_start"
	EventTimerUpdate          EventType = "timer_update"
	EventBattleStart          EventType = "battle_start"
	EventBattleLog            EventType = "battle_log"
	EventBattleAttack         EventType = "battle_attack"
	EventBattleUnitsUpdate    EventType = "battle_units_update"
	EventBattleResult         EventType = "battle_result"
	EventOpponentSync         EventType = "opponent_sync"
	EventOpponentDisconnected EventType = "opponent_disconnected"
	EventGameOver             EventType = "game_over"
	EventProfileUpdate        EventType = "profile_update"
)

// Event is the wire envelope for every outbound message.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewEvent wraps a payload in the wire envelope.
func NewEvent(t EventType, payload interface{}) Event {
	return Event{Type: t, Payload: payload}
}

// UnitView is the sanctioned wire representation of a unit. Combat views
// clamp health at zero for display; the resolver's internal health may be
// negative.
type UnitView struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Attack    int              `json:"attack"`
	Health    int              `json:"health"`
	MaxHealth int              `json:"maxHealth,omitempty"`
	Star      int              `json:"star"`
	Trait     models.TraitType `json:"traitType"`
	Position  int              `json:"position"`
}

// UnitViews copies bench/board units into wire views. The opponent always
// receives these copies, never a live alias into the owner's state.
func UnitViews(units []*models.Unit) []UnitView {
	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		views = append(views, UnitView{
			ID:       u.ID,
			Name:     u.Name,
			Attack:   u.Attack,
			Health:   u.Health,
			Star:     u.Star,
			Trait:    u.Trait,
			Position: u.Position,
		})
	}
	return views
}

// CombatViews copies a battle roster into wire views.
func CombatViews(units []*models.CombatUnit) []UnitView {
	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		views = append(views, UnitView{
			ID:        u.ID,
			Name:      u.Name,
			Attack:    u.Attack,
			Health:    u.DisplayHealth(),
			MaxHealth: u.MaxHealth,
			Star:      u.Star,
			Trait:     u.Trait,
			Position:  u.Position,
		})
	}
	return views
}

// --- Outbound payloads ---

type ConnectedPayload struct {
	PlayerID uuid.UUID `json:"playerId"`
}

type MatchingStartedPayload struct {
	Position int `json:"position"`
}

type OpponentInfo struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

type MatchFoundPayload struct {
	RoomID   uuid.UUID    `json:"roomId"`
	PlayerID string       `json:"playerId"` // "p1" or "p2"
	Opponent OpponentInfo `json:"opponent"`
}

type RoundStartPayload struct {
	Round int    `json:"round"`
	Phase Phase  `json:"phase"`
	Timer int    `json:"timer"`
	Gold  int    `json:"gold"`
	Slot  string `json:"playerId,omitempty"`
}

type TimerUpdatePayload struct {
	Timer int `json:"timer"`
}

type BattleStartPayload struct {
	Round   int        `json:"round"`
	P1Units []UnitView `json:"p1Units"`
	P2Units []UnitView `json:"p2Units"`
}

type BattleLogPayload struct {
	Log string `json:"log"`
}

type BattleAttackPayload struct {
	Attacker UnitView `json:"attacker"`
	Target   UnitView `json:"target"`
	Damage   int      `json:"damage"`
	Log      string   `json:"log"`
}

type BattleUnitsUpdatePayload struct {
	P1Units []UnitView `json:"p1Units"`
	P2Units []UnitView `json:"p2Units"`
}

type BattleResultPayload struct {
	Result     string `json:"result"` // "win" | "lose" | "draw"
	MyHP       int    `json:"myHP"`
	OpponentHP int    `json:"opponentHP"`
	Round      int    `json:"round"`
}

type OpponentSyncPayload struct {
	Units []UnitView `json:"units"`
	Bench []UnitView `json:"bench"`
	Gold  int        `json:"gold"`
}

type GameOverPayload struct {
	Winner string `json:"winner"` // "p1" | "p2" | "draw"
	P1HP   int    `json:"p1HP"`
	P2HP   int    `json:"p2HP"`
}
