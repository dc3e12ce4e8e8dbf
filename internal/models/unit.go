// internal/models/unit.go
package models

import "github.com/google/uuid"

// TraitType is a unit's combat role. It determines target selection during
// battle and nothing else.
type TraitType string

const (
	TraitWarrior  TraitType = "Warrior"
	TraitArcher   TraitType = "Archer"
	TraitAssassin TraitType = "Assassin"
)

// BoardPositions is the number of attack slots per side (0..5).
const BoardPositions = 6

// BenchPosition marks a unit that is not placed on the board.
const BenchPosition = -1

// UnitTemplate is the shape of a unit as handed over by the platform in a
// deck: stats only, no identity.
type UnitTemplate struct {
	Name   string    `json:"name"`
	Attack int       `json:"attack"`
	Health int       `json:"health"`
	Star   int       `json:"star"`
	Trait  TraitType `json:"traitType"`
}

// Unit is an owned instance of a template, living on a player's bench or
// board. Position is BenchPosition while benched, 0..5 while placed.
type Unit struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Attack   int       `json:"attack"`
	Health   int       `json:"health"`
	Star     int       `json:"star"`
	Trait    TraitType `json:"traitType"`
	Position int       `json:"position"`
}

// NewUnit instantiates a template as a benched unit with a fresh identity.
func NewUnit(tpl UnitTemplate) *Unit {
	star := tpl.Star
	if star < 1 {
		star = 1
	}
	trait := tpl.Trait
	if trait == "" {
		trait = TraitWarrior
	}
	return &Unit{
		ID:       uuid.New(),
		Name:     tpl.Name,
		Attack:   tpl.Attack,
		Health:   tpl.Health,
		Star:     star,
		Trait:    trait,
		Position: BenchPosition,
	}
}

// CombatUnit is a battle-scoped deep copy of a placed unit. Health mutates
// during combat and may go negative internally; MaxHealth restores between
// rounds. Position is fixed for the duration of one battle.
type CombatUnit struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Attack    int       `json:"attack"`
	Health    int       `json:"health"`
	MaxHealth int       `json:"maxHealth"`
	Star      int       `json:"star"`
	Trait     TraitType `json:"traitType"`
	Position  int       `json:"position"`
}

// CombatCopy snapshots a placed unit into a CombatUnit. The copy shares
// nothing with the source, so combat never aliases preparation-phase state.
func (u *Unit) CombatCopy() *CombatUnit {
	return &CombatUnit{
		ID:        u.ID,
		Name:      u.Name,
		Attack:    u.Attack,
		Health:    u.Health,
		MaxHealth: u.Health,
		Star:      u.Star,
		Trait:     u.Trait,
		Position:  u.Position,
	}
}

// Alive reports whether the unit can still act. Display clamps health at
// zero, but internally "alive" is strictly positive health.
func (c *CombatUnit) Alive() bool {
	return c.Health > 0
}

// DisplayHealth is the health value shown on the wire, clamped at zero.
func (c *CombatUnit) DisplayHealth() int {
	if c.Health < 0 {
		return 0
	}
	return c.Health
}
