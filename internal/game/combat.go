// internal/game/combat.go
package game

import (
	"github.com/404zoo/arena/internal/models"
)

// Outcome is the result of one battle from p1's perspective.
type Outcome int

const (
	OutcomeDraw Outcome = iota
	OutcomeP1Win
	OutcomeP2Win
)

// AttackHook observes a single resolved attack. Hooks run synchronously
// inside the position sweep, so their order matches attack order exactly.
type AttackHook func(attacker, target *models.CombatUnit, damage int)

// Pacer blocks between attacks. It returns false when the battle should be
// abandoned (room teardown); the resolver then exits without a result.
type Pacer func() bool

// ResolveBattle runs the deterministic position-sweep combat loop over two
// rosters of placed units. Rosters are mutated in place (health only).
//
// Returned values: the outcome, whether the main loop actually ran (a
// both-empty roster short-circuits to an unfought draw, which settles
// differently from a fought draw), and whether the battle ran to completion
// (false only when the pacer aborted it).
func ResolveBattle(p1, p2 []*models.CombatUnit, maxRounds int, onAttack AttackHook, pace Pacer) (outcome Outcome, fought bool, completed bool) {
	// Empty-roster short circuits happen before any pacing.
	p1Alive := countAlive(p1)
	p2Alive := countAlive(p2)
	switch {
	case p1Alive == 0 && p2Alive == 0:
		return OutcomeDraw, false, true
	case p1Alive == 0:
		return OutcomeP2Win, false, true
	case p2Alive == 0:
		return OutcomeP1Win, false, true
	}

	for round := 0; round < maxRounds; round++ {
		for pos := 0; pos < models.BoardPositions; pos++ {
			for _, side := range [2]struct {
				attackers []*models.CombatUnit
				enemies   []*models.CombatUnit
			}{{p1, p2}, {p2, p1}} {
				attacker := livingAt(side.attackers, pos)
				if attacker == nil {
					continue
				}
				target := SelectTarget(attacker, side.enemies)
				if target == nil {
					continue
				}
				damage := attacker.Attack
				target.Health -= damage
				if onAttack != nil {
					onAttack(attacker, target, damage)
				}
				if countAlive(p1) == 0 || countAlive(p2) == 0 {
					return scoreByCount(p1, p2), true, true
				}
				if pace != nil && !pace() {
					return OutcomeDraw, true, false
				}
			}
		}
	}
	return scoreByCount(p1, p2), true, true
}

// scoreByCount compares living-unit counts after the loop ends, by
// elimination or by hitting the round cap.
func scoreByCount(p1, p2 []*models.CombatUnit) Outcome {
	a, b := countAlive(p1), countAlive(p2)
	switch {
	case a > b:
		return OutcomeP1Win
	case b > a:
		return OutcomeP2Win
	default:
		return OutcomeDraw
	}
}

// SelectTarget picks the attacker's target among living enemies. It is a
// pure function of (attacker, living-enemy-set): every tie-break is fixed, so
// identical inputs always yield the identical target.
func SelectTarget(attacker *models.CombatUnit, enemies []*models.CombatUnit) *models.CombatUnit {
	living := make([]*models.CombatUnit, 0, len(enemies))
	for _, e := range enemies {
		if e.Alive() {
			living = append(living, e)
		}
	}
	if len(living) == 0 {
		return nil
	}

	switch attacker.Trait {
	case models.TraitArcher:
		return archerTarget(attacker, living)
	case models.TraitAssassin:
		return assassinTarget(living)
	default:
		// Warrior and any unknown trait share the same rule.
		return warriorTarget(attacker, living)
	}
}

// warriorTarget prefers the enemy at the attacker's own position index, then
// the living enemy with the lowest position.
func warriorTarget(attacker *models.CombatUnit, living []*models.CombatUnit) *models.CombatUnit {
	for _, e := range living {
		if e.Position == attacker.Position {
			return e
		}
	}
	return lowestPosition(living)
}

// archerTarget prefers the back row (position >= 3) by numeric closeness to
// the attacker's position, then the front row by the same rule, then any
// living enemy. Closeness ties break toward the lower position.
func archerTarget(attacker *models.CombatUnit, living []*models.CombatUnit) *models.CombatUnit {
	if t := closestInRow(attacker.Position, living, true); t != nil {
		return t
	}
	if t := closestInRow(attacker.Position, living, false); t != nil {
		return t
	}
	return lowestPosition(living)
}

// assassinTarget picks the enemy with the highest current attack stat; ties
// break by roster order (first encountered), never randomly.
func assassinTarget(living []*models.CombatUnit) *models.CombatUnit {
	best := living[0]
	for _, e := range living[1:] {
		if e.Attack > best.Attack {
			best = e
		}
	}
	return best
}

func closestInRow(fromPos int, living []*models.CombatUnit, backRow bool) *models.CombatUnit {
	var best *models.CombatUnit
	bestDist := 0
	for _, e := range living {
		inBack := e.Position >= models.BoardPositions/2
		if inBack != backRow {
			continue
		}
		dist := e.Position - fromPos
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist || (dist == bestDist && e.Position < best.Position) {
			best = e
			bestDist = dist
		}
	}
	return best
}

func lowestPosition(living []*models.CombatUnit) *models.CombatUnit {
	best := living[0]
	for _, e := range living[1:] {
		if e.Position < best.Position {
			best = e
		}
	}
	return best
}

func livingAt(units []*models.CombatUnit, pos int) *models.CombatUnit {
	for _, u := range units {
		if u.Position == pos && u.Alive() {
			return u
		}
	}
	return nil
}

func countAlive(units []*models.CombatUnit) int {
	n := 0
	for _, u := range units {
		if u.Alive() {
			n++
		}
	}
	return n
}
