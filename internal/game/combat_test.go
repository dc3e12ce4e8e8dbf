// internal/game/combat_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404zoo/arena/internal/models"
)

func cu(name string, attack, health, pos int, trait models.TraitType) *models.CombatUnit {
	u := models.NewUnit(models.UnitTemplate{
		Name:   name,
		Attack: attack,
		Health: health,
		Trait:  trait,
	})
	u.Position = pos
	return u.CombatCopy()
}

func TestResolveBattle_BothEmptyIsUnfoughtDraw(t *testing.T) {
	outcome, fought, completed := ResolveBattle(nil, nil, 100, nil, nil)
	assert.Equal(t, OutcomeDraw, outcome)
	assert.False(t, fought)
	assert.True(t, completed)
}

func TestResolveBattle_EmptySideLosesWithoutFighting(t *testing.T) {
	roster := []*models.CombatUnit{cu("W", 5, 10, 0, models.TraitWarrior)}

	outcome, fought, _ := ResolveBattle(roster, nil, 100, nil, nil)
	assert.Equal(t, OutcomeP1Win, outcome)
	assert.False(t, fought)

	outcome, fought, _ = ResolveBattle(nil, roster, 100, nil, nil)
	assert.Equal(t, OutcomeP2Win, outcome)
	assert.False(t, fought)
}

func TestResolveBattle_StrongerSideWins(t *testing.T) {
	p1 := []*models.CombatUnit{cu("Big", 10, 50, 0, models.TraitWarrior)}
	p2 := []*models.CombatUnit{cu("Small", 1, 10, 0, models.TraitWarrior)}

	outcome, fought, completed := ResolveBattle(p1, p2, 100, nil, nil)
	assert.Equal(t, OutcomeP1Win, outcome)
	assert.True(t, fought)
	assert.True(t, completed)
}

func TestResolveBattle_AttackOrderIsPositionSweep(t *testing.T) {
	// Two units per side at positions 0 and 1. The first four attacks must be
	// p1[0], p2[0], p1[1], p2[1].
	p1 := []*models.CombatUnit{
		cu("a0", 1, 100, 0, models.TraitWarrior),
		cu("a1", 1, 100, 1, models.TraitWarrior),
	}
	p2 := []*models.CombatUnit{
		cu("b0", 1, 100, 0, models.TraitWarrior),
		cu("b1", 1, 100, 1, models.TraitWarrior),
	}

	var order []string
	ResolveBattle(p1, p2, 1, func(attacker, _ *models.CombatUnit, _ int) {
		order = append(order, attacker.Name)
	}, nil)

	require.GreaterOrEqual(t, len(order), 4)
	assert.Equal(t, []string{"a0", "b0", "a1", "b1"}, order[:4])
}

func TestResolveBattle_RoundCapScoresBySurvivors(t *testing.T) {
	// Nobody can die in one round, p1 fields more units.
	p1 := []*models.CombatUnit{
		cu("a0", 1, 1000, 0, models.TraitWarrior),
		cu("a1", 1, 1000, 1, models.TraitWarrior),
	}
	p2 := []*models.CombatUnit{cu("b0", 1, 1000, 0, models.TraitWarrior)}

	outcome, fought, completed := ResolveBattle(p1, p2, 1, nil, nil)
	assert.Equal(t, OutcomeP1Win, outcome)
	assert.True(t, fought)
	assert.True(t, completed)
}

func TestResolveBattle_PacerAbortsWithoutResult(t *testing.T) {
	p1 := []*models.CombatUnit{cu("a", 1, 1000, 0, models.TraitWarrior)}
	p2 := []*models.CombatUnit{cu("b", 1, 1000, 0, models.TraitWarrior)}

	calls := 0
	_, _, completed := ResolveBattle(p1, p2, 100, nil, func() bool {
		calls++
		return calls < 3
	})
	assert.False(t, completed)
	assert.Equal(t, 3, calls)
}

func TestResolveBattle_OverkillHealthGoesNegativeInternally(t *testing.T) {
	p1 := []*models.CombatUnit{cu("Big", 50, 100, 0, models.TraitWarrior)}
	p2 := []*models.CombatUnit{cu("Frail", 1, 10, 0, models.TraitWarrior)}

	var killed *models.CombatUnit
	ResolveBattle(p1, p2, 100, func(_, target *models.CombatUnit, _ int) {
		killed = target
	}, nil)

	require.NotNil(t, killed)
	assert.Equal(t, -40, killed.Health)
	assert.Equal(t, 0, killed.DisplayHealth())
	assert.False(t, killed.Alive())
}

func TestSelectTarget_NoLivingEnemies(t *testing.T) {
	attacker := cu("a", 1, 10, 0, models.TraitWarrior)
	dead := cu("d", 1, 10, 0, models.TraitWarrior)
	dead.Health = 0
	assert.Nil(t, SelectTarget(attacker, []*models.CombatUnit{dead}))
}

func TestSelectTarget_WarriorPrefersSamePosition(t *testing.T) {
	attacker := cu("a", 1, 10, 2, models.TraitWarrior)
	e0 := cu("e0", 1, 10, 0, models.TraitWarrior)
	e2 := cu("e2", 1, 10, 2, models.TraitWarrior)
	e4 := cu("e4", 1, 10, 4, models.TraitWarrior)

	got := SelectTarget(attacker, []*models.CombatUnit{e4, e0, e2})
	assert.Same(t, e2, got)
}

func TestSelectTarget_WarriorFallsBackToLowestPosition(t *testing.T) {
	attacker := cu("a", 1, 10, 2, models.TraitWarrior)
	e1 := cu("e1", 1, 10, 1, models.TraitWarrior)
	e4 := cu("e4", 1, 10, 4, models.TraitWarrior)

	got := SelectTarget(attacker, []*models.CombatUnit{e4, e1})
	assert.Same(t, e1, got)
}

func TestSelectTarget_ArcherPrefersBackRowByCloseness(t *testing.T) {
	attacker := cu("a", 1, 10, 4, models.TraitArcher)
	front := cu("front", 1, 10, 0, models.TraitWarrior)
	back3 := cu("back3", 1, 10, 3, models.TraitWarrior)
	back5 := cu("back5", 1, 10, 5, models.TraitWarrior)

	// Both back-row units are distance 1; the tie breaks to the lower position.
	got := SelectTarget(attacker, []*models.CombatUnit{front, back5, back3})
	assert.Same(t, back3, got)
}

func TestSelectTarget_ArcherFallsBackToFrontRow(t *testing.T) {
	attacker := cu("a", 1, 10, 3, models.TraitArcher)
	f0 := cu("f0", 1, 10, 0, models.TraitWarrior)
	f2 := cu("f2", 1, 10, 2, models.TraitWarrior)

	// No back-row enemies; closest front-row unit to position 3 is f2.
	got := SelectTarget(attacker, []*models.CombatUnit{f0, f2})
	assert.Same(t, f2, got)
}

func TestSelectTarget_AssassinPicksHighestAttack(t *testing.T) {
	attacker := cu("a", 1, 10, 0, models.TraitAssassin)
	weak := cu("weak", 2, 10, 0, models.TraitWarrior)
	strong := cu("strong", 9, 10, 5, models.TraitWarrior)

	got := SelectTarget(attacker, []*models.CombatUnit{weak, strong})
	assert.Same(t, strong, got)
}

func TestSelectTarget_AssassinTieBreaksByRosterOrder(t *testing.T) {
	attacker := cu("a", 1, 10, 0, models.TraitAssassin)
	first := cu("first", 5, 10, 3, models.TraitWarrior)
	second := cu("second", 5, 10, 1, models.TraitWarrior)

	for i := 0; i < 20; i++ {
		got := SelectTarget(attacker, []*models.CombatUnit{first, second})
		assert.Same(t, first, got)
	}
}

func TestSelectTarget_UnknownTraitUsesWarriorRule(t *testing.T) {
	attacker := cu("a", 1, 10, 1, models.TraitType("Mystic"))
	e1 := cu("e1", 1, 10, 1, models.TraitWarrior)
	e3 := cu("e3", 1, 10, 3, models.TraitWarrior)

	got := SelectTarget(attacker, []*models.CombatUnit{e3, e1})
	assert.Same(t, e1, got)
}

func TestResolveBattle_DeterministicAcrossRuns(t *testing.T) {
	build := func() ([]*models.CombatUnit, []*models.CombatUnit) {
		p1 := []*models.CombatUnit{
			cu("w", 3, 20, 0, models.TraitWarrior),
			cu("ar", 4, 12, 4, models.TraitArcher),
			cu("as", 5, 8, 2, models.TraitAssassin),
		}
		p2 := []*models.CombatUnit{
			cu("w2", 4, 18, 1, models.TraitWarrior),
			cu("ar2", 3, 14, 3, models.TraitArcher),
			cu("as2", 6, 6, 5, models.TraitAssassin),
		}
		return p1, p2
	}

	p1, p2 := build()
	var firstLog []string
	firstOutcome, _, _ := ResolveBattle(p1, p2, 100, func(a, tgt *models.CombatUnit, d int) {
		firstLog = append(firstLog, a.Name+">"+tgt.Name)
	}, nil)

	for i := 0; i < 5; i++ {
		q1, q2 := build()
		var log []string
		outcome, _, _ := ResolveBattle(q1, q2, 100, func(a, tgt *models.CombatUnit, d int) {
			log = append(log, a.Name+">"+tgt.Name)
		}, nil)
		require.Equal(t, firstOutcome, outcome)
		require.Equal(t, firstLog, log)
	}
}
