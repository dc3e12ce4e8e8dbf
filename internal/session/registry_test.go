// internal/session/registry_test.go
package session

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404zoo/arena/internal/models"
)

func newTestRegistry() *Registry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return NewRegistry(l)
}

func TestRegister_CreatesIdleGuest(t *testing.T) {
	r := newTestRegistry()

	p := r.Register(nil)
	require.NotNil(t, p)
	assert.True(t, strings.HasPrefix(p.Name, "Guest_"))
	assert.Equal(t, models.StatusIdle, p.Status)
	assert.Equal(t, uuid.Nil, p.RoomID)

	got, ok := r.Get(p.ID)
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestSetProfile_EmptyNameKeepsGuestFallback(t *testing.T) {
	r := newTestRegistry()
	p := r.Register(nil)
	guestName := p.Name

	r.SetProfile(p.ID, "", 1200)
	name, rating, ok := r.Profile(p.ID)
	require.True(t, ok)
	assert.Equal(t, guestName, name)
	assert.Equal(t, 1200, rating)

	r.SetProfile(p.ID, "Valeria", 1250)
	name, rating, _ = r.Profile(p.ID)
	assert.Equal(t, "Valeria", name)
	assert.Equal(t, 1250, rating)
}

func TestTransitionStatus_OnlyFromExpectedState(t *testing.T) {
	r := newTestRegistry()
	p := r.Register(nil)

	assert.True(t, r.TransitionStatus(p.ID, models.StatusIdle, models.StatusMatching))
	assert.False(t, r.TransitionStatus(p.ID, models.StatusIdle, models.StatusMatching))

	st, ok := r.Status(p.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusMatching, st)

	assert.False(t, r.TransitionStatus(uuid.New(), models.StatusIdle, models.StatusMatching))
}

func TestEnterLeaveRoom(t *testing.T) {
	r := newTestRegistry()
	p := r.Register(nil)
	roomID := uuid.New()

	r.EnterRoom(p.ID, roomID)
	st, _ := r.Status(p.ID)
	assert.Equal(t, models.StatusInGame, st)
	assert.Equal(t, roomID, r.RoomID(p.ID))

	r.LeaveRoom(p.ID)
	st, _ = r.Status(p.ID)
	assert.Equal(t, models.StatusIdle, st)
	assert.Equal(t, uuid.Nil, r.RoomID(p.ID))
}

func TestUnregister(t *testing.T) {
	r := newTestRegistry()
	p := r.Register(nil)

	got, ok := r.Unregister(p.ID)
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = r.Unregister(p.ID)
	assert.False(t, ok)
	_, ok = r.Get(p.ID)
	assert.False(t, ok)
}

func TestApplyMatchResult_TrophyAndStreakMath(t *testing.T) {
	r := newTestRegistry()
	winner := r.Register(nil)
	loser := r.Register(nil)
	loser.Trophies = 40
	loser.WinStreak = 3

	w, l := r.ApplyMatchResult(winner.ID, loser.ID)
	require.NotNil(t, w)
	require.NotNil(t, l)

	// Streak increments before the bonus: 30 base + streak of 1.
	assert.Equal(t, 31, w.Trophies)
	assert.Equal(t, 1, w.WinStreak)
	assert.Equal(t, 1, w.TotalWins)

	assert.Equal(t, 10, l.Trophies)
	assert.Equal(t, 0, l.WinStreak)
	assert.Equal(t, 1, l.TotalLosses)

	// Second straight win pays a bigger streak bonus.
	w, l = r.ApplyMatchResult(winner.ID, loser.ID)
	assert.Equal(t, 31+32, w.Trophies)
	assert.Equal(t, 2, w.WinStreak)

	// Losses floor at zero trophies.
	assert.Equal(t, 0, l.Trophies)
}

func TestApplyMatchResult_UnknownPlayersReturnNil(t *testing.T) {
	r := newTestRegistry()
	p := r.Register(nil)

	w, l := r.ApplyMatchResult(uuid.New(), p.ID)
	assert.Nil(t, w)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.TotalLosses)
}

func TestSnapshot_ReturnsAllPlayers(t *testing.T) {
	r := newTestRegistry()
	a := r.Register(nil)
	b := r.Register(nil)

	snap := r.Snapshot()
	assert.ElementsMatch(t, []*models.Player{a, b}, snap)
}
