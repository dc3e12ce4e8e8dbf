// internal/game/room.go
package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/404zoo/arena/internal/config"
	"github.com/404zoo/arena/internal/models"
)

// Phase is the room's current stage.
type Phase string

const (
	PhasePreparation Phase = "preparation"
	PhaseBattle      Phase = "battle"
)

// Player action names accepted inside player_action messages.
const (
	ActionBuyCard     = "buy_card"
	ActionPlaceUnit   = "place_unit"
	ActionRemoveUnit  = "remove_unit"
	ActionSellUnit    = "sell_unit"
	ActionRefreshShop = "refresh_shop"
)

// BattleState is one player's half of a room: health, economy, bench and
// board. Board holds placed units only (position 0..5, at most one per slot);
// Bench holds the rest. BattleDone marks the current round's battle as
// settled; settlement applies at most once per round.
type BattleState struct {
	HP         int
	Gold       int
	Board      []*models.Unit
	Bench      []*models.Unit
	Ready      bool
	BattleDone bool
}

func (s *BattleState) boardAt(pos int) *models.Unit {
	for _, u := range s.Board {
		if u.Position == pos {
			return u
		}
	}
	return nil
}

func (s *BattleState) takeFromBench(id uuid.UUID) *models.Unit {
	for i, u := range s.Bench {
		if u.ID == id {
			s.Bench = append(s.Bench[:i], s.Bench[i+1:]...)
			return u
		}
	}
	return nil
}

func (s *BattleState) takeFromBoard(id uuid.UUID) *models.Unit {
	for i, u := range s.Board {
		if u.ID == id {
			s.Board = append(s.Board[:i], s.Board[i+1:]...)
			return u
		}
	}
	return nil
}

// Room owns one two-player match: the preparation countdown, battle
// execution, settlement and the per-player battle state. The p1/p2 slots are
// fixed at creation and never swap.
type Room struct {
	ID uuid.UUID
	P1 uuid.UUID
	P2 uuid.UUID

	Round int
	Phase Phase
	Timer int

	states map[uuid.UUID]*BattleState

	cfg    *config.Config
	logger *logrus.Entry

	Mu             sync.Mutex
	prepTimer      *time.Timer
	nextRoundTimer *time.Timer
	battleRunning  bool
	closed         bool

	ctx    context.Context
	cancel context.CancelFunc

	// BroadcastFn sends an event to both players. BroadcastToPlayerFn sends
	// to one. Both are injected by the transport layer and must be safe to
	// call while the room lock is held (they only enqueue writes).
	BroadcastFn         func(ev Event)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev Event)

	// OnGameOver fires once when a decided (non-draw) match ends, before
	// OnDestroyed.
	OnGameOver func(winnerID, loserID uuid.UUID)

	// OnDestroyed fires exactly once when the room dies for any reason, with
	// the players whose status should unwind to idle.
	OnDestroyed func(roomID uuid.UUID, remaining []uuid.UUID)
}

// NewRoom builds a room for two paired players, seeding each bench from the
// deck the player enqueued with. Decks larger than the bench capacity are
// truncated.
func NewRoom(cfg *config.Config, logger *logrus.Logger, p1, p2 uuid.UUID, deck1, deck2 []models.UnitTemplate) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.New()
	r := &Room{
		ID:     id,
		P1:     p1,
		P2:     p2,
		Round:  1,
		cfg:    cfg,
		logger: logger.WithField("room", id),
		ctx:    ctx,
		cancel: cancel,
		states: map[uuid.UUID]*BattleState{
			p1: newBattleState(cfg, deck1),
			p2: newBattleState(cfg, deck2),
		},
	}
	return r
}

func newBattleState(cfg *config.Config, deck []models.UnitTemplate) *BattleState {
	s := &BattleState{
		HP:   cfg.StartingHP,
		Gold: cfg.StartingGold,
	}
	for _, tpl := range deck {
		if len(s.Bench) >= cfg.BenchCapacity {
			break
		}
		s.Bench = append(s.Bench, models.NewUnit(tpl))
	}
	return s
}

// Slot returns "p1" or "p2" for a member of this room, "" otherwise.
func (r *Room) Slot(playerID uuid.UUID) string {
	switch playerID {
	case r.P1:
		return "p1"
	case r.P2:
		return "p2"
	default:
		return ""
	}
}

// Opponent returns the other player's id, or uuid.Nil for a non-member.
func (r *Room) Opponent(playerID uuid.UUID) uuid.UUID {
	switch playerID {
	case r.P1:
		return r.P2
	case r.P2:
		return r.P1
	default:
		return uuid.Nil
	}
}

// Start enters the first preparation phase. Call once after the broadcast
// callbacks are wired.
func (r *Room) Start() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return
	}
	r.enterPreparationLocked()
}

// enterPreparationLocked resets the per-round flags, returns placed units to
// the bench (the board is rebuilt every round; bench contents persist),
// grants round income, and arms the countdown.
func (r *Room) enterPreparationLocked() {
	r.Phase = PhasePreparation
	r.Timer = r.cfg.PrepSeconds

	for pid, s := range r.states {
		s.Ready = false
		s.BattleDone = false
		for _, u := range s.Board {
			u.Position = models.BenchPosition
			s.Bench = append(s.Bench, u)
		}
		s.Board = nil
		if r.Round > 1 {
			s.Gold += r.cfg.GoldPerRound
		}
		r.sendTo(pid, NewEvent(EventRoundStart, RoundStartPayload{
			Round: r.Round,
			Phase: r.Phase,
			Timer: r.Timer,
			Gold:  s.Gold,
			Slot:  r.Slot(pid),
		}))
	}

	r.logger.WithField("round", r.Round).Info("preparation started")
	r.schedulePrepTickLocked()
}

func (r *Room) schedulePrepTickLocked() {
	var t *time.Timer
	t = time.AfterFunc(r.cfg.PrepTick, func() { r.prepTick(t) })
	r.prepTimer = t
}

// prepTick is the 1-second countdown step. The timer identity check discards
// late fires from a countdown that was already cancelled or replaced.
func (r *Room) prepTick(t *time.Timer) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || r.Phase != PhasePreparation || r.prepTimer != t {
		return
	}
	r.Timer--
	r.broadcast(NewEvent(EventTimerUpdate, TimerUpdatePayload{Timer: r.Timer}))
	if r.Timer <= 0 {
		r.startBattleLocked()
		return
	}
	r.schedulePrepTickLocked()
}

// HandleReady marks a player ready. When both sides are ready the countdown
// is short-circuited and battle starts immediately.
func (r *Room) HandleReady(playerID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || r.Phase != PhasePreparation {
		return
	}
	s, ok := r.states[playerID]
	if !ok || s.Ready {
		return
	}
	s.Ready = true
	if r.states[r.P1].Ready && r.states[r.P2].Ready {
		r.startBattleLocked()
	}
}

// startBattleLocked transitions preparation -> battle. The phase and
// battleRunning guards make battle entry idempotent: a timer expiry racing a
// double-ready cannot start two battles.
func (r *Room) startBattleLocked() {
	if r.closed || r.Phase != PhasePreparation || r.battleRunning {
		return
	}
	r.stopPrepTimerLocked()
	r.Phase = PhaseBattle
	r.battleRunning = true

	roster1 := r.rosterLocked(r.P1)
	roster2 := r.rosterLocked(r.P2)

	r.broadcast(NewEvent(EventBattleStart, BattleStartPayload{
		Round:   r.Round,
		P1Units: CombatViews(roster1),
		P2Units: CombatViews(roster2),
	}))
	r.logger.WithFields(logrus.Fields{
		"round": r.Round, "p1Units": len(roster1), "p2Units": len(roster2),
	}).Info("battle started")

	go r.runBattle(roster1, roster2, r.Round)
}

// rosterLocked snapshots a side's placed units into battle-scoped copies, in
// position order. Bench units are excluded.
func (r *Room) rosterLocked(playerID uuid.UUID) []*models.CombatUnit {
	s := r.states[playerID]
	roster := make([]*models.CombatUnit, 0, len(s.Board))
	for pos := 0; pos < models.BoardPositions; pos++ {
		if u := s.boardAt(pos); u != nil {
			roster = append(roster, u.CombatCopy())
		}
	}
	return roster
}

// runBattle drives the combat resolver off the room lock. The rosters are
// battle-scoped copies touched only by this goroutine; every attack is
// broadcast and paced, and teardown cancels the pacing context.
func (r *Room) runBattle(roster1, roster2 []*models.CombatUnit, round int) {
	onAttack := func(attacker, target *models.CombatUnit, damage int) {
		log := fmt.Sprintf("%s attacks %s for %d damage", attacker.Name, target.Name, damage)
		r.broadcast(NewEvent(EventBattleLog, BattleLogPayload{Log: log}))
		r.broadcast(NewEvent(EventBattleAttack, BattleAttackPayload{
			Attacker: combatView(attacker),
			Target:   combatView(target),
			Damage:   damage,
			Log:      log,
		}))
		r.broadcast(NewEvent(EventBattleUnitsUpdate, BattleUnitsUpdatePayload{
			P1Units: CombatViews(roster1),
			P2Units: CombatViews(roster2),
		}))
	}
	pace := func() bool {
		select {
		case <-time.After(r.cfg.AttackInterval):
			return true
		case <-r.ctx.Done():
			return false
		}
	}

	outcome, fought, completed := ResolveBattle(roster1, roster2, r.cfg.MaxCombatRounds, onAttack, pace)
	if !completed {
		return
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return
	}
	r.battleRunning = false
	r.settleLocked(outcome, fought, round)
}

// settleLocked applies the HP cost formula and either schedules the next
// round or ends the game. loss = round²; a loser pays it all, a fought draw
// costs both sides half, the both-empty immediate draw costs nothing.
func (r *Room) settleLocked(outcome Outcome, fought bool, round int) {
	s1 := r.states[r.P1]
	s2 := r.states[r.P2]
	if s1.BattleDone {
		return
	}
	s1.BattleDone = true
	s2.BattleDone = true
	loss := round * round

	result1 := "draw"
	switch outcome {
	case OutcomeP1Win:
		result1 = "win"
		s2.HP = clampHP(s2.HP - loss)
	case OutcomeP2Win:
		result1 = "lose"
		s1.HP = clampHP(s1.HP - loss)
	case OutcomeDraw:
		if fought {
			half := loss / 2
			s1.HP = clampHP(s1.HP - half)
			s2.HP = clampHP(s2.HP - half)
		}
	}

	r.sendTo(r.P1, NewEvent(EventBattleResult, BattleResultPayload{
		Result: result1, MyHP: s1.HP, OpponentHP: s2.HP, Round: round,
	}))
	r.sendTo(r.P2, NewEvent(EventBattleResult, BattleResultPayload{
		Result: mirror(result1), MyHP: s2.HP, OpponentHP: s1.HP, Round: round,
	}))

	if s1.HP <= 0 || s2.HP <= 0 {
		r.gameOverLocked()
		return
	}
	r.scheduleNextRoundLocked()
}

func mirror(result string) string {
	switch result {
	case "win":
		return "lose"
	case "lose":
		return "win"
	default:
		return result
	}
}

func clampHP(hp int) int {
	if hp < 0 {
		return 0
	}
	return hp
}

// gameOverLocked broadcasts the final standings and destroys the room.
func (r *Room) gameOverLocked() {
	s1 := r.states[r.P1]
	s2 := r.states[r.P2]

	winner := "draw"
	var winnerID, loserID uuid.UUID
	switch {
	case s1.HP > s2.HP:
		winner = "p1"
		winnerID, loserID = r.P1, r.P2
	case s2.HP > s1.HP:
		winner = "p2"
		winnerID, loserID = r.P2, r.P1
	}

	r.broadcast(NewEvent(EventGameOver, GameOverPayload{
		Winner: winner,
		P1HP:   s1.HP,
		P2HP:   s2.HP,
	}))
	r.logger.WithFields(logrus.Fields{"winner": winner, "round": r.Round}).Info("game over")

	if winner != "draw" && r.OnGameOver != nil {
		r.OnGameOver(winnerID, loserID)
	}
	r.destroyLocked([]uuid.UUID{r.P1, r.P2})
}

func (r *Room) scheduleNextRoundLocked() {
	var t *time.Timer
	t = time.AfterFunc(r.cfg.InterRoundDelay, func() { r.nextRound(t) })
	r.nextRoundTimer = t
}

func (r *Room) nextRound(t *time.Timer) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || r.nextRoundTimer != t {
		return
	}
	r.nextRoundTimer = nil
	r.Round++
	r.enterPreparationLocked()
}

// HandleAction applies a player_action mutation. Actions are accepted only
// during preparation; anything arriving in another phase is dropped without
// error, because the client UI may race the server's own transition. Every
// accepted mutation pushes an opponent_sync to the other player.
func (r *Room) HandleAction(playerID uuid.UUID, action string, data json.RawMessage) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || r.Phase != PhasePreparation {
		return
	}
	s, ok := r.states[playerID]
	if !ok {
		return
	}

	applied := false
	switch action {
	case ActionBuyCard:
		applied = r.buyCard(s, data)
	case ActionPlaceUnit:
		applied = r.placeUnit(s, data)
	case ActionRemoveUnit:
		applied = r.removeUnit(s, data)
	case ActionSellUnit:
		applied = r.sellUnit(s, data)
	case ActionRefreshShop:
		applied = r.refreshShop(s)
	default:
		r.logger.WithField("action", action).Debug("unknown player action dropped")
	}

	if applied {
		r.syncOpponentLocked(playerID)
	}
}

type buyCardData struct {
	Unit models.UnitTemplate `json:"unit"`
}

type placeUnitData struct {
	UnitID   uuid.UUID `json:"unitId"`
	Position int       `json:"position"`
}

type unitRefData struct {
	UnitID uuid.UUID `json:"unitId"`
}

// buyCard charges the star-priced cost and appends the unit to the bench.
// Insufficient gold or a full bench rejects the mutation with state intact.
func (r *Room) buyCard(s *BattleState, data json.RawMessage) bool {
	var d buyCardData
	if err := json.Unmarshal(data, &d); err != nil || d.Unit.Name == "" {
		return false
	}
	unit := models.NewUnit(d.Unit)
	cost := r.cfg.BuyCost(unit.Star)
	if s.Gold < cost || len(s.Bench) >= r.cfg.BenchCapacity {
		return false
	}
	s.Gold -= cost
	s.Bench = append(s.Bench, unit)
	return true
}

// placeUnit moves a bench unit onto a free board position.
func (r *Room) placeUnit(s *BattleState, data json.RawMessage) bool {
	var d placeUnitData
	if err := json.Unmarshal(data, &d); err != nil {
		return false
	}
	if d.Position < 0 || d.Position >= models.BoardPositions {
		return false
	}
	if s.boardAt(d.Position) != nil {
		return false
	}
	unit := s.takeFromBench(d.UnitID)
	if unit == nil {
		return false
	}
	unit.Position = d.Position
	s.Board = append(s.Board, unit)
	return true
}

// removeUnit moves a placed unit back to the bench. The return path is never
// capacity-checked so place-then-remove always restores the prior state.
func (r *Room) removeUnit(s *BattleState, data json.RawMessage) bool {
	var d unitRefData
	if err := json.Unmarshal(data, &d); err != nil {
		return false
	}
	unit := s.takeFromBoard(d.UnitID)
	if unit == nil {
		return false
	}
	unit.Position = models.BenchPosition
	s.Bench = append(s.Bench, unit)
	return true
}

// sellUnit removes a unit from bench or board and refunds the sell price.
func (r *Room) sellUnit(s *BattleState, data json.RawMessage) bool {
	var d unitRefData
	if err := json.Unmarshal(data, &d); err != nil {
		return false
	}
	unit := s.takeFromBench(d.UnitID)
	if unit == nil {
		unit = s.takeFromBoard(d.UnitID)
	}
	if unit == nil {
		return false
	}
	s.Gold += r.cfg.SellRefund(unit.Star)
	return true
}

// refreshShop is gold-only bookkeeping; shop contents live client-side.
func (r *Room) refreshShop(s *BattleState) bool {
	if s.Gold < r.cfg.RefreshCost {
		return false
	}
	s.Gold -= r.cfg.RefreshCost
	return true
}

// SyncStatePayload is the direct-merge escape hatch: any present field
// replaces the sender's corresponding state wholesale.
type SyncStatePayload struct {
	Units []models.Unit `json:"units"`
	Bench []models.Unit `json:"bench"`
	Gold  *int          `json:"gold"`
}

// HandleSyncState merges a partial battle state from the client. Accepted
// only during preparation, like every other mutation.
func (r *Room) HandleSyncState(playerID uuid.UUID, data json.RawMessage) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed || r.Phase != PhasePreparation {
		return
	}
	s, ok := r.states[playerID]
	if !ok {
		return
	}
	var d SyncStatePayload
	if err := json.Unmarshal(data, &d); err != nil {
		r.logger.WithField("player", playerID).Debug("malformed sync_state dropped")
		return
	}
	if d.Units != nil {
		s.Board = sanitizeBoard(d.Units)
	}
	if d.Bench != nil {
		bench := make([]*models.Unit, 0, len(d.Bench))
		for i := range d.Bench {
			u := d.Bench[i]
			u.Position = models.BenchPosition
			bench = append(bench, &u)
		}
		s.Bench = bench
	}
	if d.Gold != nil {
		s.Gold = *d.Gold
	}
	r.syncOpponentLocked(playerID)
}

// sanitizeBoard keeps at most one unit per valid position, first write wins.
func sanitizeBoard(units []models.Unit) []*models.Unit {
	board := make([]*models.Unit, 0, len(units))
	taken := map[int]bool{}
	for i := range units {
		u := units[i]
		if u.Position < 0 || u.Position >= models.BoardPositions || taken[u.Position] {
			continue
		}
		taken[u.Position] = true
		board = append(board, &u)
	}
	return board
}

// syncOpponentLocked pushes the mutator's current state to the other player
// only; the mutator never receives their own echoed state.
func (r *Room) syncOpponentLocked(playerID uuid.UUID) {
	s := r.states[playerID]
	r.sendTo(r.Opponent(playerID), NewEvent(EventOpponentSync, OpponentSyncPayload{
		Units: UnitViews(s.Board),
		Bench: UnitViews(s.Bench),
		Gold:  s.Gold,
	}))
}

// HandleDisconnect tears the room down because a player left: the opponent is
// notified exactly once, every pending timer is cancelled before any late
// tick can fire into a dead room, and no partial combat state survives.
func (r *Room) HandleDisconnect(playerID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return
	}
	opponent := r.Opponent(playerID)
	if opponent == uuid.Nil {
		return
	}
	r.sendTo(opponent, NewEvent(EventOpponentDisconnected, struct{}{}))
	r.logger.WithField("player", playerID).Info("player disconnected, room destroyed")
	r.destroyLocked([]uuid.UUID{opponent})
}

// destroyLocked closes the room: timers stopped, battle context cancelled,
// destruction callback fired once.
func (r *Room) destroyLocked(remaining []uuid.UUID) {
	r.closed = true
	r.stopPrepTimerLocked()
	if r.nextRoundTimer != nil {
		r.nextRoundTimer.Stop()
		r.nextRoundTimer = nil
	}
	r.cancel()
	if r.OnDestroyed != nil {
		r.OnDestroyed(r.ID, remaining)
	}
}

func (r *Room) stopPrepTimerLocked() {
	if r.prepTimer != nil {
		r.prepTimer.Stop()
		r.prepTimer = nil
	}
}

// Closed reports whether the room has been torn down.
func (r *Room) Closed() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.closed
}

func (r *Room) broadcast(ev Event) {
	if r.BroadcastFn != nil {
		r.BroadcastFn(ev)
	}
}

func (r *Room) sendTo(playerID uuid.UUID, ev Event) {
	if r.BroadcastToPlayerFn != nil {
		r.BroadcastToPlayerFn(playerID, ev)
	}
}

func combatView(u *models.CombatUnit) UnitView {
	return UnitView{
		ID:        u.ID,
		Name:      u.Name,
		Attack:    u.Attack,
		Health:    u.DisplayHealth(),
		MaxHealth: u.MaxHealth,
		Star:      u.Star,
		Trait:     u.Trait,
		Position:  u.Position,
	}
}
