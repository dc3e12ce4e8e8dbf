// internal/handlers/arena_server.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/404zoo/arena/internal/config"
	"github.com/404zoo/arena/internal/game"
	"github.com/404zoo/arena/internal/matchmaking"
	"github.com/404zoo/arena/internal/models"
	"github.com/404zoo/arena/internal/session"
)

// writeTimeout bounds a single outbound socket write.
const writeTimeout = 3 * time.Second

// outboundBuffer is the per-connection event queue depth. A client that
// cannot drain this many events starts losing messages rather than stalling
// the room.
const outboundBuffer = 64

// client is one connected socket's outbound side: an ordered event queue
// drained by a single writer goroutine, so broadcasts for a room arrive in
// the exact order they were emitted. The mutex serializes enqueue against
// shutdown, so a broadcaster that resolved the client just before teardown
// can never send on the closed channel.
type client struct {
	playerID uuid.UUID

	mu     sync.Mutex
	closed bool
	out    chan game.Event
}

// enqueue queues one event. It reports whether the event was accepted and
// whether the client was already shut down.
func (c *client) enqueue(ev game.Event) (queued, closed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, true
	}
	select {
	case c.out <- ev:
		return true, false
	default:
		return false, false
	}
}

// shutdown closes the outbound queue exactly once, ending the write pump.
// Enqueues arriving afterwards are dropped, never panicked on.
func (c *client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

// ArenaServer coordinates the session registry, the match queue and the room
// table. It owns the only cross-component flows: pairing, disconnect
// unwinding and the liveness sweep.
type ArenaServer struct {
	cfg    *config.Config
	logger *logrus.Logger

	Sessions *session.Registry
	Queue    *matchmaking.Queue
	Rooms    *game.RoomStore

	clientsMu sync.Mutex
	clients   map[uuid.UUID]*client

	// pairMu serializes tryPair so two racing enqueues cannot interleave
	// their pops.
	pairMu sync.Mutex
}

// NewArenaServer wires an empty server.
func NewArenaServer(cfg *config.Config, logger *logrus.Logger) *ArenaServer {
	return &ArenaServer{
		cfg:      cfg,
		logger:   logger,
		Sessions: session.NewRegistry(logger),
		Queue:    matchmaking.NewQueue(),
		Rooms:    game.NewRoomStore(),
		clients:  make(map[uuid.UUID]*client),
	}
}

// Connect registers a freshly accepted socket, starts its writer goroutine
// and sends the connected handshake.
func (s *ArenaServer) Connect(conn *websocket.Conn) *models.Player {
	p := s.Sessions.Register(conn)

	c := &client{playerID: p.ID, out: make(chan game.Event, outboundBuffer)}
	s.clientsMu.Lock()
	s.clients[p.ID] = c
	s.clientsMu.Unlock()

	go s.writePump(c, conn)

	s.SendTo(p.ID, game.NewEvent(game.EventConnected, game.ConnectedPayload{PlayerID: p.ID}))
	return p
}

// writePump drains one client's queue onto the socket. Write failures are
// swallowed; the read loop notices the dead connection and unwinds it.
func (s *ArenaServer) writePump(c *client, conn *websocket.Conn) {
	for ev := range c.out {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.WithError(err).WithField("event", ev.Type).Error("failed to marshal outbound event")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err = conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"player": c.playerID, "event": ev.Type,
			}).Debug("dropped outbound event on closed socket")
		}
	}
}

// SendTo queues an event for one player, best-effort: unknown players,
// shut-down clients and full queues drop the event silently.
func (s *ArenaServer) SendTo(playerID uuid.UUID, ev game.Event) {
	s.clientsMu.Lock()
	c, ok := s.clients[playerID]
	s.clientsMu.Unlock()
	if !ok {
		return
	}
	queued, closed := c.enqueue(ev)
	if !queued && !closed {
		s.logger.WithFields(logrus.Fields{
			"player": playerID, "event": ev.Type,
		}).Warn("outbound queue full, event dropped")
	}
}

// HandleSetProfile applies the platform-provided display name and rating.
func (s *ArenaServer) HandleSetProfile(playerID uuid.UUID, name string, rating int) {
	s.Sessions.SetProfile(playerID, name, rating)
}

// HandleStartMatch enqueues an idle player for pairing. Players in any other
// status are silently rejected.
func (s *ArenaServer) HandleStartMatch(playerID uuid.UUID, deck []models.UnitTemplate) {
	if !s.Sessions.TransitionStatus(playerID, models.StatusIdle, models.StatusMatching) {
		return
	}
	pos, ok := s.Queue.Enqueue(playerID, deck)
	if !ok {
		s.Sessions.SetStatus(playerID, models.StatusIdle)
		return
	}
	s.SendTo(playerID, game.NewEvent(game.EventMatchingStarted, game.MatchingStartedPayload{Position: pos}))
	s.tryPair()
}

// HandleCancelMatch removes a matching player from the queue.
func (s *ArenaServer) HandleCancelMatch(playerID uuid.UUID) {
	if !s.Sessions.TransitionStatus(playerID, models.StatusMatching, models.StatusIdle) {
		return
	}
	s.Queue.Remove(playerID)
	s.SendTo(playerID, game.NewEvent(game.EventMatchingCancelled, struct{}{}))
}

// tryPair drains the queue into rooms while two valid entries remain.
// Validity is re-checked at pop time because queue membership and live
// status can diverge between enqueue and pairing.
func (s *ArenaServer) tryPair() {
	s.pairMu.Lock()
	defer s.pairMu.Unlock()
	for {
		e1, e2, ok := s.Queue.PopPair(func(id uuid.UUID) bool {
			st, found := s.Sessions.Status(id)
			return found && st == models.StatusMatching
		})
		if !ok {
			return
		}
		s.createRoom(e1, e2)
	}
}

// createRoom instantiates a room for a validated pair, wires its callbacks
// and starts the first preparation phase.
func (s *ArenaServer) createRoom(e1, e2 matchmaking.Entry) {
	r := game.NewRoom(s.cfg, s.logger, e1.PlayerID, e2.PlayerID, e1.Deck, e2.Deck)

	r.BroadcastFn = func(ev game.Event) {
		s.SendTo(r.P1, ev)
		s.SendTo(r.P2, ev)
	}
	r.BroadcastToPlayerFn = s.SendTo
	r.OnGameOver = func(winnerID, loserID uuid.UUID) {
		winStats, loseStats := s.Sessions.ApplyMatchResult(winnerID, loserID)
		if winStats != nil {
			s.SendTo(winnerID, game.NewEvent(game.EventProfileUpdate, winStats))
		}
		if loseStats != nil {
			s.SendTo(loserID, game.NewEvent(game.EventProfileUpdate, loseStats))
		}
	}
	r.OnDestroyed = func(roomID uuid.UUID, remaining []uuid.UUID) {
		s.Rooms.DeleteRoom(roomID)
		for _, pid := range remaining {
			s.Sessions.LeaveRoom(pid)
		}
	}

	s.Rooms.AddRoom(r)
	s.Sessions.EnterRoom(e1.PlayerID, r.ID)
	s.Sessions.EnterRoom(e2.PlayerID, r.ID)

	n1, rt1, _ := s.Sessions.Profile(e1.PlayerID)
	n2, rt2, _ := s.Sessions.Profile(e2.PlayerID)
	s.SendTo(e1.PlayerID, game.NewEvent(game.EventMatchFound, game.MatchFoundPayload{
		RoomID:   r.ID,
		PlayerID: "p1",
		Opponent: game.OpponentInfo{Name: n2, Rating: rt2},
	}))
	s.SendTo(e2.PlayerID, game.NewEvent(game.EventMatchFound, game.MatchFoundPayload{
		RoomID:   r.ID,
		PlayerID: "p2",
		Opponent: game.OpponentInfo{Name: n1, Rating: rt1},
	}))

	s.logger.WithFields(logrus.Fields{
		"room": r.ID, "p1": e1.PlayerID, "p2": e2.PlayerID,
	}).Info("match created")

	r.Start()
}

// roomFor resolves a player's current room, if any.
func (s *ArenaServer) roomFor(playerID uuid.UUID) (*game.Room, bool) {
	roomID := s.Sessions.RoomID(playerID)
	if roomID == uuid.Nil {
		return nil, false
	}
	return s.Rooms.GetRoom(roomID)
}

// HandleReady forwards a ready flag into the player's room.
func (s *ArenaServer) HandleReady(playerID uuid.UUID) {
	if r, ok := s.roomFor(playerID); ok {
		r.HandleReady(playerID)
	}
}

// HandlePlayerAction forwards a preparation-phase mutation into the room.
func (s *ArenaServer) HandlePlayerAction(playerID uuid.UUID, action string, data json.RawMessage) {
	if r, ok := s.roomFor(playerID); ok {
		r.HandleAction(playerID, action, data)
	}
}

// HandleSyncState forwards the direct-merge escape hatch into the room.
func (s *ArenaServer) HandleSyncState(playerID uuid.UUID, data json.RawMessage) {
	if r, ok := s.roomFor(playerID); ok {
		r.HandleSyncState(playerID, data)
	}
}

// Disconnect is the single cleanup path for an ended session, shared by
// socket closure and the liveness sweeper: queue entry removed, room torn
// down with the opponent notified, record deleted. Safe to call twice.
func (s *ArenaServer) Disconnect(playerID uuid.UUID) {
	s.clientsMu.Lock()
	c, ok := s.clients[playerID]
	if ok {
		delete(s.clients, playerID)
	}
	s.clientsMu.Unlock()
	if ok {
		c.shutdown()
	}

	s.Queue.Remove(playerID)
	if r, found := s.roomFor(playerID); found {
		r.HandleDisconnect(playerID)
	}
	s.Sessions.Unregister(playerID)
}

// RunSweeper periodically pings every registered connection and forces the
// disconnect-cleanup path for any that no longer answer, so half-closed
// sockets cannot leak players or rooms indefinitely.
func (s *ArenaServer) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ArenaServer) sweep(ctx context.Context) {
	for _, p := range s.Sessions.Snapshot() {
		if p.Conn == nil {
			s.Disconnect(p.ID)
			continue
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := p.Conn.Ping(pingCtx)
		cancel()
		if err != nil {
			s.logger.WithField("player", p.ID).Info("liveness sweep evicting dead connection")
			p.Conn.Close(websocket.StatusGoingAway, "liveness sweep")
			s.Disconnect(p.ID)
		}
	}
}
