// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/404zoo/arena/internal/auth"
	"github.com/404zoo/arena/internal/middleware"
	"github.com/404zoo/arena/internal/models"
)

// ClientMessage is the wire envelope for every inbound message.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type setProfilePayload struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

type startMatchPayload struct {
	Deck []models.UnitTemplate `json:"deck"`
}

type playerActionPayload struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ArenaWSHandler upgrades the HTTP connection to WebSocket, registers the
// session and runs the read loop until the socket dies. An optional ?token=
// query parameter carries a platform identity token; a bad token never
// refuses the connection, it just leaves the guest profile in place.
func ArenaWSHandler(logger *logrus.Logger, srv *ArenaServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"arena"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		p := srv.Connect(c)

		if token := r.URL.Query().Get("token"); token != "" && srv.cfg.TokenSecret != "" {
			claims, err := auth.ParseProfileToken([]byte(srv.cfg.TokenSecret), token)
			if err != nil {
				logger.WithError(err).WithField("player", p.ID).Warn("ignoring invalid identity token")
			} else {
				srv.HandleSetProfile(p.ID, claims.Name, claims.Rating)
			}
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readErr := readArenaMessages(ctx, c, srv, p, logger)

		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, readErr)
		srv.Disconnect(p.ID)
	}
}

// readArenaMessages is the blocking inbound loop: unmarshal, route, repeat.
// Malformed frames are logged and dropped with the connection left open;
// only transport errors end the loop.
func readArenaMessages(ctx context.Context, c *websocket.Conn, srv *ArenaServer, p *models.Player, logger *logrus.Logger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
				strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.WithField("player", p.ID).Warn("non-text frame ignored")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.WithError(err).WithField("player", p.ID).Warn("invalid JSON dropped")
			continue
		}

		routeMessage(srv, p, msg, logger)
	}
}

// routeMessage dispatches one inbound message. Stale references and
// wrong-status actions are expected races, not faults: each handler drops
// them as an idempotent no-op and nothing is surfaced to the sender.
func routeMessage(srv *ArenaServer, p *models.Player, msg ClientMessage, logger *logrus.Logger) {
	switch msg.Type {
	case "set_profile":
		var pl setProfilePayload
		if err := json.Unmarshal(msg.Payload, &pl); err != nil {
			logger.WithError(err).WithField("player", p.ID).Warn("malformed set_profile dropped")
			return
		}
		srv.HandleSetProfile(p.ID, pl.Name, pl.Rating)

	case "start_match":
		var pl startMatchPayload
		if err := json.Unmarshal(msg.Payload, &pl); err != nil {
			logger.WithError(err).WithField("player", p.ID).Warn("malformed start_match dropped")
			return
		}
		srv.HandleStartMatch(p.ID, pl.Deck)

	case "cancel_match":
		srv.HandleCancelMatch(p.ID)

	case "player_action":
		var pl playerActionPayload
		if err := json.Unmarshal(msg.Payload, &pl); err != nil {
			logger.WithError(err).WithField("player", p.ID).Warn("malformed player_action dropped")
			return
		}
		srv.HandlePlayerAction(p.ID, pl.Action, pl.Data)

	case "ready":
		srv.HandleReady(p.ID)

	case "sync_state":
		srv.HandleSyncState(p.ID, msg.Payload)

	case "battle_end":
		// Accepted but ignored: the server is authoritative over battle
		// outcome.
		logger.WithField("player", p.ID).Debug("client battle_end ignored")

	default:
		logger.WithFields(logrus.Fields{
			"player": p.ID, "type": msg.Type,
		}).Warn("unknown message type dropped")
	}
}
