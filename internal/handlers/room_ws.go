// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oceanfold/paperoceans/internal/auth"
	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/middleware"
	"github.com/oceanfold/paperoceans/internal/models"
)

// RoomMessage is the envelope for incoming WebSocket commands. Fields beyond
// Type are populated per command.
type RoomMessage struct {
	Type string `json:"type"`

	// Index selects a buffered card for choose_kept.
	Index int `json:"index"`

	// First and Second are hand indices for play_duo.
	First  int `json:"first"`
	Second int `json:"second"`

	// CardID names a discard-pile card for resolve_crab_pick.
	CardID string `json:"card_id,omitempty"`

	// TargetID names another player for kick_player and resolve_shark_steal.
	TargetID string `json:"target_id,omitempty"`

	// Continue distinguishes a continued round from a fresh game on start_round.
	Continue bool `json:"continue,omitempty"`
}

// RoomWSHandler upgrades the connection for a room at /room/ws/{code}. It
// authenticates the session token, verifies the seat exists in the room,
// streams full snapshots from the store subscription, and routes incoming
// commands through the service. Rejections go only to the sending client;
// committed transitions reach everyone through the snapshot stream.
func RoomWSHandler(logger *logrus.Logger, rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if len(pathParts) < 1 || pathParts[0] == "" {
			http.Error(w, "Missing room code in path (/room/ws/{code})", http.StatusBadRequest)
			return
		}
		code := strings.ToUpper(pathParts[0])

		room, err := rs.Service.Get(r.Context(), code)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"room"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error for room %s: %v", code, err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

		if c.Subprotocol() != "room" {
			logger.Warnf("Client for room %s connected with invalid subprotocol: %s", code, c.Subprotocol())
			c.Close(websocket.StatusPolicyViolation, "Client must use the 'room' subprotocol.")
			return
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path, code)

		playerID, _, err := authenticateRequest(r)
		if err != nil {
			logger.Warnf("Authentication failed for room %s: %v", code, err)
			c.Close(InvalidAuthTokenError, "Authentication failed.")
			return
		}
		if room.PlayerByID(playerID) == nil {
			logger.Warnf("Player %s has no seat in room %s. Closing connection.", playerID, code)
			c.Close(websocket.StatusPolicyViolation, "You are not seated in this room.")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		snapshots, unsubscribe, err := rs.Service.Store().Subscribe(ctx, code)
		if err != nil {
			logger.Warnf("Subscribe failed for room %s: %v", code, err)
			c.Close(websocket.StatusInternalError, "Could not subscribe to room updates.")
			return
		}
		defer unsubscribe()

		// Initial state, then every committed write.
		sendWsMessage(c, snapshotMessage(room))
		go pushSnapshots(ctx, c, snapshots, cancel, logger, code)

		readRoomMessages(ctx, c, rs, code, playerID, logger)

		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, code, nil)
	}
}

// pushSnapshots forwards store notifications to the client until the
// subscription or connection dies. A nil snapshot means the room was deleted.
func pushSnapshots(ctx context.Context, c *websocket.Conn, snapshots <-chan *models.Room, cancel context.CancelFunc, logger *logrus.Logger, code string) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if snap == nil {
				logger.Infof("Room %s closed; notifying subscriber.", code)
				sendWsMessage(c, map[string]string{"type": "room_closed"})
				c.Close(websocket.StatusNormalClosure, "Room closed.")
				return
			}
			sendWsMessage(c, snapshotMessage(snap))
		}
	}
}

func snapshotMessage(room *models.Room) map[string]interface{} {
	return map[string]interface{}{
		"type": "room_state",
		"room": room,
	}
}

// readRoomMessages decodes client commands and applies them through the
// service. Every command runs against freshly read state, so a stale client
// simply gets a rejection while the authoritative document stays consistent.
func readRoomMessages(ctx context.Context, c *websocket.Conn, rs *RoomServer, code, playerID string, logger *logrus.Logger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("WebSocket closed normally for player %s in room %s.", playerID, code)
			} else if strings.Contains(err.Error(), "context canceled") {
				logger.Infof("WebSocket context canceled for player %s in room %s.", playerID, code)
			} else {
				logger.Warnf("Error reading from WebSocket for player %s in room %s: %v (Status: %d)", playerID, code, err, status)
			}
			return
		}

		if msgType != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s in room %s. Ignoring.", msgType, playerID, code)
			continue
		}

		var msg RoomMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON from player %s in room %s: %v. Data: %s", playerID, code, err, string(data))
			sendWsError(c, "Invalid JSON format.")
			continue
		}

		logger.Debugf("Received command '%s' from player %s in room %s.", msg.Type, playerID, code)

		if msg.Type == "ping" {
			sendWsMessage(c, map[string]string{"type": "pong"})
			continue
		}

		if err := dispatchRoomCommand(ctx, rs, code, playerID, msg); err != nil {
			if isClientFault(err) {
				sendWsError(c, err.Error())
			} else {
				logger.WithError(err).Errorf("Command '%s' failed for player %s in room %s.", msg.Type, playerID, code)
				sendWsError(c, "Command could not be applied.")
			}
			continue
		}

		if msg.Type == "leave_room" {
			c.Close(websocket.StatusNormalClosure, "Left the room.")
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// dispatchRoomCommand routes one envelope to its service method.
func dispatchRoomCommand(ctx context.Context, rs *RoomServer, code, playerID string, msg RoomMessage) error {
	svc := rs.Service
	switch msg.Type {
	case "toggle_ready":
		_, err := svc.ToggleReady(ctx, code, playerID)
		return err
	case "kick_player":
		_, err := svc.KickPlayer(ctx, code, playerID, msg.TargetID)
		return err
	case "start_round":
		_, err := svc.StartRound(ctx, code, playerID, msg.Continue)
		return err
	case "draw_deck":
		_, err := svc.DrawDeck(ctx, code, playerID)
		return err
	case "choose_kept":
		_, err := svc.ChooseKept(ctx, code, playerID, msg.Index)
		return err
	case "draw_discard":
		_, err := svc.DrawDiscard(ctx, code, playerID)
		return err
	case "play_duo":
		_, err := svc.PlayDuo(ctx, code, playerID, msg.First, msg.Second)
		return err
	case "resolve_crab_pick":
		_, err := svc.ResolveCrabPick(ctx, code, playerID, msg.CardID)
		return err
	case "resolve_shark_steal":
		_, err := svc.ResolveSharkSteal(ctx, code, playerID, msg.TargetID)
		return err
	case "end_turn":
		_, err := svc.EndTurn(ctx, code, playerID)
		return err
	case "stop":
		_, err := svc.Stop(ctx, code, playerID)
		return err
	case "call_last_chance":
		_, err := svc.CallLastChance(ctx, code, playerID)
		return err
	case "return_to_lobby":
		_, err := svc.ReturnToLobby(ctx, code, playerID)
		return err
	case "leave_room":
		return svc.LeaveRoom(ctx, code, playerID)
	default:
		return &game.ValidationError{Reason: fmt.Sprintf("unknown command type: %s", msg.Type)}
	}
}

// isClientFault reports whether the rejection should be relayed verbatim to
// the sender rather than logged as a server problem.
func isClientFault(err error) bool {
	var val *game.ValidationError
	var nf *game.NotFoundError
	var full *game.CapacityError
	return errors.As(err, &val) || errors.As(err, &nf) || errors.As(err, &full)
}

// sendWsMessage marshals a message and sends it to the WebSocket client with
// a write timeout. Connection failures surface in the read loop.
func sendWsMessage(c *websocket.Conn, message interface{}) {
	if c == nil {
		return
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("Error marshaling WebSocket message: %v", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Write(writeCtx, websocket.MessageText, msgBytes); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			logrus.Debugf("Error writing WebSocket message: %v (Status: %d)", err, status)
		}
	}
}

// sendWsError sends a structured error message to the client.
func sendWsError(c *websocket.Conn, errorMsg string) {
	sendWsMessage(c, map[string]interface{}{
		"type":    "error",
		"message": errorMsg,
	})
}

// authenticateRequest resolves the session from the auth_token cookie or a
// token query parameter.
func authenticateRequest(r *http.Request) (playerID, name string, err error) {
	token := ""
	if cookie, cerr := r.Cookie("auth_token"); cerr == nil {
		token = cookie.Value
	}
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", "", errors.New("missing session token")
	}
	return auth.AuthenticateSessionToken(token)
}
