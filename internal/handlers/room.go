// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oceanfold/paperoceans/internal/auth"
	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/models"
)

type createRoomRequest struct {
	Name string `json:"name"`
}

type joinRoomRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// roomResponse is the payload for both create and join: the seat identity,
// its session token, and the committed room snapshot.
type roomResponse struct {
	RoomCode string       `json:"room_code"`
	PlayerID string       `json:"player_id"`
	Token    string       `json:"token"`
	Room     *models.Room `json:"room"`
}

// CreateRoomHandler opens a new lobby hosted by a fresh guest identity and
// returns the room code plus a session token for the host seat.
func CreateRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		playerID := uuid.NewString()
		room, err := rs.Service.CreateRoom(r.Context(), playerID, name)
		if err != nil {
			rs.Logger.WithError(err).Error("create room failed")
			http.Error(w, "could not create room", http.StatusInternalServerError)
			return
		}

		token, err := auth.CreateSessionToken(playerID, name)
		if err != nil {
			rs.Logger.WithError(err).Error("session token mint failed")
			http.Error(w, "could not create session", http.StatusInternalServerError)
			return
		}
		setSessionCookie(w, token)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(roomResponse{
			RoomCode: room.RoomID,
			PlayerID: playerID,
			Token:    token,
			Room:     room,
		})
	}
}

// JoinRoomHandler seats a fresh guest identity in an existing lobby.
func JoinRoomHandler(rs *RoomServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request payload", http.StatusBadRequest)
			return
		}
		code := strings.ToUpper(strings.TrimSpace(req.Code))
		name := strings.TrimSpace(req.Name)
		if code == "" || name == "" {
			http.Error(w, "code and name are required", http.StatusBadRequest)
			return
		}

		playerID := uuid.NewString()
		room, err := rs.Service.JoinRoom(r.Context(), code, playerID, name)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		token, err := auth.CreateSessionToken(playerID, name)
		if err != nil {
			rs.Logger.WithError(err).Error("session token mint failed")
			http.Error(w, "could not create session", http.StatusInternalServerError)
			return
		}
		setSessionCookie(w, token)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(roomResponse{
			RoomCode: room.RoomID,
			PlayerID: playerID,
			Token:    token,
			Room:     room,
		})
	}
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
}

// writeEngineError maps engine rejections to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var nf *game.NotFoundError
	var full *game.CapacityError
	var val *game.ValidationError
	var conflict *game.StateConflictError
	switch {
	case errors.As(err, &nf):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &full):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &val):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &conflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
