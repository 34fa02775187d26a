// internal/rooms/service.go

// Package rooms applies engine commands to stored room documents. Every
// command follows the same discipline: read the current document, apply the
// pure engine command to a private copy, and commit with an optimistic
// versioned write. A write that loses a race is retried against freshly read
// state, so no two commands computed from the same stale read can both land.
package rooms

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oceanfold/paperoceans/internal/cache"
	"github.com/oceanfold/paperoceans/internal/database"
	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/models"
	"github.com/oceanfold/paperoceans/internal/store"
)

// maxApplyRetries bounds the re-read-and-retry loop on version conflicts.
const maxApplyRetries = 5

// maxCodeRetries bounds room-code collision retries on create.
const maxCodeRetries = 10

// Service is the command surface over stored rooms.
type Service struct {
	store  store.Store
	engine *game.Engine
	logger *logrus.Logger
}

// NewService wires the engine to a store.
func NewService(st store.Store, eng *game.Engine, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{store: st, engine: eng, logger: logger}
}

// Store exposes the underlying store for subscription wiring.
func (s *Service) Store() store.Store { return s.store }

// CreateRoom allocates a fresh code and persists a new lobby hosted by the
// creator.
func (s *Service) CreateRoom(ctx context.Context, hostID, hostName string) (*models.Room, error) {
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		room := s.engine.CreateRoom(NewRoomCode(), hostID, hostName)
		err := s.store.Create(ctx, room)
		if err == nil {
			s.logger.WithFields(logrus.Fields{"room": room.RoomID, "host": hostID}).Info("room created")
			return s.store.Get(ctx, room.RoomID)
		}
		var ve *game.ValidationError
		if errors.As(err, &ve) {
			continue // code collision, roll a new one
		}
		return nil, err
	}
	return nil, errors.New("could not allocate a unique room code")
}

// Apply runs a single engine command against the room's current state and
// commits the result. On a version conflict the command is re-applied to the
// freshly read document; validation errors reject without mutating anything.
func (s *Service) Apply(ctx context.Context, code string, cmd func(*models.Room) error) (*models.Room, error) {
	var conflict *game.StateConflictError
	for attempt := 0; attempt < maxApplyRetries; attempt++ {
		cur, err := s.store.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		next := cur.Clone()
		if err := cmd(next); err != nil {
			return nil, err
		}
		err = s.store.Update(ctx, next, cur.Version)
		if err == nil {
			s.afterCommit(ctx, cur, next)
			return next, nil
		}
		if errors.As(err, &conflict) {
			s.logger.WithField("room", code).Debugf("version conflict on attempt %d, retrying", attempt+1)
			continue
		}
		return nil, err
	}
	return nil, conflict
}

// afterCommit runs best-effort side work for a committed transition: new log
// entries go to the historian queue, and a finished game is archived.
func (s *Service) afterCommit(ctx context.Context, prev, next *models.Room) {
	now := time.Now().Unix()
	for _, entry := range next.Logs {
		if entry.ID <= prev.LogSeq {
			continue
		}
		record := cache.RoomLogRecord{
			RoomCode:  next.RoomID,
			EntryID:   entry.ID,
			Round:     next.Round,
			Text:      entry.Text,
			Severity:  entry.Severity,
			Timestamp: now,
		}
		if err := cache.PublishRoomLog(ctx, record); err != nil {
			s.logger.WithError(err).Warn("historian publish failed")
		}
	}
	if prev.Status != models.StatusFinished && next.Status == models.StatusFinished {
		if err := database.RecordFinishedGame(ctx, next); err != nil {
			s.logger.WithError(err).WithField("room", next.RoomID).Warn("archive failed")
		}
	}
}

// Get returns the current room snapshot.
func (s *Service) Get(ctx context.Context, code string) (*models.Room, error) {
	return s.store.Get(ctx, code)
}

// JoinRoom seats the actor in an open lobby.
func (s *Service) JoinRoom(ctx context.Context, code, actorID, name string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.JoinRoom(r, actorID, name)
	})
}

// ToggleReady flips the actor's lobby ready flag.
func (s *Service) ToggleReady(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.ToggleReady(r, actorID)
	})
}

// KickPlayer removes a seat (host only).
func (s *Service) KickPlayer(ctx context.Context, code, actorID, targetID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.KickPlayer(r, actorID, targetID)
	})
}

// StartRound opens play (host only).
func (s *Service) StartRound(ctx context.Context, code, actorID string, continueGame bool) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.StartRound(r, actorID, continueGame)
	})
}

// DrawDeck draws two cards into the keep/discard buffer.
func (s *Service) DrawDeck(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.DrawDeck(r, actorID)
	})
}

// ChooseKept keeps one buffered card.
func (s *Service) ChooseKept(ctx context.Context, code, actorID string, index int) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.ChooseKept(r, actorID, index)
	})
}

// DrawDiscard takes the top discard card into hand.
func (s *Service) DrawDiscard(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.DrawDiscard(r, actorID)
	})
}

// PlayDuo plays a matching pair from hand.
func (s *Service) PlayDuo(ctx context.Context, code, actorID string, i, j int) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.PlayDuo(r, actorID, i, j)
	})
}

// ResolveCrabPick completes a pending crab salvage.
func (s *Service) ResolveCrabPick(ctx context.Context, code, actorID, cardID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.ResolveCrabPick(r, actorID, cardID)
	})
}

// ResolveSharkSteal completes a pending shark steal.
func (s *Service) ResolveSharkSteal(ctx context.Context, code, actorID, targetID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.ResolveSharkSteal(r, actorID, targetID)
	})
}

// EndTurn passes play to the next seat.
func (s *Service) EndTurn(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.EndTurn(r, actorID)
	})
}

// Stop ends the round safely.
func (s *Service) Stop(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.Stop(r, actorID)
	})
}

// CallLastChance opens the betting lap.
func (s *Service) CallLastChance(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.CallLastChance(r, actorID)
	})
}

// ReturnToLobby resets a finished or ended game to the lobby (host only).
func (s *Service) ReturnToLobby(ctx context.Context, code, actorID string) (*models.Room, error) {
	return s.Apply(ctx, code, func(r *models.Room) error {
		return s.engine.ReturnToLobby(r, actorID)
	})
}

// LeaveRoom removes the actor's seat. A host leave dissolves the room
// entirely; subscribers observe the deletion.
func (s *Service) LeaveRoom(ctx context.Context, code, actorID string) error {
	dissolve := false
	_, err := s.Apply(ctx, code, func(r *models.Room) error {
		d, err := s.engine.LeaveRoom(r, actorID)
		dissolve = d
		return err
	})
	if err != nil {
		return err
	}
	if dissolve {
		s.logger.WithField("room", code).Info("host left; dissolving room")
		return s.store.Delete(ctx, code)
	}
	return nil
}
