// internal/store/memory.go
package store

import (
	"context"
	"sync"

	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/models"
)

// MemoryStore is the in-process Store used by tests and single-node
// deployments. Snapshots are deep-copied on the way in and out so no caller
// ever aliases the stored document.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
	subs  map[string][]chan *models.Room
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*models.Room),
		subs:  make(map[string][]chan *models.Room),
	}
}

func (s *MemoryStore) Create(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.RoomID]; exists {
		return &game.ValidationError{Reason: "room code already in use"}
	}
	cp := room.Clone()
	cp.Version = 1
	s.rooms[room.RoomID] = cp
	room.Version = 1
	s.notifyLocked(room.RoomID, cp)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return nil, &game.NotFoundError{Kind: "room", ID: code}
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, room *models.Room, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rooms[room.RoomID]
	if !ok {
		return &game.NotFoundError{Kind: "room", ID: room.RoomID}
	}
	if cur.Version != expectedVersion {
		return &game.StateConflictError{RoomCode: room.RoomID, Expected: expectedVersion, Actual: cur.Version}
	}
	cp := room.Clone()
	cp.Version = expectedVersion + 1
	s.rooms[room.RoomID] = cp
	room.Version = cp.Version
	s.notifyLocked(room.RoomID, cp)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return &game.NotFoundError{Kind: "room", ID: code}
	}
	delete(s.rooms, code)
	for _, ch := range s.subs[code] {
		// nil marks deletion; the channel stays open until unsubscribed.
		select {
		case ch <- nil:
		default:
		}
	}
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, code string) (<-chan *models.Room, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return nil, nil, &game.NotFoundError{Kind: "room", ID: code}
	}
	ch := make(chan *models.Room, 16)
	s.subs[code] = append(s.subs[code], ch)
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		chans := s.subs[code]
		for i, c := range chans {
			if c == ch {
				s.subs[code] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel, nil
}

// notifyLocked fans the committed snapshot out to subscribers. A subscriber
// that cannot keep up drops intermediate snapshots; the next one supersedes
// them anyway.
func (s *MemoryStore) notifyLocked(code string, committed *models.Room) {
	for _, ch := range s.subs[code] {
		select {
		case ch <- committed.Clone():
		default:
		}
	}
}
