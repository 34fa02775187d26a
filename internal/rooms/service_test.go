// internal/rooms/service_test.go
package rooms

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/models"
	"github.com/oceanfold/paperoceans/internal/store"
)

func newTestService() *Service {
	return NewService(store.NewMemoryStore(), game.NewEngine(rand.NewSource(42)), nil)
}

func TestNewRoomCodeShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := NewRoomCode()
		require.Len(t, code, 5)
		for _, r := range code {
			assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(r))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should rarely collide")
}

func TestServiceCreateAndJoin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	room, err := svc.CreateRoom(ctx, "host", "Hosty")
	require.NoError(t, err)
	assert.Len(t, room.RoomID, 5)
	assert.Equal(t, int64(1), room.Version)

	joined, err := svc.JoinRoom(ctx, room.RoomID, "p1", "Joiner")
	require.NoError(t, err)
	assert.Len(t, joined.Players, 2)
	assert.Equal(t, int64(2), joined.Version, "every command commits one version")

	// The store holds the committed state, not the caller's copy.
	stored, err := svc.Get(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Len(t, stored.Players, 2)
}

func TestServiceRejectionDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	room, err := svc.CreateRoom(ctx, "host", "Hosty")
	require.NoError(t, err)

	_, err = svc.StartRound(ctx, room.RoomID, "host", false)
	var val *game.ValidationError
	require.ErrorAs(t, err, &val)

	stored, err := svc.Get(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version, "a rejected command writes nothing")
	assert.Equal(t, models.StatusLobby, stored.Status)
}

// conflictStore wraps a Store and fails the first n Updates with a version
// conflict, mimicking a concurrent writer landing between read and write.
type conflictStore struct {
	store.Store
	remaining int
}

func (c *conflictStore) Update(ctx context.Context, room *models.Room, expectedVersion int64) error {
	if c.remaining > 0 {
		c.remaining--
		return &game.StateConflictError{RoomCode: room.RoomID, Expected: expectedVersion, Actual: expectedVersion + 1}
	}
	return c.Store.Update(ctx, room, expectedVersion)
}

func TestServiceRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	cs := &conflictStore{Store: mem, remaining: 2}
	svc := NewService(cs, game.NewEngine(rand.NewSource(1)), nil)

	room, err := svc.CreateRoom(ctx, "host", "Hosty")
	require.NoError(t, err)

	joined, err := svc.JoinRoom(ctx, room.RoomID, "p1", "Joiner")
	require.NoError(t, err, "two conflicts stay under the retry budget")
	assert.Len(t, joined.Players, 2)
}

func TestServiceGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	cs := &conflictStore{Store: mem, remaining: maxApplyRetries + 1}
	svc := NewService(cs, game.NewEngine(rand.NewSource(1)), nil)

	room, err := svc.CreateRoom(ctx, "host", "Hosty")
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, room.RoomID, "p1", "Joiner")
	var conflict *game.StateConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestServiceHostLeaveDeletesRoom(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	room, err := svc.CreateRoom(ctx, "host", "Hosty")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.RoomID, "p1", "Joiner")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, room.RoomID, "host"))

	_, err = svc.Get(ctx, room.RoomID)
	var nf *game.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestServiceNonHostLeaveKeepsRoom(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	room, err := svc.CreateRoom(ctx, "host", "Hosty")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, room.RoomID, "p1", "Joiner")
	require.NoError(t, err)

	require.NoError(t, svc.LeaveRoom(ctx, room.RoomID, "p1"))

	stored, err := svc.Get(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Len(t, stored.Players, 1)
}
