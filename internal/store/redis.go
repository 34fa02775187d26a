// internal/store/redis.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/models"
)

const (
	roomKeyPrefix     = "paperoceans:room:"
	roomChannelPrefix = "paperoceans:room-updates:"

	// roomTTL reaps abandoned rooms. Every committed write refreshes it.
	roomTTL = 24 * time.Hour
)

// RedisStore keeps room documents as JSON values in Redis. Compare-and-swap
// runs inside a WATCH transaction on the room key: if any other writer
// commits between our read and our EXEC the transaction fails and the update
// surfaces as a version conflict. Snapshot fanout rides Redis pub/sub.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func roomKey(code string) string     { return roomKeyPrefix + code }
func roomChannel(code string) string { return roomChannelPrefix + code }

func (s *RedisStore) Create(ctx context.Context, room *models.Room) error {
	room.Version = 1
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room %s: %w", room.RoomID, err)
	}
	ok, err := s.client.SetNX(ctx, roomKey(room.RoomID), data, roomTTL).Result()
	if err != nil {
		return fmt.Errorf("create room %s: %w", room.RoomID, err)
	}
	if !ok {
		return &game.ValidationError{Reason: "room code already in use"}
	}
	if err := s.client.Publish(ctx, roomChannel(room.RoomID), data).Err(); err != nil {
		log.WithError(err).Warnf("publish create for room %s", room.RoomID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, code string) (*models.Room, error) {
	data, err := s.client.Get(ctx, roomKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &game.NotFoundError{Kind: "room", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", code, err)
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("unmarshal room %s: %w", code, err)
	}
	return &room, nil
}

func (s *RedisStore) Update(ctx context.Context, room *models.Room, expectedVersion int64) error {
	key := roomKey(room.RoomID)
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return &game.NotFoundError{Kind: "room", ID: room.RoomID}
		}
		if err != nil {
			return err
		}
		var cur models.Room
		if err := json.Unmarshal(data, &cur); err != nil {
			return fmt.Errorf("unmarshal current room %s: %w", room.RoomID, err)
		}
		if cur.Version != expectedVersion {
			return &game.StateConflictError{RoomCode: room.RoomID, Expected: expectedVersion, Actual: cur.Version}
		}
		room.Version = expectedVersion + 1
		next, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("marshal room %s: %w", room.RoomID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, roomTTL)
			pipe.Publish(ctx, roomChannel(room.RoomID), next)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer committed between our read and EXEC.
		return &game.StateConflictError{RoomCode: room.RoomID, Expected: expectedVersion, Actual: -1}
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, code string) error {
	n, err := s.client.Del(ctx, roomKey(code)).Result()
	if err != nil {
		return fmt.Errorf("delete room %s: %w", code, err)
	}
	if n == 0 {
		return &game.NotFoundError{Kind: "room", ID: code}
	}
	// Empty payload marks deletion for subscribers.
	if err := s.client.Publish(ctx, roomChannel(code), "").Err(); err != nil {
		log.WithError(err).Warnf("publish delete for room %s", code)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context, code string) (<-chan *models.Room, func(), error) {
	if _, err := s.Get(ctx, code); err != nil {
		return nil, nil, err
	}
	pubsub := s.client.Subscribe(ctx, roomChannel(code))
	out := make(chan *models.Room, 16)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			if msg.Payload == "" {
				// Room deleted.
				select {
				case out <- nil:
				default:
				}
				continue
			}
			var room models.Room
			if err := json.Unmarshal([]byte(msg.Payload), &room); err != nil {
				log.WithError(err).Warnf("bad snapshot on %s", msg.Channel)
				continue
			}
			select {
			case out <- &room:
			default:
				// Slow subscriber; drop in favor of the next snapshot.
			}
		}
	}()

	cancel := func() { _ = pubsub.Close() }
	return out, cancel, nil
}
