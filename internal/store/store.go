// internal/store/store.go

// Package store persists room documents behind an optimistic, versioned
// compare-and-swap contract. Every committed write bumps the room's version;
// an Update whose expected version no longer matches is rejected so the
// caller re-reads and retries instead of silently losing the race.
// Subscribers receive full-snapshot change notifications.
package store

import (
	"context"

	"github.com/oceanfold/paperoceans/internal/models"
)

// Store is the room-document boundary the engine requires of its
// persistence layer.
type Store interface {
	// Create persists a brand-new room at version 1. Fails if the code is
	// already taken.
	Create(ctx context.Context, room *models.Room) error

	// Get returns a copy of the current document; its Version field carries
	// the version an Update must match.
	Get(ctx context.Context, code string) (*models.Room, error)

	// Update commits the document iff the stored version still equals
	// expectedVersion, then bumps the version and notifies subscribers.
	// Returns *game.StateConflictError on a lost race.
	Update(ctx context.Context, room *models.Room, expectedVersion int64) error

	// Delete removes the document and closes its subscriptions. Subscribers
	// observe the deletion as a nil snapshot.
	Delete(ctx context.Context, code string) error

	// Subscribe streams full snapshots of the room after every committed
	// write. The returned cancel func releases the subscription.
	Subscribe(ctx context.Context, code string) (<-chan *models.Room, func(), error)
}
