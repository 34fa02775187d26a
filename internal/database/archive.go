// internal/database/archive.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oceanfold/paperoceans/internal/models"
)

// RecordFinishedGame persists the final outcome of a room: one row per game
// and one result row per seat. Upserts so a retried archive of the same room
// stays idempotent. No-op when the archive pool is not connected.
func RecordFinishedGame(ctx context.Context, room *models.Room) error {
	if DB == nil {
		return nil
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO games (room_code, rounds_played, winner_id, status)
			VALUES ($1, $2, $3, 'completed')
			ON CONFLICT (room_code) DO UPDATE
			SET rounds_played = $2, winner_id = $3, status = 'completed'
		`
		if _, err := tx.Exec(ctx, upsertGame, room.RoomID, room.Round, room.WinnerID); err != nil {
			return fmt.Errorf("upsert game row: %w", err)
		}

		for i := range room.Players {
			p := &room.Players[i]
			upsertResult := `
				INSERT INTO game_results (room_code, player_id, player_name, score, did_win)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (room_code, player_id)
				DO UPDATE SET score = $4, did_win = $5
			`
			didWin := p.ID == room.WinnerID
			if _, err := tx.Exec(ctx, upsertResult, room.RoomID, p.ID, p.Name, p.Score, didWin); err != nil {
				return fmt.Errorf("upsert result for %s: %w", p.ID, err)
			}
		}
		return nil
	})
}
