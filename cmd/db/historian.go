// cmd/db/historian.go is an asynchronous historian service that pops room log
// records from a Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/oceanfold/paperoceans/internal/cache"
	"github.com/oceanfold/paperoceans/internal/database"
)

// HistorianService encapsulates the Redis + DB logic for capturing room logs
// and marking games abandoned when a certain inactivity threshold is reached.
type HistorianService struct {
	redisClient  *redis.Client
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration // duration until a game is marked "abandoned"
	lastActivity sync.Map      // map[string]time.Time, keyed by room code

	batchMu  sync.Mutex
	batch    []cache.RoomLogRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewHistorianService constructs a HistorianService instance from environment variables or defaults.
func NewHistorianService() *HistorianService {
	batchSize := getEnvInt("HISTORIAN_BATCH_SIZE", 20)
	flushMs := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	inactivitySec := getEnvInt("ROOM_INACTIVITY_TIMEOUT_SEC", 600) // default 10 min

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &HistorianService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.RoomLogRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two main loops:
//  1. A loop that reads from the Redis queue, accumulates records in a batch, and flushes them to the DB.
//  2. A periodic check for inactivity to mark games as abandoned.
func (hs *HistorianService) Run() {
	// Connect to the database.
	database.ConnectDB()
	if database.DB == nil {
		log.Fatal("historian requires a database; set PG_HOST")
	}

	// Start the background loops.
	go hs.readRedisLoop()
	go hs.inactivityLoop()

	log.Println("paperoceans-historian service started.")
	<-hs.ctx.Done()
	log.Println("paperoceans-historian shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the Redis queue.
func (hs *HistorianService) readRedisLoop() {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			hs.flushBatchToDB()

		default:
			// Use BLPop with a 3-second timeout so that context cancellation is handled.
			res, err := hs.redisClient.BLPop(hs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				// No record popped.
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			payload := res[1]
			var record cache.RoomLogRecord
			if err := json.Unmarshal([]byte(payload), &record); err != nil {
				log.Printf("invalid room log record: %v\n", err)
				continue
			}

			// Track last activity for the room.
			hs.lastActivity.Store(record.RoomCode, time.Now())

			hs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (hs *HistorianService) appendToBatch(record cache.RoomLogRecord) {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()

	hs.batch = append(hs.batch, record)
	if len(hs.batch) >= hs.batchSize {
		hs.flushBatchToDBLocked()
	}
}

// flushBatchToDB flushes the current batch to the database in a single transaction.
func (hs *HistorianService) flushBatchToDB() {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	hs.flushBatchToDBLocked()
}

func (hs *HistorianService) flushBatchToDBLocked() {
	if len(hs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.RoomLogRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]

	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertRoomLogTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoomLogTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d log entries to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically checks if any room has been silent beyond the
// configured threshold, and marks such games as abandoned.
func (hs *HistorianService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-hs.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			hs.lastActivity.Range(func(key, val interface{}) bool {
				roomCode, ok1 := key.(string)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > hs.inactivity {
					hs.markGameAbandoned(roomCode)
					hs.lastActivity.Delete(roomCode)
				}
				return true
			})
		}
	}
}

// markGameAbandoned marks a game as 'abandoned' in the database if it was still marked as 'in_progress'.
func (hs *HistorianService) markGameAbandoned(roomCode string) {
	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE games
			SET status = 'abandoned', end_time = NOW()
			WHERE room_code = $1 AND status = 'in_progress'
		`
		_, e := tx.Exec(ctx, q, roomCode)
		return e
	})
	if err != nil {
		log.Printf("failed to mark room %v abandoned: %v", roomCode, err)
	} else {
		log.Printf("Marked room %v as 'abandoned' due to inactivity.", roomCode)
	}
}

// insertRoomLogTx inserts a single log record into the room_logs table and
// upserts the game row if necessary. A finished game's row is left alone so
// the archive's 'completed' status is never downgraded.
func insertRoomLogTx(ctx context.Context, tx pgx.Tx, rec cache.RoomLogRecord) error {
	upsertGameQ := `
		INSERT INTO games (room_code, status, start_time)
		VALUES ($1, 'in_progress', NOW())
		ON CONFLICT (room_code) DO NOTHING
	`
	_, err := tx.Exec(ctx, upsertGameQ, rec.RoomCode)
	if err != nil {
		return err
	}

	logInsertQ := `
		INSERT INTO room_logs (
			room_code, entry_id, round, severity, text, logged_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6))
		ON CONFLICT (room_code, entry_id) DO NOTHING
	`
	_, err = tx.Exec(ctx, logInsertQ,
		rec.RoomCode, rec.EntryID, rec.Round, string(rec.Severity), rec.Text, rec.Timestamp,
	)
	return err
}

// beginTxFunc is a helper that starts a transaction using the provided pool,
// calls the function f with the transaction, and commits or rollbacks as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func main() {
	hs := NewHistorianService()
	hs.Run()
}
