// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/oceanfold/paperoceans/internal/auth"
	"github.com/oceanfold/paperoceans/internal/cache"
	"github.com/oceanfold/paperoceans/internal/database"
	"github.com/oceanfold/paperoceans/internal/game"
	"github.com/oceanfold/paperoceans/internal/handlers"
	"github.com/oceanfold/paperoceans/internal/middleware"
	"github.com/oceanfold/paperoceans/internal/rooms"
	"github.com/oceanfold/paperoceans/internal/store"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Room documents live in Redis when it is reachable, so multiple server
	// instances share state; otherwise a single-process in-memory store.
	var st store.Store
	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("Redis unavailable; using in-memory room store")
		st = store.NewMemoryStore()
	} else {
		st = store.NewRedisStore(cache.Rdb)
	}

	engine := game.NewEngine(nil)
	svc := rooms.NewService(st, engine, logger)
	rs := handlers.NewRoomServer(svc, logger)

	mux := http.NewServeMux()

	// room endpoints
	mux.Handle("/room/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateRoomHandler(rs),
	)))
	mux.Handle("/room/join", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.JoinRoomHandler(rs),
	)))

	// room websocket
	mux.Handle("/room/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.RoomWSHandler(logger, rs),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
