// internal/handlers/api_server.go
package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/oceanfold/paperoceans/internal/rooms"
)

// RoomServer bundles the room command service with the logger the HTTP and
// WebSocket handlers share.
type RoomServer struct {
	Service *rooms.Service
	Logger  *logrus.Logger
}

func NewRoomServer(svc *rooms.Service, logger *logrus.Logger) *RoomServer {
	if logger == nil {
		logger = logrus.New()
	}
	return &RoomServer{Service: svc, Logger: logger}
}
