package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/quizcast/quizcast-backend/internal/config"
	"github.com/quizcast/quizcast-backend/internal/game"
	"github.com/quizcast/quizcast-backend/internal/websockets"
)

type Server struct {
	store    *game.RoomStore
	engine   *game.Engine
	registry *game.Registry
	ws       *websockets.Handler
}

// NewServer wires the core components together: registry, room store,
// engine and the websocket edge.
func NewServer() *Server {
	registry := game.NewRegistry()
	store := game.NewRoomStore(registry)
	engine := game.NewEngine(store)
	store.SetSessionCloser(engine)

	return &Server{
		store:    store,
		engine:   engine,
		registry: registry,
		ws:       websockets.NewHandler(store, engine),
	}
}

func (s *Server) HTTPServer(cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (s *Server) Addr(cfg *config.Config) string {
	return fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
}
