package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docline/docline/chat"
	"github.com/docline/docline/config"
	"github.com/docline/docline/db"
	"github.com/docline/docline/services"
)

type Server struct {
	Config         *config.Config
	AuthRepository db.AuthRepository
	ChatRepository db.ChatRepository
	AuthService    services.AuthService
	ChatService    services.ChatService
	Hub            *chat.Hub
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully. Live websocket connections are closed by the shutdown.
func (s *Server) Start() {
	r := s.setupRouter()

	port := s.Config.Port
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r,
	}

	go func() {
		log.Printf("listening on :%d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("server exited")
}
