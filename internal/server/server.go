package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/j9brown/victron-vebus/internal/config"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

type Server struct {
	port            uint
	httpLog         bool
	rootContext     *actor.RootContext
	controllerActor *actor.PID
	askTimeout      time.Duration
}

// NewServer exposes the controller status over HTTP.
func NewServer(cfg config.Config, rootContext *actor.RootContext, controllerActor *actor.PID) *http.Server {
	NewServer := &Server{
		port:            cfg.HttpPort,
		rootContext:     rootContext,
		controllerActor: controllerActor,
		httpLog:         cfg.HttpLog,
		askTimeout:      5 * time.Second,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
