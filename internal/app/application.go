package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"lockstep/internal/activity"
	"lockstep/internal/api"
	"lockstep/internal/config"
	"lockstep/internal/database"
	"lockstep/internal/directory"
	"lockstep/internal/registry"
	"lockstep/internal/roster"
	"lockstep/internal/router"
	"lockstep/internal/websocket"
	pkgdatabase "lockstep/pkg/database"
)

// Application coordinates all system components.
type Application struct {
	config        *config.Config
	store         *database.Store
	rosterManager *roster.Manager
	registry      *registry.Registry
	directory     *directory.Directory
	tracker       *activity.Tracker
	messageRouter *router.Router
	gateway       *websocket.Gateway
	apiServer     *api.Server
	httpServer    *http.Server
}

// NewApplication builds the component graph in strict dependency order:
// Store → Roster → Registry/Directory/Tracker → Router → Gateway → API → HTTP.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbConfig := &pkgdatabase.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
	}

	store, err := database.NewStore(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	rosterManager := roster.NewManager(store)
	if err := rosterManager.LoadActiveSessions(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load active sessions: %w", err)
	}

	reg := registry.NewRegistry()
	dir := directory.NewDirectory()
	tracker := activity.NewTracker()

	messageRouter := router.NewRouter(reg, dir, tracker, rosterManager)

	gateway := websocket.NewGateway(reg, messageRouter, websocket.Options{
		PingInterval: cfg.WebSocket.PingInterval,
		ReadTimeout:  cfg.WebSocket.ReadTimeout,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		BufferSize:   cfg.WebSocket.BufferSize,
	})

	apiServer := api.NewServer(rosterManager, store, dir, reg)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", gateway.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:        cfg,
		store:         store,
		rosterManager: rosterManager,
		registry:      reg,
		directory:     dir,
		tracker:       tracker,
		messageRouter: messageRouter,
		gateway:       gateway,
		apiServer:     apiServer,
		httpServer:    httpServer,
	}, nil
}

// Start begins serving and verifies the listener came up before returning.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting Lockstep on %s", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Lockstep started successfully")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts the application down in reverse dependency order: HTTP first so
// no new connections arrive, then the store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down Lockstep")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.store.Close(); err != nil {
		log.Printf("Session store shutdown error: %v", err)
	}

	log.Printf("Lockstep shutdown complete")
	return nil
}

// GetAddr returns the server address for external connections.
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
