package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	floatchat "github.com/floatchat/floatchat"
	"github.com/floatchat/floatchat/internal/handlers"
	"github.com/floatchat/floatchat/internal/hub"
	"github.com/floatchat/floatchat/internal/services"
	"github.com/floatchat/floatchat/internal/widget"
)

func main() {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatal(fmt.Errorf("error getting user config dir: %w", err))
	}
	cfgPath := filepath.Join(cfgDir, "/floatchat")
	if err := os.MkdirAll(cfgPath, 0755); err != nil {
		log.Fatal(fmt.Errorf("error creating config directory: %w", err))
	}

	cfg, err := loadConfig(filepath.Join(cfgPath, "config.yaml"))
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	responder, err := cfg.Responder.responder(cfg.SystemPrompt, logger)
	if err != nil {
		log.Fatal(err)
	}

	var store handlers.Store
	var closeStore func() error
	switch cfg.Storage.Backend {
	case "", "memory":
		store = services.NewMemory()
	case "bolt":
		dbPath := cfg.Storage.Path
		if dbPath == "" {
			dbPath = filepath.Join(cfgPath, "store.db")
		}
		boltDB, err := services.NewBoltDB(dbPath)
		if err != nil {
			log.Fatal(err)
		}
		store = boltDB
		closeStore = boltDB.Close
	default:
		log.Fatalf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	greeting := cfg.Greeting
	if greeting == "" {
		greeting = widget.DefaultGreeting
	}

	m, err := handlers.NewMain(store, responder, hub.New(logger), greeting, cfg.HistoryLimit, logger)
	if err != nil {
		log.Fatal(err)
	}

	// Serve static files
	staticFS, err := fs.Sub(floatchat.StaticFS, "static")
	if err != nil {
		log.Fatal(err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	// Create custom mux
	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/api/message", m.HandleMessage)
	mux.HandleFunc("/api/history/{user_id}", m.HandleHistory)
	mux.HandleFunc("/echo", m.HandleEcho)
	mux.HandleFunc("/__dev__/reset", m.HandleReset)
	mux.HandleFunc("/sse/{user_id}", m.HandleSSE)
	mux.HandleFunc("/ws/{user_id}", m.HandleWS)
	mux.HandleFunc("/signal/{room_id}", m.HandleSignal)

	handler := handlers.Recover(logger, handlers.CORS(cfg.AllowedOrigins, mux))

	// Create custom server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			log.Printf("Failed to shutdown sse server: %v", err)
		}
		if closeStore != nil {
			if err := closeStore(); err != nil {
				log.Printf("Failed to close store: %v", err)
			}
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Println("Server starting on :" + cfg.Port)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt/terminate signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking select waiting for either interrupt or server error
	select {
	case err := <-serverErrors:
		log.Printf("Server error: %v", err)

	case sig := <-shutdown:
		log.Printf("Start shutdown, signal: %v", sig)

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// Gracefully shutdown the server
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Graceful shutdown failed: %v", err)
			if err := srv.Close(); err != nil {
				log.Printf("Forcing server close: %v", err)
			}
		}
	}
}
