/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger engine server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize the selected store backend
  3. Optionally connect the Redis checkpoint cache
  4. Create the account service and API handler
  5. Start the server with graceful shutdown

COMMAND-LINE FLAGS:
  -port          HTTP server port (default: 8080)
  -backend       Store backend: sqlite | postgres | memory (default: sqlite)
  -db            SQLite database path (default: ledger.db, ":memory:" for in-memory)
  -database-url  PostgreSQL connection string (backend=postgres)
  -redis         Redis address for the checkpoint cache (empty = in-process cache)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait for active requests
  (30s timeout), close the store, exit.

EXAMPLES:
  ./server -db=":memory:"
  ./server -backend=postgres -database-url="postgres://localhost/ledger"
  ./server -redis="localhost:6379"
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amintahir16/lpg-gas-app-sub000/account"
	"github.com/amintahir16/lpg-gas-app-sub000/api"
	"github.com/amintahir16/lpg-gas-app-sub000/cache"
	"github.com/amintahir16/lpg-gas-app-sub000/ledger"
	memstore "github.com/amintahir16/lpg-gas-app-sub000/ledger/store"
	"github.com/amintahir16/lpg-gas-app-sub000/store/postgres"
	"github.com/amintahir16/lpg-gas-app-sub000/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	backend := flag.String("backend", "sqlite", "store backend: sqlite | postgres | memory")
	dbPath := flag.String("db", "ledger.db", "SQLite database path")
	databaseURL := flag.String("database-url", "", "PostgreSQL connection string")
	redisAddr := flag.String("redis", "", "Redis address for the checkpoint cache")
	flag.Parse()

	ctx := context.Background()

	// Store backend
	var txStore ledger.TxStore
	switch *backend {
	case "sqlite":
		st, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize sqlite store: %v", err)
		}
		defer st.Close()
		txStore = st
	case "postgres":
		st, err := postgres.New(ctx, *databaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize postgres store: %v", err)
		}
		defer st.Close()
		txStore = st
	case "memory":
		txStore = memstore.NewTxMemory()
	default:
		log.Fatalf("Unknown backend %q (want sqlite, postgres or memory)", *backend)
	}

	// Checkpoint cache
	var checkpoints cache.CheckpointCache
	if *redisAddr != "" {
		rc := cache.NewRedisCheckpointCache(*redisAddr, "", 0)
		if err := rc.Ping(ctx); err != nil {
			log.Fatalf("Failed to connect to redis at %s: %v", *redisAddr, err)
		}
		defer rc.Close()
		checkpoints = rc
	} else {
		checkpoints = cache.NewMemoryCheckpointCache()
	}

	service := account.NewService(txStore, account.AcceptAllInventory{}, checkpoints)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Ledger engine listening on http://localhost:%d (backend=%s)", *port, *backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
