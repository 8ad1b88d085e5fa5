/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Zakat calculation server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Open the SQLite cache store
  3. Start the serialized date resolver
  4. Configure HTTP router
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port           HTTP server port (default: 8080)
  -db             SQLite cache path (default: zakat-cache.db, ":memory:" works)
  -date-api       Hijri conversion base URL (default: public Aladhan endpoint)
  -date-interval  Pacing between date-source calls (default: 1s)
  -gold-api       Gold price endpoint (default: public goldapi.io endpoint)
  -gold-api-key   Price source credential (optional; requests may carry
                  their own, and fully table-covered ledgers need none)
  -cache-ttl      Staleness bound for cached lookups (default: 24h)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the date resolver queue, close the cache store
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Cache persistence
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

	"github.com/warp/zakat-engine/api"
	"github.com/warp/zakat-engine/cache"
	"github.com/warp/zakat-engine/resolve"
	"github.com/warp/zakat-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "zakat-cache.db", "SQLite cache path")
	dateAPI := flag.String("date-api", resolve.DefaultAladhanBaseURL, "Hijri conversion base URL")
	dateInterval := flag.Duration("date-interval", time.Second, "pacing between date-source calls")
	goldAPI := flag.String("gold-api", resolve.DefaultGoldAPIBaseURL, "gold price endpoint")
	goldAPIKey := flag.String("gold-api-key", "", "price source credential")
	cacheTTL := flag.Duration("cache-ttl", cache.DefaultTTL, "staleness bound for cached lookups")
	flag.Parse()

	// Durable cache backing both resolvers
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open cache store: %v", err)
	}
	defer store.Close()

	// Serialized, paced date resolver
	dates := resolve.NewDateResolver(cache.New(store, *cacheTTL), resolve.NewAladhanClient(*dateAPI), *dateInterval)
	dates.Start()
	defer dates.Stop()

	handler := api.NewHandler(dates, cache.New(store, *cacheTTL), *goldAPI, *goldAPIKey)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		if *goldAPIKey == "" {
			log.Printf("No -gold-api-key set: uncached Nisab lookups will require a request credential")
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
