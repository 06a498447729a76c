package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cashpoint/cashpoint-backend/internal/adapter/httpapi"
	"github.com/cashpoint/cashpoint-backend/internal/adapter/store/jsonfile"
	"github.com/cashpoint/cashpoint-backend/internal/adapter/store/postgres"
	"github.com/cashpoint/cashpoint-backend/internal/config"
	"github.com/cashpoint/cashpoint-backend/internal/domain"
	"github.com/cashpoint/cashpoint-backend/internal/logging"
	"github.com/cashpoint/cashpoint-backend/internal/receipt"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/credential"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/engine"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/seeder"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/session"
)

const idleCheckInterval = time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Snapshot store
	var store domain.SnapshotStore
	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.NewDB(cfg.PostgresConnStr())
		if err != nil {
			log.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		pgStore := postgres.NewStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to ensure database schema", zap.Error(err))
		}
		store = pgStore
	default:
		store = jsonfile.New(cfg.DataFile)
	}

	// 2. Load persisted state, seeding the demo dataset on first run
	snap, err := seeder.NewSeeder(store, log).EnsureLoaded(ctx)
	if err != nil {
		log.Fatal("failed to load ledger state", zap.Error(err))
	}
	ledger := domain.NewLedger()
	ledger.RestoreSnapshot(snap)
	log.Info("ledger loaded", zap.Int("accounts", len(snap.Accounts)))

	// 3. Services
	creds := credential.NewStore(ledger)
	eng := engine.New(ledger, store, creds, log)
	sessions := session.NewController(creds, eng, cfg.IdleTimeout(), log)
	receipts := receipt.NewWriter(cfg.ReceiptDir)

	// 4. HTTP server + idle-timeout monitor
	handler := httpapi.NewHandler(sessions, eng, receipts, log)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: httpapi.NewRouter(handler)}

	go sessions.Watch(ctx, idleCheckInterval)

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	waitForShutdown(ctx, srv, store, ledger, log)
}

// waitForShutdown blocks until SIGTERM/SIGINT, stops the server, and
// flushes a final snapshot.
func waitForShutdown(ctx context.Context, srv *http.Server, store domain.SnapshotStore, ledger *domain.Ledger, log *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	// Every mutation is already persisted write-through; the exit flush just
	// refreshes the saved_at marker.
	if err := store.Save(shutdownCtx, ledger.Snapshot()); err != nil {
		log.Error("final snapshot flush failed", zap.Error(err))
	}
	log.Info("server stopped")
}
