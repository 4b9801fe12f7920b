package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dart-scoring-server/api"
	"dart-scoring-server/auth"
	"dart-scoring-server/config"
	"dart-scoring-server/game"
	"dart-scoring-server/lobby"
	"dart-scoring-server/loghandler"
	"dart-scoring-server/storage"
	"dart-scoring-server/variant"
	"dart-scoring-server/ws"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stderr, cfg.SlogLevel())))
	if envErr != nil {
		slog.Info("no .env file found; using environment variables", "tag", "config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, shutdown, err := buildServer(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "tag", "main", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("dart scoring server listening", "tag", "main", "addr", srv.Addr,
		"maxPlayers", cfg.MaxPlayers, "bustNoticeMS", cfg.BustNoticeMS, "persistence", cfg.DatabaseURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "tag", "main", "error", err)
	}
	shutdown()
}

// buildServer wires storage, sessions, websocket hub and HTTP API. The
// returned shutdown func stops sessions and flushes pending writes; call it
// after the HTTP server has stopped.
func buildServer(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	store, err := storage.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	var validator *auth.Validator
	if cfg.AuthBaseURL != "" {
		validator, err = auth.NewValidator(ctx, cfg.AuthBaseURL)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, nil, fmt.Errorf("auth: %w", err)
		}
		slog.Info("auth configured", "tag", "main", "baseURL", cfg.AuthBaseURL)
	} else {
		slog.Info("auth not configured; clients are identified by device key", "tag", "main")
	}

	var (
		sink        game.SnapshotSink
		writer      *storage.WriteBehind
		writerCtx   context.Context
		stopWriting context.CancelFunc = func() {}
	)
	if store != nil {
		writer = storage.NewWriteBehind(store)
		writerCtx, stopWriting = context.WithCancel(context.Background())
		go writer.Run(writerCtx)
		sink = writer
	}

	catalog := variant.DefaultCatalog()
	lb := lobby.New(cfg, catalog, store, sink)

	hubCtx, stopHub := context.WithCancel(ctx)
	hub := ws.NewHub(cfg, lb, catalog, tokenValidator(validator))
	go hub.Run(hubCtx)

	h := api.NewHandler(cfg, catalog, store, tokenValidator(validator))
	router := api.NewRouter(h, hub.ServeWS)

	shutdown := func() {
		stopHub()
		lb.Close()
		stopWriting()
		if writer != nil {
			<-writer.Done()
		}
		if store != nil {
			store.Close()
		}
	}
	return router, shutdown, nil
}

// tokenValidator keeps a nil *auth.Validator from becoming a non-nil interface.
func tokenValidator(v *auth.Validator) ws.TokenValidator {
	if v == nil {
		return nil
	}
	return v
}
