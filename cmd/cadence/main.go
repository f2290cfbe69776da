package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/candelahq/cadence/internal/deadletter"
	"github.com/candelahq/cadence/internal/logging"
	"github.com/candelahq/cadence/internal/orchestrator"
	"github.com/candelahq/cadence/internal/queue"
	"github.com/candelahq/cadence/internal/secrets"
	"github.com/candelahq/cadence/internal/store"
	"github.com/candelahq/cadence/internal/submit"
	"github.com/candelahq/cadence/internal/tools"
	"github.com/candelahq/cadence/internal/trigger"
	"github.com/candelahq/cadence/internal/validation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	s, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	vault, err := newVault(cfg, s)
	if err != nil {
		return err
	}

	validator, err := validation.NewPayloadValidator()
	if err != nil {
		return err
	}

	resolver := tools.NewResolver(vault, logger)
	q := queue.NewOutboxQueue(s, logger)
	letters := deadletter.NewStoreChannel(s, logger)
	submitter := submit.NewSubmitter(s, resolver, q, validator, logger)

	// The handler and the local scheduler reference each other; the
	// fire callback resolves the handler lazily.
	var handler *orchestrator.Handler
	local := trigger.NewLocalScheduler(func(fireCtx context.Context, payload json.RawMessage) {
		resp := handler.Handle(fireCtx, payload)
		if resp.StatusCode >= 400 {
			logger.Warn("local trigger invocation failed",
				slog.Int("status", resp.StatusCode))
		}
	}, logger)

	manager := trigger.NewManager(s, local, cfg.Environment, logger,
		trigger.WithOwnerQuota(cfg.OwnerQuota),
		trigger.WithWindowMinutes(cfg.WindowMinutes))
	handler = orchestrator.NewHandler(s, submitter, manager, letters, logger)

	if cfg.LocalScheduler {
		local.Start()
		defer local.Stop()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /events", eventEndpoint(handler, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cadence listening",
			slog.String("addr", cfg.ListenAddr),
			slog.String("environment", cfg.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", slog.String("error", err.Error()))
	}
	logger.Info("cadence stopped")
	return nil
}

func eventEndpoint(handler *orchestrator.Handler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
			return
		}

		resp := handler.Handle(r.Context(), body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		if _, err := w.Write(resp.Body); err != nil {
			logger.Warn("failed to write response", slog.String("error", err.Error()))
		}
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}

// newVault picks the credential backend: encrypted at rest in the store when
// a passphrase is configured, environment variables otherwise.
func newVault(cfg Config, s store.Store) (secrets.Vault, error) {
	if cfg.VaultPassphrase != "" {
		return secrets.NewAESVault(s, secrets.VaultConfig{
			Passphrase: cfg.VaultPassphrase,
			Salt:       []byte(cfg.VaultSalt),
		})
	}
	return secrets.NewEnvVault(), nil
}
