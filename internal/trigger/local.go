package trigger

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// FireFunc is invoked with the trigger's target payload each time a locally
// registered trigger fires.
type FireFunc func(ctx context.Context, targetPayload json.RawMessage)

// LocalScheduler is an in-process ExternalScheduler for single-binary
// deployments. Triggers run on a shared cron runner; the execution window is
// applied as a random delay before firing.
type LocalScheduler struct {
	runner *cron.Cron
	fire   FireFunc
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewLocalScheduler creates a local scheduler. Start must be called before
// triggers fire.
func NewLocalScheduler(fire FireFunc, logger *slog.Logger) *LocalScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalScheduler{
		runner: cron.New(cron.WithParser(
			cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		fire:    fire,
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Start launches the cron runner in its own goroutine.
func (s *LocalScheduler) Start() {
	s.runner.Start()
	s.logger.Info("local scheduler started")
}

// Stop halts the runner and waits for in-flight jobs to complete.
func (s *LocalScheduler) Stop() {
	<-s.runner.Stop().Done()
	s.logger.Info("local scheduler stopped")
}

func (s *LocalScheduler) CreateTrigger(_ context.Context, name, cronExpr, timezone string, windowMinutes int, targetPayload json.RawMessage) error {
	return s.register(name, cronExpr, timezone, windowMinutes, targetPayload)
}

// UpdateTrigger replaces any existing registration under the same name.
func (s *LocalScheduler) UpdateTrigger(_ context.Context, name, cronExpr, timezone string, windowMinutes int, targetPayload json.RawMessage) error {
	return s.register(name, cronExpr, timezone, windowMinutes, targetPayload)
}

func (s *LocalScheduler) DeleteTrigger(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.runner.Remove(id)
		delete(s.entries, name)
		s.logger.Info("local trigger removed", slog.String("trigger_name", name))
	}
	return nil
}

func (s *LocalScheduler) register(name, cronExpr, timezone string, windowMinutes int, targetPayload json.RawMessage) error {
	spec := cronExpr
	if timezone != "" && timezone != "UTC" {
		spec = "CRON_TZ=" + timezone + " " + cronExpr
	}

	window := time.Duration(windowMinutes) * time.Minute
	job := func() {
		if window > 0 {
			time.Sleep(rand.N(window))
		}
		s.logger.Info("local trigger fired", slog.String("trigger_name", name))
		s.fire(context.Background(), targetPayload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.runner.AddFunc(spec, job)
	if err != nil {
		return err
	}
	if prev, ok := s.entries[name]; ok {
		s.runner.Remove(prev)
	}
	s.entries[name] = id
	s.logger.Info("local trigger registered",
		slog.String("trigger_name", name),
		slog.String("cron", cronExpr))
	return nil
}

var _ ExternalScheduler = (*LocalScheduler)(nil)
