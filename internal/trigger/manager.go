package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/candelahq/cadence/internal/store"
	"github.com/candelahq/cadence/pkg/schema"
)

const (
	// DefaultOwnerQuota caps the number of active schedules per owner.
	DefaultOwnerQuota = 10

	// DefaultWindowMinutes bounds the jitter window applied by the
	// external scheduler when firing a trigger.
	DefaultWindowMinutes = 5

	defaultTimezone = "UTC"
)

// ScheduleStore is the slice of store.Store the manager needs: quota counts
// on create and deactivation on delete.
type ScheduleStore interface {
	CountActiveSchedules(ctx context.Context, ownerID string) (int, error)
	GetScheduledExecutionForOwner(ctx context.Context, id, ownerID string) (*store.ScheduledExecution, error)
	SetScheduledExecutionActive(ctx context.Context, id string, active bool) error
}

// Manager owns the lifecycle of external recurring triggers, one per active
// scheduled execution. Trigger names are deterministic so that retried
// management calls converge on the same registration.
type Manager struct {
	store       ScheduleStore
	external    ExternalScheduler
	parser      cron.Parser
	logger      *slog.Logger
	environment string
	quota       int
	window      int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithOwnerQuota overrides the per-owner active schedule cap.
func WithOwnerQuota(quota int) ManagerOption {
	return func(m *Manager) { m.quota = quota }
}

// WithWindowMinutes overrides the trigger execution window.
func WithWindowMinutes(minutes int) ManagerOption {
	return func(m *Manager) { m.window = minutes }
}

// NewManager creates a trigger manager for the given environment.
func NewManager(s ScheduleStore, external ExternalScheduler, environment string, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:       s,
		external:    external,
		parser:      cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:      logger,
		environment: environment,
		quota:       DefaultOwnerQuota,
		window:      DefaultWindowMinutes,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TriggerName returns the deterministic trigger name for a scheduled
// execution in this environment.
func (m *Manager) TriggerName(scheduledExecutionID string) string {
	return fmt.Sprintf("cadence-%s-sched-%s", m.environment, scheduledExecutionID)
}

// Create registers a recurring trigger for a scheduled execution. The
// per-owner quota is enforced before any external call; a violation has no
// side effects. Returns the trigger name.
func (m *Manager) Create(ctx context.Context, ev *schema.ManagementEvent) (string, error) {
	cronExpr, tz, err := m.validate(ev)
	if err != nil {
		return "", err
	}

	count, err := m.store.CountActiveSchedules(ctx, ev.OwnerID)
	if err != nil {
		return "", schema.NewError(schema.ErrCodeStore, "failed to count active schedules").WithCause(err)
	}
	if count >= m.quota {
		return "", schema.NewErrorf(schema.ErrCodeQuotaExceeded,
			"owner %s has %d active schedules (limit %d)", ev.OwnerID, count, m.quota)
	}

	name := m.TriggerName(ev.ScheduledExecutionID)
	if err := m.external.CreateTrigger(ctx, name, cronExpr, tz, m.window, m.targetPayload(ev.ScheduledExecutionID)); err != nil {
		return "", err
	}

	m.logger.InfoContext(ctx, "trigger created",
		slog.String("trigger_name", name),
		slog.String("cron", cronExpr),
		slog.String("timezone", tz))
	return name, nil
}

// Update re-registers the trigger under the same deterministic name.
// Idempotent: repeated calls with the same event converge.
func (m *Manager) Update(ctx context.Context, ev *schema.ManagementEvent) (string, error) {
	cronExpr, tz, err := m.validate(ev)
	if err != nil {
		return "", err
	}

	name := m.TriggerName(ev.ScheduledExecutionID)
	if err := m.external.UpdateTrigger(ctx, name, cronExpr, tz, m.window, m.targetPayload(ev.ScheduledExecutionID)); err != nil {
		return "", err
	}

	m.logger.InfoContext(ctx, "trigger updated", slog.String("trigger_name", name))
	return name, nil
}

// Delete removes the trigger and deactivates the scheduled execution, so
// the deactivated row no longer counts against the owner quota. Deleting a
// trigger that was never registered is success.
func (m *Manager) Delete(ctx context.Context, ev *schema.ManagementEvent) (string, error) {
	if ev.ScheduledExecutionID == "" {
		return "", schema.NewError(schema.ErrCodeValidation, "scheduled_execution_id is required")
	}

	name := m.TriggerName(ev.ScheduledExecutionID)
	if err := m.external.DeleteTrigger(ctx, name); err != nil {
		return "", err
	}
	if err := m.deactivate(ctx, ev); err != nil {
		return "", err
	}

	m.logger.InfoContext(ctx, "trigger deleted", slog.String("trigger_name", name))
	return name, nil
}

// deactivate clears the active flag on the scheduled execution behind a
// deleted trigger. A schedule that is already gone is fine; when the event
// names an owner, the deactivation is scoped to that owner's row.
func (m *Manager) deactivate(ctx context.Context, ev *schema.ManagementEvent) error {
	if ev.OwnerID != "" {
		if _, err := m.store.GetScheduledExecutionForOwner(ctx, ev.ScheduledExecutionID, ev.OwnerID); err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
	}
	if err := m.store.SetScheduledExecutionActive(ctx, ev.ScheduledExecutionID, false); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	var cerr *schema.CadenceError
	return errors.As(err, &cerr) && cerr.Code == schema.ErrCodeNotFound
}

// validate checks the event fields shared by create and update, returning
// the cron expression and the effective timezone.
func (m *Manager) validate(ev *schema.ManagementEvent) (string, string, error) {
	if ev.ScheduledExecutionID == "" {
		return "", "", schema.NewError(schema.ErrCodeValidation, "scheduled_execution_id is required")
	}
	if ev.OwnerID == "" {
		return "", "", schema.NewError(schema.ErrCodeValidation, "owner_id is required")
	}
	if ev.CronExpression == "" {
		return "", "", schema.NewError(schema.ErrCodeValidation, "cron_expression is required")
	}
	if _, err := m.parser.Parse(ev.CronExpression); err != nil {
		return "", "", schema.NewErrorf(schema.ErrCodeValidation,
			"invalid cron expression %q", ev.CronExpression).WithCause(err)
	}

	tz := ev.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", "", schema.NewErrorf(schema.ErrCodeValidation, "invalid timezone %q", tz).WithCause(err)
	}

	return ev.CronExpression, tz, nil
}

func (m *Manager) targetPayload(scheduledExecutionID string) json.RawMessage {
	payload, _ := json.Marshal(schema.SchedulerEvent{
		Source:               schema.SourceScheduler,
		ScheduledExecutionID: scheduledExecutionID,
	})
	return payload
}
