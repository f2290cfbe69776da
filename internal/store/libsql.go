package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/candelahq/cadence/pkg/schema"
)

// DefaultResultPayloadCap is the serialized result-data size cap. Oversized
// payloads are replaced with a truncation marker instead of failing the
// terminal update.
const DefaultResultPayloadCap = 1 << 20 // 1 MiB

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB

	// ResultPayloadCap overrides DefaultResultPayloadCap when > 0.
	ResultPayloadCap int
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Scheduled executions ---

func (s *LibSQLStore) GetScheduledExecution(ctx context.Context, id string) (*ScheduledExecution, error) {
	return s.getScheduledExecution(ctx,
		`SELECT id, owner_id, workflow_id, name, schedule_config, input_data, active, created_at
		 FROM scheduled_executions WHERE id = ?`, id)
}

func (s *LibSQLStore) GetScheduledExecutionForOwner(ctx context.Context, id, ownerID string) (*ScheduledExecution, error) {
	return s.getScheduledExecution(ctx,
		`SELECT id, owner_id, workflow_id, name, schedule_config, input_data, active, created_at
		 FROM scheduled_executions WHERE id = ? AND owner_id = ?`, id, ownerID)
}

func (s *LibSQLStore) getScheduledExecution(ctx context.Context, query string, args ...any) (*ScheduledExecution, error) {
	se := &ScheduledExecution{}
	var (
		configJSON string
		inputJSON  sql.NullString
		active     int
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&se.ID, &se.OwnerID, &se.WorkflowID, &se.Name, &configJSON, &inputJSON, &active, &se.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled execution", fmt.Sprintf("%v", args[0]))
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &se.ScheduleConfig); err != nil {
		return nil, fmt.Errorf("unmarshal schedule_config: %w", err)
	}
	if inputJSON.Valid && inputJSON.String != "" {
		_ = json.Unmarshal([]byte(inputJSON.String), &se.InputData)
	}
	se.Active = active != 0
	return se, nil
}

func (s *LibSQLStore) SetScheduledExecutionActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_executions SET active = ? WHERE id = ?`, boolInt(active), id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "scheduled execution", id)
}

func (s *LibSQLStore) CountActiveSchedules(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scheduled_executions WHERE owner_id = ? AND active = 1`, ownerID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// --- Workflow definitions ---

func (s *LibSQLStore) GetWorkflow(ctx context.Context, workflowID string) (*WorkflowDefinition, error) {
	wf := &WorkflowDefinition{}
	var name sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM workflows WHERE id = ?`, workflowID,
	).Scan(&wf.ID, &name)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("workflow", workflowID)
	}
	if err != nil {
		return nil, err
	}
	wf.Name = name.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, name, content, system_context, model_ref, provider, position,
		        input_mapping, enabled_tools, repository_refs
		 FROM chain_steps WHERE workflow_id = ? ORDER BY position ASC`, workflowID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step                              ChainStep
			sysCtx, provider                  sql.NullString
			mappingJSON, toolsJSON, reposJSON sql.NullString
		)
		if err := rows.Scan(&step.ID, &step.WorkflowID, &step.Name, &step.Content, &sysCtx,
			&step.ModelRef, &provider, &step.Position, &mappingJSON, &toolsJSON, &reposJSON); err != nil {
			return nil, err
		}
		step.SystemContext = sysCtx.String
		step.Provider = provider.String
		if mappingJSON.Valid && mappingJSON.String != "" {
			_ = json.Unmarshal([]byte(mappingJSON.String), &step.InputMapping)
		}
		if toolsJSON.Valid && toolsJSON.String != "" {
			_ = json.Unmarshal([]byte(toolsJSON.String), &step.EnabledTools)
		}
		if reposJSON.Valid && reposJSON.String != "" {
			_ = json.Unmarshal([]byte(reposJSON.String), &step.RepositoryRefs)
		}
		wf.Steps = append(wf.Steps, step)
	}
	return wf, rows.Err()
}

// --- Execution results ---

func (s *LibSQLStore) CreateExecutionResult(ctx context.Context, res *ExecutionResult) error {
	if res.Status == "" {
		res.Status = ResultStatusRunning
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_results (id, scheduled_execution_id, status, result_data, duration_ms, error_message, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.ScheduledExecutionID, res.Status, nullRaw(res.ResultData),
		nullInt(res.DurationMs), nullStr(res.ErrorMessage), timeOrNow(res.ExecutedAt),
	)
	return err
}

func (s *LibSQLStore) GetExecutionResult(ctx context.Context, id string) (*ExecutionResult, error) {
	res := &ExecutionResult{}
	var (
		resultData, errMsg sql.NullString
		durationMs         sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, scheduled_execution_id, status, result_data, duration_ms, error_message, executed_at
		 FROM execution_results WHERE id = ?`, id,
	).Scan(&res.ID, &res.ScheduledExecutionID, &res.Status, &resultData, &durationMs, &errMsg, &res.ExecutedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("execution result", id)
	}
	if err != nil {
		return nil, err
	}
	res.ResultData = rawOrNil(resultData)
	res.ErrorMessage = errMsg.String
	if durationMs.Valid {
		res.DurationMs = &durationMs.Int64
	}
	return res, nil
}

// CompleteExecutionResult transitions a running result to completed.
// Writing to an already-terminal row is a no-op. Oversized result data is
// replaced with a truncation marker rather than failing the update.
func (s *LibSQLStore) CompleteExecutionResult(ctx context.Context, id string, resultData json.RawMessage, durationMs int64) error {
	resultData = s.capResultData(resultData)
	res, err := s.db.ExecContext(ctx,
		`UPDATE execution_results SET status = ?, result_data = ?, duration_ms = ?
		 WHERE id = ? AND status = ?`,
		ResultStatusCompleted, nullRaw(resultData), durationMs, id, ResultStatusRunning,
	)
	if err != nil {
		return err
	}
	return s.checkTerminalWrite(ctx, res, id)
}

// FailExecutionResult transitions a running result to failed with the
// causing message. Writing to an already-terminal row is a no-op.
func (s *LibSQLStore) FailExecutionResult(ctx context.Context, id string, errorMessage string, durationMs int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE execution_results SET status = ?, error_message = ?, duration_ms = ?
		 WHERE id = ? AND status = ?`,
		ResultStatusFailed, errorMessage, durationMs, id, ResultStatusRunning,
	)
	if err != nil {
		return err
	}
	return s.checkTerminalWrite(ctx, res, id)
}

// checkTerminalWrite distinguishes "row missing" from "already terminal"
// when a conditional terminal update matched zero rows.
func (s *LibSQLStore) checkTerminalWrite(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = s.db.QueryRowContext(ctx,
		`SELECT status FROM execution_results WHERE id = ?`, id,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return storeNotFound("execution result", id)
	}
	if err != nil {
		return err
	}
	// Terminal states are final; a second write attempt is a no-op.
	return nil
}

func (s *LibSQLStore) capResultData(resultData json.RawMessage) json.RawMessage {
	limit := s.ResultPayloadCap
	if limit <= 0 {
		limit = DefaultResultPayloadCap
	}
	if len(resultData) <= limit {
		return resultData
	}
	marker, _ := json.Marshal(map[string]any{
		"truncated":      true,
		"original_bytes": len(resultData),
	})
	return marker
}

// --- Streaming jobs ---

func (s *LibSQLStore) CreateStreamingJob(ctx context.Context, job *StreamingJob) error {
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO streaming_jobs (id, conversation_id, owner_id, model_id, status, request_payload, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.ConversationID, job.OwnerID, job.ModelID, job.Status,
		string(job.RequestPayload), nullStr(job.ErrorMessage), timeOrNow(job.CreatedAt),
	)
	return err
}

func (s *LibSQLStore) GetStreamingJob(ctx context.Context, id string) (*StreamingJob, error) {
	job := &StreamingJob{}
	var (
		payload string
		errMsg  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, owner_id, model_id, status, request_payload, error_message, created_at
		 FROM streaming_jobs WHERE id = ?`, id,
	).Scan(&job.ID, &job.ConversationID, &job.OwnerID, &job.ModelID, &job.Status, &payload, &errMsg, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("streaming job", id)
	}
	if err != nil {
		return nil, err
	}
	job.RequestPayload = json.RawMessage(payload)
	job.ErrorMessage = errMsg.String
	return job, nil
}

func (s *LibSQLStore) MarkStreamingJobFailed(ctx context.Context, id, errorMessage string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE streaming_jobs SET status = ?, error_message = ? WHERE id = ?`,
		JobStatusFailed, errorMessage, id,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "streaming job", id)
}

// --- Queue outbox ---

func (s *LibSQLStore) AppendOutbox(ctx context.Context, payload json.RawMessage, attrs map[string]string) (int64, error) {
	attrsJSON, err := nullableAttrs(attrs)
	if err != nil {
		return 0, fmt.Errorf("marshal outbox attributes: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue_outbox (payload, attributes) VALUES (?, ?)`,
		string(payload), attrsJSON,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// --- Dead letters ---

func (s *LibSQLStore) AppendDeadLetter(ctx context.Context, entry *DeadLetterEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dead_letters (event, error, request_id, created_at) VALUES (?, ?, ?, ?)`,
		string(entry.Event), entry.Error, nullStr(entry.RequestID), timeOrNow(entry.CreatedAt),
	)
	return err
}

// --- Secrets ---

func (s *LibSQLStore) StoreSecret(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO secrets (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		key, value,
	)
	return err
}

func (s *LibSQLStore) GetSecret(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("credential", key)
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *LibSQLStore) DeleteSecret(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key)
	return err
}

func (s *LibSQLStore) ListSecrets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM secrets ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// --- helpers ---

func storeNotFound(resource, id string) *schema.CadenceError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

func nullableAttrs(attrs map[string]string) (any, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

var _ Store = (*LibSQLStore)(nil)
