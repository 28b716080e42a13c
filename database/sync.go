/*
Copyright 2025 Contaops Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

// ClaimSyncRun inserts the run row. A partial unique index on
// (tenant_id, provider) WHERE status IN ('running','pending') makes the
// insert a mutual-exclusion claim: ON CONFLICT DO NOTHING means a second
// caller simply gets zero rows back and reports the conflict.
func (d Datasource) ClaimSyncRun(ctx context.Context, run *model.SyncRun) (bool, error) {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Claiming sync run")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.sync_runs(
			sync_run_id, tenant_id, provider, status,
			pages_processed, records_processed, inserted, updated, skipped, errors,
			job_id, started_at, heartbeat_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING
	`, run.SyncRunID, run.TenantID, run.Provider, run.Status,
		run.Counters.PagesProcessed, run.Counters.RecordsProcessed,
		run.Counters.Inserted, run.Counters.Updated, run.Counters.Skipped,
		run.Counters.Errors, run.JobID, run.StartedAt, run.HeartbeatAt)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim sync run", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim sync run", err)
	}

	return rows == 1, nil
}

// GetSyncRun retrieves a run by its ID.
func (d Datasource) GetSyncRun(ctx context.Context, syncRunID string) (*model.SyncRun, error) {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Fetching sync run")
	defer span.End()

	run := &model.SyncRun{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, sync_run_id, tenant_id, provider, status,
			pages_processed, records_processed, inserted, updated, skipped, errors,
			job_id, error_message, started_at, heartbeat_at, finished_at
		FROM contaops.sync_runs
		WHERE sync_run_id = $1
	`, syncRunID).Scan(
		&run.ID, &run.SyncRunID, &run.TenantID, &run.Provider, &run.Status,
		&run.Counters.PagesProcessed, &run.Counters.RecordsProcessed,
		&run.Counters.Inserted, &run.Counters.Updated, &run.Counters.Skipped,
		&run.Counters.Errors, &run.JobID, &run.ErrorMessage,
		&run.StartedAt, &run.HeartbeatAt, &run.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Sync run not found", syncRunID)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch sync run", err)
	}

	return run, nil
}

// CheckpointSyncRun persists counters and refreshes the heartbeat. It is
// called when an invocation hands off to a continuation (status pending) and
// when the continuation picks the run back up (status running).
func (d Datasource) CheckpointSyncRun(ctx context.Context, syncRunID, status string, counters model.SyncCounters) error {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Checkpointing sync run")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.sync_runs
		SET status = $2, pages_processed = $3, records_processed = $4,
			inserted = $5, updated = $6, skipped = $7, errors = $8,
			heartbeat_at = $9
		WHERE sync_run_id = $1 AND finished_at IS NULL
	`, syncRunID, status, counters.PagesProcessed, counters.RecordsProcessed,
		counters.Inserted, counters.Updated, counters.Skipped, counters.Errors,
		time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to checkpoint sync run", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to checkpoint sync run", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Sync run already finished", syncRunID)
	}

	return nil
}

// FinalizeSyncRun moves a run to a terminal status with its final counters.
// Finalizing an already-finished run is a no-op, which keeps late
// continuations harmless.
func (d Datasource) FinalizeSyncRun(ctx context.Context, syncRunID, status string, counters model.SyncCounters, errMsg *string) error {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Finalizing sync run")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.sync_runs
		SET status = $2, pages_processed = $3, records_processed = $4,
			inserted = $5, updated = $6, skipped = $7, errors = $8,
			error_message = $9, finished_at = $10, heartbeat_at = $10
		WHERE sync_run_id = $1 AND finished_at IS NULL
	`, syncRunID, status, counters.PagesProcessed, counters.RecordsProcessed,
		counters.Inserted, counters.Updated, counters.Skipped, counters.Errors,
		errMsg, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finalize sync run", err)
	}

	return nil
}

// UpdateJobProgress moves an externally supplied job-progress record. The
// portal creates the row before triggering the run, so a missing row is not
// an error; percent never decreases across updates.
func (d Datasource) UpdateJobProgress(ctx context.Context, jobID, status string, percent int) error {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Updating job progress")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.sync_jobs
		SET status = $2, percent = GREATEST(percent, $3), updated_at = $4
		WHERE job_id = $1
	`, jobID, status, percent, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update job progress", err)
	}

	return nil
}

// SweepStaleRuns fails runs whose invocation died without finalizing:
// running rows with a heartbeat older than runningBefore and pending rows
// whose continuation never arrived before pendingBefore.
func (d Datasource) SweepStaleRuns(ctx context.Context, runningBefore, pendingBefore time.Time) (int64, error) {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Sweeping stale sync runs")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.sync_runs
		SET status = 'failed', error_message = 'stale run reclaimed', finished_at = $3
		WHERE finished_at IS NULL
			AND ((status = 'running' AND heartbeat_at < $1)
				OR (status = 'pending' AND heartbeat_at < $2))
	`, runningBefore, pendingBefore, time.Now())
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sweep stale runs", err)
	}

	swept, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to sweep stale runs", err)
	}

	return swept, nil
}

// RecordSyncLog appends one line to a run's persisted trail.
func (d Datasource) RecordSyncLog(ctx context.Context, entry *model.SyncLogEntry) error {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Saving sync log to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.sync_logs(sync_run_id, level, message, page, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.SyncRunID, entry.Level, entry.Message, entry.Page, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record sync log", err)
	}

	return nil
}

// RecordIntegrationLog writes the per-run summary row.
func (d Datasource) RecordIntegrationLog(ctx context.Context, logEntry *model.IntegrationLog) error {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Saving integration log to db")
	defer span.End()

	summary, err := json.Marshal(logEntry.Summary)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal summary", err)
	}

	logEntry.LogID = model.GenerateUUIDWithSuffix("ilog")
	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.integration_logs(log_id, tenant_id, provider, status, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, logEntry.LogID, logEntry.TenantID, logEntry.Provider, logEntry.Status,
		summary, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record integration log", err)
	}

	return nil
}

// RecordSyncAction stores one outbound provider call. Callers sanitize the
// excerpts before handing them in.
func (d Datasource) RecordSyncAction(ctx context.Context, action *model.SyncActionLog) error {
	ctx, span := otel.Tracer("SyncRun").Start(ctx, "Saving sync action to db")
	defer span.End()

	action.ActionID = model.GenerateUUIDWithSuffix("act")
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.sync_action_logs(
			action_id, tenant_id, action, method, url, status_code,
			duration_ms, request_excerpt, response_excerpt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, action.ActionID, action.TenantID, action.Action, action.Method,
		action.URL, action.StatusCode, action.DurationMs,
		action.RequestExcerpt, action.ResponseExcerpt, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record sync action", err)
	}

	return nil
}
