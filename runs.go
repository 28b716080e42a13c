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

package contaops

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wacul/ptr"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/internal/notification"
	"github.com/contaops/contaops/model"
)

// SweepStaleRuns fails runs whose invocation died: running rows silent
// beyond the running threshold and pending rows whose continuation never
// arrived within the pending threshold. Called before every claim and by
// the periodic worker task.
func (c *Contaops) SweepStaleRuns(ctx context.Context) (int64, error) {
	conf, err := config.Fetch()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	runningBefore := now.Add(-time.Duration(conf.Sync.RunningStaleMinutes) * time.Minute)
	pendingBefore := now.Add(-time.Duration(conf.Sync.PendingStaleMinutes) * time.Minute)

	swept, err := c.datasource.SweepStaleRuns(ctx, runningBefore, pendingBefore)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		logrus.Warnf("reclaimed %d stale sync runs", swept)
	}
	return swept, nil
}

// claimRun sweeps stale runs and then tries to claim a fresh run for the
// tenant and provider. The second return is false when another run is
// already active.
func (c *Contaops) claimRun(ctx context.Context, tenantID, provider string, jobID *string) (*model.SyncRun, bool, error) {
	if _, err := c.SweepStaleRuns(ctx); err != nil {
		logrus.Warnf("stale run sweep failed: %v", err)
	}

	now := time.Now()
	run := &model.SyncRun{
		SyncRunID:   model.GenerateUUIDWithSuffix("run"),
		TenantID:    tenantID,
		Provider:    provider,
		Status:      model.StatusRunning,
		JobID:       jobID,
		StartedAt:   now,
		HeartbeatAt: now,
	}

	claimed, err := c.datasource.ClaimSyncRun(ctx, run)
	if err != nil {
		return nil, false, err
	}
	return run, claimed, nil
}

// finalizeRun moves the run to a terminal status, writes the summary row,
// and signals the drain queue. Summary and drain failures are reported but
// do not fail the run itself.
func (c *Contaops) finalizeRun(ctx context.Context, run *model.SyncRun, status string, counters model.SyncCounters, runErr error) error {
	var errMsg *string
	if runErr != nil {
		errMsg = ptr.String(runErr.Error())
	}

	if err := c.datasource.FinalizeSyncRun(ctx, run.SyncRunID, status, counters, errMsg); err != nil {
		return err
	}

	summary := &model.IntegrationLog{
		TenantID: run.TenantID,
		Provider: run.Provider,
		Status:   status,
		Summary: map[string]int{
			"pages_processed":   counters.PagesProcessed,
			"records_processed": counters.RecordsProcessed,
			"inserted":          counters.Inserted,
			"updated":           counters.Updated,
			"skipped":           counters.Skipped,
			"errors":            counters.Errors,
		},
	}
	if err := c.datasource.RecordIntegrationLog(ctx, summary); err != nil {
		logrus.Errorf("integration log for run %s failed: %v", run.SyncRunID, err)
	}

	if run.JobID != nil {
		percent := 0
		if status == model.StatusSuccess {
			percent = 100
		}
		if err := c.datasource.UpdateJobProgress(ctx, *run.JobID, status, percent); err != nil {
			logrus.Warnf("job progress finalization for %s failed: %v", *run.JobID, err)
		}
	}

	if status == model.StatusFailed && runErr != nil {
		notification.NotifyError(runErr)
	}

	if err := c.queue.queueDrain(ctx, run.SyncRunID, run.TenantID); err != nil {
		logrus.Warnf("drain enqueue for run %s failed: %v", run.SyncRunID, err)
	}

	logrus.Infof("sync run %s finalized: %s (%d pages, %d records)",
		run.SyncRunID, status, counters.PagesProcessed, counters.RecordsProcessed)
	return nil
}

// reportJobProgress updates the externally supplied job-progress record
// during paging. Percent is only computable when the registry reports its
// total page count; it is capped below 100 until finalization.
func (c *Contaops) reportJobProgress(ctx context.Context, run *model.SyncRun, page, totalPages int) {
	if run.JobID == nil || totalPages <= 0 {
		return
	}

	percent := page * 100 / totalPages
	if percent > 99 {
		percent = 99
	}
	if err := c.datasource.UpdateJobProgress(ctx, *run.JobID, model.StatusRunning, percent); err != nil {
		logrus.Warnf("job progress update for %s failed: %v", *run.JobID, err)
	}
}

// runLog appends one line to the run's persisted trail. Best effort.
func (c *Contaops) runLog(ctx context.Context, runID, level, message string, page int) {
	entry := &model.SyncLogEntry{
		SyncRunID: runID,
		Level:     level,
		Message:   message,
		Page:      page,
	}
	if err := c.datasource.RecordSyncLog(ctx, entry); err != nil {
		logrus.Warnf("sync log write failed for run %s: %v", runID, err)
	}
}
