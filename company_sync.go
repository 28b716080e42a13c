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

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/internal/hashing"
	"github.com/contaops/contaops/internal/taxid"
	"github.com/contaops/contaops/model"
	"github.com/contaops/contaops/providers"
)

// CompanySyncResult is what one invocation of the company sync reports.
// Continued means the page budget ran out and the rest of the run was
// handed to the queue.
type CompanySyncResult struct {
	SyncRunID string             `json:"sync_run_id"`
	Status    string             `json:"status"`
	Continued bool               `json:"continued"`
	Counters  model.SyncCounters `json:"counters"`
}

// StartCompanySync begins a company reconciliation run for the tenant with
// the given slug. At most one run per (tenant, provider) may be active;
// a concurrent trigger gets a conflict error.
func (c *Contaops) StartCompanySync(ctx context.Context, tenantSlug string, jobID *string) (*CompanySyncResult, error) {
	tenant, err := c.datasource.GetTenantBySlug(ctx, tenantSlug)
	if err != nil {
		return nil, err
	}

	run, claimed, err := c.claimRun(ctx, tenant.TenantID, model.ProviderRegistry, jobID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "sync already running", tenant.TenantID)
	}

	client, _, err := c.registryClient(ctx, tenant.TenantID)
	if err != nil {
		finalErr := c.finalizeRun(ctx, run, model.StatusFailed, model.SyncCounters{}, err)
		if finalErr != nil {
			logrus.Errorf("finalize after client error failed: %v", finalErr)
		}
		return nil, err
	}

	c.runLog(ctx, run.SyncRunID, "info", "company sync started", 0)
	return c.processCompanyPages(ctx, run, client, 1, model.SyncCounters{}, time.Now())
}

// ResumeCompanySync re-enters a run from a continuation payload. A late
// continuation for an already-finished run is a no-op.
func (c *Contaops) ResumeCompanySync(ctx context.Context, cont model.Continuation) (*CompanySyncResult, error) {
	run, err := c.datasource.GetSyncRun(ctx, cont.SyncRunID)
	if err != nil {
		return nil, err
	}
	if run.FinishedAt != nil {
		logrus.Warnf("continuation for finished run %s dropped", run.SyncRunID)
		return &CompanySyncResult{SyncRunID: run.SyncRunID, Status: run.Status, Counters: run.Counters}, nil
	}

	if err := c.datasource.CheckpointSyncRun(ctx, run.SyncRunID, model.StatusRunning, cont.Counters); err != nil {
		return nil, err
	}

	client, _, err := c.registryClient(ctx, cont.TenantID)
	if err != nil {
		finalErr := c.finalizeRun(ctx, run, model.StatusFailed, cont.Counters, err)
		if finalErr != nil {
			logrus.Errorf("finalize after client error failed: %v", finalErr)
		}
		return nil, err
	}

	c.runLog(ctx, run.SyncRunID, "info", "company sync resumed", cont.NextPage)
	return c.processCompanyPages(ctx, run, client, cont.NextPage, cont.Counters, cont.BatchStartTime)
}

// processCompanyPages walks registry pages until the data runs out or the
// invocation's page budget is spent. Counters accumulate across
// invocations; only this function hands them off or finalizes them.
func (c *Contaops) processCompanyPages(ctx context.Context, run *model.SyncRun, client *providers.RegistryClient, startPage int, counters model.SyncCounters, batchStart time.Time) (*CompanySyncResult, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	page := startPage
	pagesThisInvocation := 0
	throttle := time.Duration(conf.Sync.InterPageDelayMs) * time.Millisecond

	for {
		companyPage, fetchErr := client.FetchCompaniesPage(ctx, page, conf.Sync.PageSize)
		if fetchErr != nil {
			// A failed first fetch means nothing was reconciled; a failure
			// mid-run keeps the pages already processed.
			c.runLog(ctx, run.SyncRunID, "error", fetchErr.Error(), page)
			status := model.StatusSuccess
			if counters.PagesProcessed == 0 {
				status = model.StatusFailed
			}
			if err := c.finalizeRun(ctx, run, status, counters, fetchErr); err != nil {
				return nil, err
			}
			return &CompanySyncResult{SyncRunID: run.SyncRunID, Status: status, Counters: counters}, nil
		}

		pageCounters := c.reconcileCompanyPage(ctx, run, page, companyPage.Records)
		counters.Add(pageCounters)
		pagesThisInvocation++

		// Per-page checkpoint: counters land on the run row and the
		// heartbeat moves, so the staleness sweep never mistakes a slow
		// legitimate invocation for a dead one.
		if err := c.datasource.CheckpointSyncRun(ctx, run.SyncRunID, model.StatusRunning, counters); err != nil {
			logrus.Warnf("checkpoint for run %s failed: %v", run.SyncRunID, err)
		}
		c.reportJobProgress(ctx, run, page, companyPage.TotalPages)

		if !companyPage.HasMore {
			if err := c.finalizeRun(ctx, run, model.StatusSuccess, counters, nil); err != nil {
				return nil, err
			}
			return &CompanySyncResult{SyncRunID: run.SyncRunID, Status: model.StatusSuccess, Counters: counters}, nil
		}

		if pagesThisInvocation >= conf.Sync.PageBudget {
			return c.handOff(ctx, run, page+1, counters, batchStart)
		}

		page++
		select {
		case <-ctx.Done():
			c.runLog(ctx, run.SyncRunID, "warn", "context cancelled between pages", page)
			return c.handOff(ctx, run, page, counters, batchStart)
		case <-time.After(throttle):
		}
	}
}

// handOff checkpoints the run as pending and enqueues the continuation.
func (c *Contaops) handOff(ctx context.Context, run *model.SyncRun, nextPage int, counters model.SyncCounters, batchStart time.Time) (*CompanySyncResult, error) {
	if err := c.datasource.CheckpointSyncRun(ctx, run.SyncRunID, model.StatusPending, counters); err != nil {
		return nil, err
	}

	cont := model.Continuation{
		SyncRunID:      run.SyncRunID,
		TenantID:       run.TenantID,
		Provider:       run.Provider,
		NextPage:       nextPage,
		Counters:       counters,
		JobID:          run.JobID,
		BatchStartTime: batchStart,
	}
	if err := c.queue.queueContinuation(ctx, cont); err != nil {
		// Without the continuation the run would hang as pending until the
		// sweep reclaims it; fail it now with the counters preserved.
		finalErr := c.finalizeRun(ctx, run, model.StatusFailed, counters, err)
		if finalErr != nil {
			logrus.Errorf("finalize after enqueue error failed: %v", finalErr)
		}
		return nil, err
	}

	c.runLog(ctx, run.SyncRunID, "info", "page budget reached, continuation enqueued", nextPage)
	return &CompanySyncResult{
		SyncRunID: run.SyncRunID,
		Status:    model.StatusPending,
		Continued: true,
		Counters:  counters,
	}, nil
}

// reconcileCompanyPage applies one page of registry records. Per-record
// failures are counted, never aborting the page.
func (c *Contaops) reconcileCompanyPage(ctx context.Context, run *model.SyncRun, page int, records []map[string]interface{}) model.SyncCounters {
	var counters model.SyncCounters
	counters.PagesProcessed = 1

	for _, record := range records {
		counters.RecordsProcessed++

		outcome, err := c.reconcileCompanyRecord(ctx, run.TenantID, record)
		if err != nil {
			counters.Errors++
			c.runLog(ctx, run.SyncRunID, "error", err.Error(), page)
			continue
		}
		switch outcome {
		case "inserted":
			counters.Inserted++
		case "updated":
			counters.Updated++
		default:
			counters.Skipped++
		}
	}

	logrus.Infof("run %s page %d: %d records (%d inserted, %d updated, %d skipped, %d errors)",
		run.SyncRunID, page, counters.RecordsProcessed, counters.Inserted,
		counters.Updated, counters.Skipped, counters.Errors)
	return counters
}

// reconcileCompanyRecord decides insert, update, or skip for one record.
func (c *Contaops) reconcileCompanyRecord(ctx context.Context, tenantID string, record map[string]interface{}) (string, error) {
	rawKey, ok := providers.ExtractTaxID(record)
	if !ok {
		logrus.Warnf("registry record without tax ID skipped (tenant %s)", tenantID)
		return "skipped", nil
	}

	normalized := taxid.NormalizeKey(rawKey)
	formatted := taxid.Format(normalized)

	contentHash, err := hashing.ContentHash(record)
	if err != nil {
		return "", err
	}

	existing, err := c.datasource.GetCompanyByCNPJ(ctx, tenantID, formatted)
	if isNotFound(err) {
		existing, err = c.datasource.GetCompanyByTaxKey(ctx, tenantID, normalized)
	}
	if isNotFound(err) {
		_, err = c.datasource.CreateCompany(ctx, &model.Company{
			TenantID:    tenantID,
			Name:        providers.ExtractName(record),
			CNPJ:        formatted,
			RemoteID:    providers.ExtractRemoteID(record),
			ContentHash: contentHash,
			Active:      true,
		})
		if err != nil {
			return "", err
		}
		return "inserted", nil
	}
	if err != nil {
		return "", err
	}

	if existing.ContentHash == contentHash {
		return "skipped", nil
	}

	err = c.datasource.UpdateCompanyFromSync(ctx, existing.CompanyID, providers.ExtractName(record), formatted, contentHash)
	if err != nil {
		return "", err
	}
	return "updated", nil
}

func isNotFound(err error) bool {
	apiErr, ok := err.(apierror.APIError)
	return ok && apiErr.Code == apierror.ErrNotFound
}
