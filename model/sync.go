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
package model

import "time"

// Sync run statuses. A run is pending while a continuation task is waiting
// in the queue, running while an invocation holds it, and terminal after.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Providers a sync run can target.
const (
	ProviderRegistry = "registry"
	ProviderBilling  = "billing"
	ProviderContacts = "contacts"
)

// SyncCounters accumulate across every invocation of one run. They travel
// inside the continuation payload and are only persisted at checkpoints.
type SyncCounters struct {
	PagesProcessed   int `json:"pages_processed"`
	RecordsProcessed int `json:"records_processed"`
	Inserted         int `json:"inserted"`
	Updated          int `json:"updated"`
	Skipped          int `json:"skipped"`
	Errors           int `json:"errors"`
}

// Add folds page-level counts into the running totals.
func (c *SyncCounters) Add(other SyncCounters) {
	c.PagesProcessed += other.PagesProcessed
	c.RecordsProcessed += other.RecordsProcessed
	c.Inserted += other.Inserted
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Errors += other.Errors
}

// SyncRun is one logical reconciliation run for a tenant and provider. At
// most one non-terminal run may exist per (tenant, provider); the claim is
// enforced by a partial unique index.
type SyncRun struct {
	ID           int64        `json:"-"`
	SyncRunID    string       `json:"sync_run_id"`
	TenantID     string       `json:"tenant_id"`
	Provider     string       `json:"provider"`
	Status       string       `json:"status"`
	Counters     SyncCounters `json:"counters"`
	JobID        *string      `json:"job_id,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	HeartbeatAt  time.Time    `json:"heartbeat_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Continuation is the payload handed from one invocation to the next when
// the page budget runs out. The worker re-enters the engine with it; the run
// row is never recreated.
type Continuation struct {
	SyncRunID      string       `json:"sync_run_id"`
	TenantID       string       `json:"tenant_id"`
	Provider       string       `json:"provider"`
	NextPage       int          `json:"next_page"`
	Counters       SyncCounters `json:"counters"`
	JobID          *string      `json:"job_id,omitempty"`
	BatchStartTime time.Time    `json:"batch_start_time"`
}

// SyncLogEntry is one line of a run's persisted trail.
type SyncLogEntry struct {
	ID        int64     `json:"-"`
	SyncRunID string    `json:"sync_run_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Page      int       `json:"page"`
	CreatedAt time.Time `json:"created_at"`
}

// IntegrationLog is the per-run summary row the back office reads.
type IntegrationLog struct {
	ID        int64          `json:"-"`
	LogID     string         `json:"log_id"`
	TenantID  string         `json:"tenant_id"`
	Provider  string         `json:"provider"`
	Status    string         `json:"status"`
	Summary   map[string]int `json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
}

// SyncActionLog records a single outbound provider call made during an
// invoice or payment pass, with the authorization header already redacted.
type SyncActionLog struct {
	ID              int64     `json:"-"`
	ActionID        string    `json:"action_id"`
	TenantID        string    `json:"tenant_id"`
	Action          string    `json:"action"`
	Method          string    `json:"method"`
	URL             string    `json:"url"`
	StatusCode      int       `json:"status_code"`
	DurationMs      int64     `json:"duration_ms"`
	RequestExcerpt  string    `json:"request_excerpt"`
	ResponseExcerpt string    `json:"response_excerpt"`
	CreatedAt       time.Time `json:"created_at"`
}
