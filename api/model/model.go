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

// Package model holds the inbound request DTOs and their validation rules.
package model

import (
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	contaops "github.com/contaops/contaops"
	"github.com/contaops/contaops/model"
)

var competenciaPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// CompanySyncRequest triggers a company reconciliation run. A fresh trigger
// carries the tenant slug; a continuation re-entry carries the run state
// instead and may only come from the service principal.
type CompanySyncRequest struct {
	TenantSlug string  `json:"tenant_slug"`
	JobID      *string `json:"sync_job_id,omitempty"`

	// Continuation fields.
	SyncRunID      string             `json:"sync_run_id,omitempty"`
	TenantID       string             `json:"tenant_id,omitempty"`
	StartPage      int                `json:"start_page,omitempty"`
	Counters       model.SyncCounters `json:"counters,omitempty"`
	BatchStartTime time.Time          `json:"batch_start_time,omitempty"`
}

// IsContinuation reports whether the body re-enters an existing run.
func (r *CompanySyncRequest) IsContinuation() bool {
	return r.SyncRunID != ""
}

func (r *CompanySyncRequest) ValidateCompanySyncRequest() error {
	if r.IsContinuation() {
		return validation.ValidateStruct(r,
			validation.Field(&r.SyncRunID, validation.Required),
			validation.Field(&r.TenantID, validation.Required),
			validation.Field(&r.StartPage, validation.Required, validation.Min(1)),
		)
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantSlug, validation.Required),
	)
}

// ToContinuation converts the request body into the engine's continuation
// payload.
func (r *CompanySyncRequest) ToContinuation() model.Continuation {
	return model.Continuation{
		SyncRunID:      r.SyncRunID,
		TenantID:       r.TenantID,
		Provider:       model.ProviderRegistry,
		NextPage:       r.StartPage,
		Counters:       r.Counters,
		JobID:          r.JobID,
		BatchStartTime: r.BatchStartTime,
	}
}

// InvoiceItemRequest is one company's monthly value.
type InvoiceItemRequest struct {
	PortalCompanyID string          `json:"portal_company_id"`
	ValorTotalMes   decimal.Decimal `json:"valor_total_mes"`
}

// InvoiceSyncRequest pushes computed monthly values for one competencia.
type InvoiceSyncRequest struct {
	TenantID    string               `json:"tenant_id"`
	Competencia string               `json:"competencia"`
	Items       []InvoiceItemRequest `json:"items"`
}

func (r *InvoiceSyncRequest) ValidateInvoiceSyncRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required),
		validation.Field(&r.Competencia, validation.Required,
			validation.Match(competenciaPattern).Error("competencia must be YYYY-MM")),
		validation.Field(&r.Items, validation.Required, validation.Length(1, 0)),
	)
}

// ToSyncItems converts the request items into engine inputs.
func (r *InvoiceSyncRequest) ToSyncItems() []contaops.InvoiceSyncItem {
	items := make([]contaops.InvoiceSyncItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, contaops.InvoiceSyncItem{
			PortalCompanyID: item.PortalCompanyID,
			ValorTotalMes:   item.ValorTotalMes,
		})
	}
	return items
}

// TenantScopedRequest is the shared body of the passes that only need a
// tenant: payments and contact matching.
type TenantScopedRequest struct {
	TenantID string `json:"tenant_id"`
}

func (r *TenantScopedRequest) ValidateTenantScopedRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required),
	)
}

// ReviewResolveRequest carries who resolved a contact review.
type ReviewResolveRequest struct {
	ResolvedBy string `json:"resolved_by"`
}
