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

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice mapping resolutions, one per (company, competencia) item.
const (
	ResolutionSynced          = "synced"
	ResolutionUnchanged       = "unchanged"
	ResolutionNotFound        = "not_found"
	ResolutionWarningMultiple = "warning_multiple"
	ResolutionFailed          = "failed"
)

// Contract links a company key (normalized CNPJ digits) to the customer
// record in the billing system. Only active contracts take part in invoice
// resolution.
type Contract struct {
	ID               int64           `json:"-"`
	ContractID       string          `json:"contract_id"`
	TenantID         string          `json:"tenant_id"`
	CompanyKey       string          `json:"company_key"`
	CompanyName      string          `json:"company_name"`
	RemoteCustomerID string          `json:"remote_customer_id"`
	MonthlyValue     decimal.Decimal `json:"monthly_value"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        *time.Time      `json:"updated_at,omitempty"`
}

// InvoiceMapping is the durable record of one invoice-value sync decision
// for a company in a given competencia ("YYYY-MM"). Unique per
// (tenant, company_key, competencia); reruns update the same row.
type InvoiceMapping struct {
	ID               int64               `json:"-"`
	MappingID        string              `json:"mapping_id"`
	TenantID         string              `json:"tenant_id"`
	CompanyKey       string              `json:"company_key"`
	Competencia      string              `json:"competencia"`
	RemoteContractID *string             `json:"remote_contract_id,omitempty"`
	RemoteInvoiceID  *string             `json:"remote_invoice_id,omitempty"`
	DueDate          *time.Time          `json:"due_date,omitempty"`
	Resolution       string              `json:"resolution"`
	ValueSet         decimal.NullDecimal `json:"value_set"`
	Message          *string             `json:"message,omitempty"`
	Paid             bool                `json:"paid"`
	PaidAt           *time.Time          `json:"paid_at,omitempty"`
	PaidValue        decimal.NullDecimal `json:"paid_value"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        *time.Time          `json:"updated_at,omitempty"`
}

// InvoiceValue wraps a decimal in a NullDecimal for storage.
func InvoiceValue(v decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: v, Valid: true}
}

// FeeEntry is the fee-tracking row for a company's month. The payment pass
// propagates payment dates here best-effort.
type FeeEntry struct {
	ID          int64               `json:"-"`
	EntryID     string              `json:"entry_id"`
	TenantID    string              `json:"tenant_id"`
	CompanyKey  string              `json:"company_key"`
	Competencia string              `json:"competencia"`
	Value       decimal.Decimal     `json:"value"`
	PaymentDate *time.Time          `json:"payment_date,omitempty"`
	PaidValue   decimal.NullDecimal `json:"paid_value"`
	CreatedAt   time.Time           `json:"created_at"`
}
