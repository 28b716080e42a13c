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
	"time"

	"github.com/shopspring/decimal"

	"github.com/contaops/contaops/model"
)

type IDataSource interface {
	company
	syncRun
	billing
	contact
	auth
}

type company interface {
	CreateCompany(ctx context.Context, cmp *model.Company) (*model.Company, error)
	UpdateCompanyFromSync(ctx context.Context, companyID, name, cnpj, contentHash string) error
	GetCompanyByCNPJ(ctx context.Context, tenantID, cnpj string) (*model.Company, error)
	GetCompanyByTaxKey(ctx context.Context, tenantID, normalizedKey string) (*model.Company, error)
	GetCompanyByRemoteID(ctx context.Context, tenantID, remoteID string) (*model.Company, error)
	GetCompaniesForTenant(ctx context.Context, tenantID string) ([]*model.Company, error)
	LinkCompanyContact(ctx context.Context, companyID, contactID, phone string) error
}

type syncRun interface {
	ClaimSyncRun(ctx context.Context, run *model.SyncRun) (bool, error)
	GetSyncRun(ctx context.Context, syncRunID string) (*model.SyncRun, error)
	CheckpointSyncRun(ctx context.Context, syncRunID, status string, counters model.SyncCounters) error
	FinalizeSyncRun(ctx context.Context, syncRunID, status string, counters model.SyncCounters, errMsg *string) error
	SweepStaleRuns(ctx context.Context, runningBefore, pendingBefore time.Time) (int64, error)
	UpdateJobProgress(ctx context.Context, jobID, status string, percent int) error
	RecordSyncLog(ctx context.Context, entry *model.SyncLogEntry) error
	RecordIntegrationLog(ctx context.Context, logEntry *model.IntegrationLog) error
	RecordSyncAction(ctx context.Context, action *model.SyncActionLog) error
}

type billing interface {
	GetActiveContracts(ctx context.Context, tenantID, companyKey string) ([]*model.Contract, error)
	UpsertInvoiceMapping(ctx context.Context, mapping *model.InvoiceMapping) error
	GetInvoiceMapping(ctx context.Context, tenantID, companyKey, competencia string) (*model.InvoiceMapping, error)
	GetUnpaidMappings(ctx context.Context, tenantID string, competencias []string) ([]*model.InvoiceMapping, error)
	MarkMappingPaid(ctx context.Context, mappingID string, paidAt time.Time, paidValue decimal.Decimal) error
	SetFeePaymentDate(ctx context.Context, tenantID, companyKey, competencia string, paidAt time.Time, paidValue decimal.Decimal) error
}

type contact interface {
	RecordContactMatch(ctx context.Context, entry *model.ContactMatchLog) error
	CreatePendingReview(ctx context.Context, review *model.ContactReview) (bool, error)
	GetReview(ctx context.Context, reviewID string) (*model.ContactReview, error)
	ResolveReview(ctx context.Context, reviewID, status, resolvedBy string) (bool, error)
	GetPendingReviews(ctx context.Context, tenantID string) ([]*model.ContactReview, error)
}

type auth interface {
	GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	GetTenantByID(ctx context.Context, tenantID string) (*model.Tenant, error)
	GetTenantIntegration(ctx context.Context, tenantID, provider string) (*model.TenantIntegration, error)
	GetSessionUser(ctx context.Context, token string) (*model.User, *model.Session, error)
}
