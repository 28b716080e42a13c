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
package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/contaops/contaops/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Company methods

func (m *MockDataSource) CreateCompany(ctx context.Context, cmp *model.Company) (*model.Company, error) {
	args := m.Called(ctx, cmp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockDataSource) UpdateCompanyFromSync(ctx context.Context, companyID, name, cnpj, contentHash string) error {
	args := m.Called(ctx, companyID, name, cnpj, contentHash)
	return args.Error(0)
}

func (m *MockDataSource) GetCompanyByCNPJ(ctx context.Context, tenantID, cnpj string) (*model.Company, error) {
	args := m.Called(ctx, tenantID, cnpj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockDataSource) GetCompanyByTaxKey(ctx context.Context, tenantID, normalizedKey string) (*model.Company, error) {
	args := m.Called(ctx, tenantID, normalizedKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockDataSource) GetCompanyByRemoteID(ctx context.Context, tenantID, remoteID string) (*model.Company, error) {
	args := m.Called(ctx, tenantID, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockDataSource) GetCompaniesForTenant(ctx context.Context, tenantID string) ([]*model.Company, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Company), args.Error(1)
}

func (m *MockDataSource) LinkCompanyContact(ctx context.Context, companyID, contactID, phone string) error {
	args := m.Called(ctx, companyID, contactID, phone)
	return args.Error(0)
}

// Sync run methods

func (m *MockDataSource) ClaimSyncRun(ctx context.Context, run *model.SyncRun) (bool, error) {
	args := m.Called(ctx, run)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetSyncRun(ctx context.Context, syncRunID string) (*model.SyncRun, error) {
	args := m.Called(ctx, syncRunID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SyncRun), args.Error(1)
}

func (m *MockDataSource) CheckpointSyncRun(ctx context.Context, syncRunID, status string, counters model.SyncCounters) error {
	args := m.Called(ctx, syncRunID, status, counters)
	return args.Error(0)
}

func (m *MockDataSource) FinalizeSyncRun(ctx context.Context, syncRunID, status string, counters model.SyncCounters, errMsg *string) error {
	args := m.Called(ctx, syncRunID, status, counters, errMsg)
	return args.Error(0)
}

func (m *MockDataSource) SweepStaleRuns(ctx context.Context, runningBefore, pendingBefore time.Time) (int64, error) {
	args := m.Called(ctx, runningBefore, pendingBefore)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) UpdateJobProgress(ctx context.Context, jobID, status string, percent int) error {
	args := m.Called(ctx, jobID, status, percent)
	return args.Error(0)
}

func (m *MockDataSource) RecordSyncLog(ctx context.Context, entry *model.SyncLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) RecordIntegrationLog(ctx context.Context, logEntry *model.IntegrationLog) error {
	args := m.Called(ctx, logEntry)
	return args.Error(0)
}

func (m *MockDataSource) RecordSyncAction(ctx context.Context, action *model.SyncActionLog) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

// Billing methods

func (m *MockDataSource) GetActiveContracts(ctx context.Context, tenantID, companyKey string) ([]*model.Contract, error) {
	args := m.Called(ctx, tenantID, companyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Contract), args.Error(1)
}

func (m *MockDataSource) UpsertInvoiceMapping(ctx context.Context, mapping *model.InvoiceMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockDataSource) GetInvoiceMapping(ctx context.Context, tenantID, companyKey, competencia string) (*model.InvoiceMapping, error) {
	args := m.Called(ctx, tenantID, companyKey, competencia)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InvoiceMapping), args.Error(1)
}

func (m *MockDataSource) GetUnpaidMappings(ctx context.Context, tenantID string, competencias []string) ([]*model.InvoiceMapping, error) {
	args := m.Called(ctx, tenantID, competencias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.InvoiceMapping), args.Error(1)
}

func (m *MockDataSource) MarkMappingPaid(ctx context.Context, mappingID string, paidAt time.Time, paidValue decimal.Decimal) error {
	args := m.Called(ctx, mappingID, paidAt, paidValue)
	return args.Error(0)
}

func (m *MockDataSource) SetFeePaymentDate(ctx context.Context, tenantID, companyKey, competencia string, paidAt time.Time, paidValue decimal.Decimal) error {
	args := m.Called(ctx, tenantID, companyKey, competencia, paidAt, paidValue)
	return args.Error(0)
}

// Contact methods

func (m *MockDataSource) RecordContactMatch(ctx context.Context, entry *model.ContactMatchLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockDataSource) CreatePendingReview(ctx context.Context, review *model.ContactReview) (bool, error) {
	args := m.Called(ctx, review)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetReview(ctx context.Context, reviewID string) (*model.ContactReview, error) {
	args := m.Called(ctx, reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContactReview), args.Error(1)
}

func (m *MockDataSource) ResolveReview(ctx context.Context, reviewID, status, resolvedBy string) (bool, error) {
	args := m.Called(ctx, reviewID, status, resolvedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) GetPendingReviews(ctx context.Context, tenantID string) ([]*model.ContactReview, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ContactReview), args.Error(1)
}

// Auth methods

func (m *MockDataSource) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockDataSource) GetTenantByID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Tenant), args.Error(1)
}

func (m *MockDataSource) GetTenantIntegration(ctx context.Context, tenantID, provider string) (*model.TenantIntegration, error) {
	args := m.Called(ctx, tenantID, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TenantIntegration), args.Error(1)
}

func (m *MockDataSource) GetSessionUser(ctx context.Context, token string) (*model.User, *model.Session, error) {
	args := m.Called(ctx, token)
	var user *model.User
	var session *model.Session
	if args.Get(0) != nil {
		user = args.Get(0).(*model.User)
	}
	if args.Get(1) != nil {
		session = args.Get(1).(*model.Session)
	}
	return user, session, args.Error(2)
}
