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
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

func TestMatchContactsClassifiesOutcomes(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	engine, ds := newTestEngine(t, config.SyncConfig{})

	httpmock.RegisterResponder("GET", "http://contacts.test/contacts?page=1&per_page=100",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "c1", "name": "Acme Transportes - Maria", "phone": "+5511988880001"},
				{"id": "c2", "name": "JMC - Joana", "phone": "+5511988880002"},
				{"id": "c3", "name": "Ltda"},
			},
		}))

	ds.On("GetTenantIntegration", mock.Anything, "tenant_1", model.ProviderContacts).
		Return(&model.TenantIntegration{Provider: model.ProviderContacts, Token: "tok"}, nil)
	ds.On("GetCompaniesForTenant", mock.Anything, "tenant_1").Return([]*model.Company{
		{CompanyID: "cmp_acme", Name: "Acme Transportes Ltda", CNPJ: "12.345.678/0001-95"},
		{CompanyID: "cmp_jmc", Name: "JMC Comercio", CNPJ: "98.765.432/0001-10"},
	}, nil)
	ds.On("RecordContactMatch", mock.Anything, mock.Anything).Return(nil)

	ds.On("LinkCompanyContact", mock.Anything, "cmp_acme", "c1", "+5511988880001").Return(nil)
	ds.On("CreatePendingReview", mock.Anything, mock.MatchedBy(func(r *model.ContactReview) bool {
		return r.ContactID == "c2" && r.ContactPhone == "+5511988880002" &&
			r.CandidateCompanyID == "cmp_jmc"
	})).Return(true, nil)
	ds.On("RecordIntegrationLog", mock.Anything, mock.Anything).Return(nil)

	response, err := engine.MatchContacts(context.Background(), "tenant_1")
	require.NoError(t, err)

	assert.True(t, response.Success)
	assert.Equal(t, 3, response.TotalProcessados)
	assert.Equal(t, 1, response.TotalMatched)
	assert.Equal(t, 1, response.TotalReview)
	assert.Equal(t, 1, response.TotalIgnored)
	ds.AssertExpectations(t)
}

func TestMatchContactsLinkFailureDowngradesToIgnore(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	engine, ds := newTestEngine(t, config.SyncConfig{})

	httpmock.RegisterResponder("GET", "http://contacts.test/contacts?page=1&per_page=100",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "c1", "name": "Acme Transportes - Maria"},
			},
		}))

	ds.On("GetTenantIntegration", mock.Anything, "tenant_1", model.ProviderContacts).
		Return(&model.TenantIntegration{Provider: model.ProviderContacts, Token: "tok"}, nil)
	ds.On("GetCompaniesForTenant", mock.Anything, "tenant_1").Return([]*model.Company{
		{CompanyID: "cmp_acme", Name: "Acme Transportes Ltda", CNPJ: "12.345.678/0001-95"},
	}, nil)
	ds.On("RecordContactMatch", mock.Anything, mock.Anything).Return(nil)
	ds.On("LinkCompanyContact", mock.Anything, "cmp_acme", "c1", "").
		Return(apierror.NewAPIError(apierror.ErrNotFound, "Company not found", nil))
	ds.On("RecordIntegrationLog", mock.Anything, mock.Anything).Return(nil)

	response, err := engine.MatchContacts(context.Background(), "tenant_1")
	require.NoError(t, err)

	assert.Equal(t, 0, response.TotalMatched)
	assert.Equal(t, 1, response.TotalIgnored)
	ds.AssertExpectations(t)
}

func TestMatchContactsLeavesClaimedCompaniesAlone(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	engine, ds := newTestEngine(t, config.SyncConfig{})

	httpmock.RegisterResponder("GET", "http://contacts.test/contacts?page=1&per_page=100",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "c_new", "name": "Acme Transportes - Maria", "phone": "+5511988880001"},
				{"id": "c_other", "name": "Beta Contabil - Pedro", "phone": "+5511988880002"},
			},
		}))

	ds.On("GetTenantIntegration", mock.Anything, "tenant_1", model.ProviderContacts).
		Return(&model.TenantIntegration{Provider: model.ProviderContacts, Token: "tok"}, nil)
	// cmp_acme is already linked; cmp_beta carries a phone. Neither may be
	// overwritten, so both contacts count as ignored.
	ds.On("GetCompaniesForTenant", mock.Anything, "tenant_1").Return([]*model.Company{
		{CompanyID: "cmp_acme", Name: "Acme Transportes Ltda", CNPJ: "12.345.678/0001-95",
			WhatsAppContactID: ptr.String("c_old")},
		{CompanyID: "cmp_beta", Name: "Beta Contabil Ltda", CNPJ: "98.765.432/0001-10",
			WhatsAppPhone: ptr.String("+5511977770000")},
	}, nil)
	ds.On("RecordContactMatch", mock.Anything, mock.Anything).Return(nil)
	ds.On("RecordIntegrationLog", mock.Anything, mock.Anything).Return(nil)

	response, err := engine.MatchContacts(context.Background(), "tenant_1")
	require.NoError(t, err)

	assert.Equal(t, 0, response.TotalMatched)
	assert.Equal(t, 2, response.TotalIgnored)
	ds.AssertNotCalled(t, "LinkCompanyContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestMatchContactsPageFailureKeepsPartialTotals(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	engine, ds := newTestEngine(t, config.SyncConfig{})

	httpmock.RegisterResponder("GET", "http://contacts.test/contacts?page=1&per_page=100",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"data": []map[string]interface{}{
				{"id": "c1", "name": "Acme Transportes - Maria", "phone": "+5511988880001"},
			},
			"meta": map[string]interface{}{"has_more": true},
		}))
	httpmock.RegisterResponder("GET", "http://contacts.test/contacts?page=2&per_page=100",
		httpmock.NewStringResponder(500, `{"error": "upstream down"}`))

	ds.On("GetTenantIntegration", mock.Anything, "tenant_1", model.ProviderContacts).
		Return(&model.TenantIntegration{Provider: model.ProviderContacts, Token: "tok"}, nil)
	ds.On("GetCompaniesForTenant", mock.Anything, "tenant_1").Return([]*model.Company{
		{CompanyID: "cmp_acme", Name: "Acme Transportes Ltda", CNPJ: "12.345.678/0001-95"},
	}, nil)
	ds.On("RecordContactMatch", mock.Anything, mock.Anything).Return(nil)
	ds.On("LinkCompanyContact", mock.Anything, "cmp_acme", "c1", "+5511988880001").Return(nil)
	ds.On("RecordIntegrationLog", mock.Anything, mock.MatchedBy(func(l *model.IntegrationLog) bool {
		return l.Status == model.StatusFailed && l.Summary["total_processados"] == 1
	})).Return(nil)

	response, err := engine.MatchContacts(context.Background(), "tenant_1")
	require.NoError(t, err)

	assert.False(t, response.Success)
	assert.Equal(t, 1, response.TotalProcessados)
	assert.Equal(t, 1, response.TotalMatched)
	ds.AssertExpectations(t)
}

func TestBestCompanyMatchTieBreaksOnKey(t *testing.T) {
	snapshot := []SnapshotEntry{
		{CompanyID: "cmp_b", NormalizedName: "ACME", Key: "22222222000122"},
		{CompanyID: "cmp_a", NormalizedName: "ACME", Key: "11111111000111"},
	}

	idx, score, found := bestCompanyMatch("ACME", snapshot)
	require.True(t, found)
	assert.Equal(t, 1.0, score)
	assert.Equal(t, "cmp_a", snapshot[idx].CompanyID)
}

func TestCompanySnapshotIsCached(t *testing.T) {
	engine, ds := newTestEngine(t, config.SyncConfig{})

	ds.On("GetCompaniesForTenant", mock.Anything, "tenant_1").Return([]*model.Company{
		{CompanyID: "cmp_acme", Name: "Acme Transportes Ltda", CNPJ: "12.345.678/0001-95"},
	}, nil).Once()

	ctx := context.Background()
	first, err := engine.companySnapshot(ctx, "tenant_1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "ACME TRANSPORTES", first[0].NormalizedName)
	assert.Equal(t, "12345678000195", first[0].Key)

	second, err := engine.companySnapshot(ctx, "tenant_1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	ds.AssertExpectations(t)
}

func TestApproveReviewLinksAndResolves(t *testing.T) {
	engine, ds := newTestEngine(t, config.SyncConfig{})

	pending := &model.ContactReview{
		ReviewID:           "rev_1",
		TenantID:           "tenant_1",
		ContactID:          "c2",
		ContactPhone:       "+5511988880002",
		CandidateCompanyID: "cmp_jmc",
		Status:             model.ReviewPending,
	}
	resolved := &model.ContactReview{
		ReviewID:           "rev_1",
		TenantID:           "tenant_1",
		ContactID:          "c2",
		ContactPhone:       "+5511988880002",
		CandidateCompanyID: "cmp_jmc",
		Status:             model.ReviewApproved,
		ResolvedBy:         ptr.String("usr_1"),
	}

	ds.On("GetReview", mock.Anything, "rev_1").Return(pending, nil).Once()
	ds.On("ResolveReview", mock.Anything, "rev_1", model.ReviewApproved, "usr_1").Return(true, nil)
	ds.On("LinkCompanyContact", mock.Anything, "cmp_jmc", "c2", "+5511988880002").Return(nil)
	ds.On("GetReview", mock.Anything, "rev_1").Return(resolved, nil).Once()

	review, err := engine.ApproveReview(context.Background(), "rev_1", "usr_1")
	require.NoError(t, err)

	assert.Equal(t, model.ReviewApproved, review.Status)
	ds.AssertExpectations(t)
}

func TestApproveReviewTwiceConflicts(t *testing.T) {
	engine, ds := newTestEngine(t, config.SyncConfig{})

	ds.On("GetReview", mock.Anything, "rev_1").Return(&model.ContactReview{
		ReviewID: "rev_1", TenantID: "tenant_1", ContactID: "c2",
		CandidateCompanyID: "cmp_jmc", Status: model.ReviewApproved,
	}, nil)
	ds.On("ResolveReview", mock.Anything, "rev_1", model.ReviewApproved, "usr_1").Return(false, nil)

	_, err := engine.ApproveReview(context.Background(), "rev_1", "usr_1")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	ds.AssertNotCalled(t, "LinkCompanyContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}

func TestIgnoreReviewResolvesWithoutLinking(t *testing.T) {
	engine, ds := newTestEngine(t, config.SyncConfig{})

	ds.On("ResolveReview", mock.Anything, "rev_1", model.ReviewIgnored, "usr_1").Return(true, nil)
	ds.On("GetReview", mock.Anything, "rev_1").Return(&model.ContactReview{
		ReviewID: "rev_1", Status: model.ReviewIgnored,
	}, nil)

	review, err := engine.IgnoreReview(context.Background(), "rev_1", "usr_1")
	require.NoError(t, err)

	assert.Equal(t, model.ReviewIgnored, review.Status)
	ds.AssertNotCalled(t, "LinkCompanyContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	ds.AssertExpectations(t)
}
