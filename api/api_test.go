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

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	contaops "github.com/contaops/contaops"
	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/database/mocks"
	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

const testServiceKey = "svc-key-test"

type TestRequest struct {
	Payload  io.Reader
	Router   *gin.Engine
	Response interface{}
	Method   string
	Route    string
	Header   map[string]string
}

func SetUpTestRequest(s TestRequest) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)

	err := json.NewDecoder(resp.Body).Decode(&s.Response)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	config.MockConfig(&config.Configuration{
		Server:     config.ServerConfig{ServiceKey: testServiceKey},
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/contaops"},
		Redis:      config.RedisConfig{Dns: mr.Addr()},
		Providers: config.ProviderEndpoints{
			RegistryBaseURL: "http://registry.test",
			BillingBaseURL:  "http://billing.test",
			ContactsBaseURL: "http://contacts.test",
		},
	})

	ds := new(mocks.MockDataSource)
	engine, err := contaops.NewContaops(ds)
	require.NoError(t, err)

	return NewAPI(engine, ds).Router(), ds
}

func serviceHeader() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testServiceKey}
}

func TestHealthNeedsNoAuth(t *testing.T) {
	router, _ := setupRouter(t)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &body,
		Method:   http.MethodGet,
		Route:    "/",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, body["ok"])
}

func TestAuthRejections(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetSessionUser", mock.Anything, "bad-token").
		Return(nil, nil, apierror.NewAPIError(apierror.ErrUnauthorized, "invalid session", nil))
	ds.On("GetSessionUser", mock.Anything, "expired-token").
		Return(
			&model.User{UserID: "usr_1", TenantID: "tenant_1", Role: model.RoleAdmin},
			&model.Session{UserID: "usr_1", ExpiresAt: time.Now().Add(-time.Hour)},
			nil,
		)

	tests := []struct {
		name   string
		header map[string]string
	}{
		{"missing header", nil},
		{"not a bearer token", map[string]string{"Authorization": "Basic abc"}},
		{"unknown token", map[string]string{"Authorization": "Bearer bad-token"}},
		{"expired session", map[string]string{"Authorization": "Bearer expired-token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  strings.NewReader(`{"tenant_id": "tenant_1"}`),
				Router:   router,
				Response: &body,
				Method:   http.MethodPost,
				Route:    "/sync/payments",
				Header:   tt.header,
			})
			require.NoError(t, err)

			assert.Equal(t, http.StatusUnauthorized, resp.Code)
		})
	}
}

func TestSyncPaymentsServicePrincipal(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetTenantIntegration", mock.Anything, "tenant_1", model.ProviderBilling).
		Return(&model.TenantIntegration{TenantID: "tenant_1", Provider: model.ProviderBilling, Token: "tok"}, nil)
	ds.On("GetUnpaidMappings", mock.Anything, "tenant_1", mock.Anything).
		Return([]*model.InvoiceMapping{}, nil)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"tenant_id": "tenant_1"}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/sync/payments",
		Header:   serviceHeader(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	ds.AssertExpectations(t)
}

func TestSyncPaymentsWrongTenantForbidden(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetSessionUser", mock.Anything, "user-token").
		Return(
			&model.User{UserID: "usr_1", TenantID: "tenant_other", Role: model.RoleAdmin},
			&model.Session{UserID: "usr_1", ExpiresAt: time.Now().Add(time.Hour)},
			nil,
		)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"tenant_id": "tenant_1"}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/sync/payments",
		Header:   map[string]string{"Authorization": "Bearer user-token"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSyncPaymentsNonAdminForbidden(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetSessionUser", mock.Anything, "user-token").
		Return(
			&model.User{UserID: "usr_1", TenantID: "tenant_1", Role: "member"},
			&model.Session{UserID: "usr_1", ExpiresAt: time.Now().Add(time.Hour)},
			nil,
		)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"tenant_id": "tenant_1"}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/sync/payments",
		Header:   map[string]string{"Authorization": "Bearer user-token"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestSyncInvoicesValidation(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"missing tenant", `{"competencia": "2026-08", "items": [{"portal_company_id": "p1", "valor_total_mes": "100"}]}`},
		{"bad competencia month", `{"tenant_id": "tenant_1", "competencia": "2026-13", "items": [{"portal_company_id": "p1", "valor_total_mes": "100"}]}`},
		{"competencia not year-month", `{"tenant_id": "tenant_1", "competencia": "08/2026", "items": [{"portal_company_id": "p1", "valor_total_mes": "100"}]}`},
		{"no items", `{"tenant_id": "tenant_1", "competencia": "2026-08", "items": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]interface{}
			resp, err := SetUpTestRequest(TestRequest{
				Payload:  strings.NewReader(tt.payload),
				Router:   router,
				Response: &body,
				Method:   http.MethodPost,
				Route:    "/sync/invoices",
				Header:   serviceHeader(),
			})
			require.NoError(t, err)

			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCompanySyncContinuationRequiresService(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetSessionUser", mock.Anything, "user-token").
		Return(
			&model.User{UserID: "usr_1", TenantID: "tenant_1", Role: model.RoleAdmin},
			&model.Session{UserID: "usr_1", ExpiresAt: time.Now().Add(time.Hour)},
			nil,
		)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"sync_run_id": "run_1", "tenant_id": "tenant_1", "start_page": 2}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/sync/companies",
		Header:   map[string]string{"Authorization": "Bearer user-token"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	ds.AssertNotCalled(t, "GetSyncRun", mock.Anything, mock.Anything)
}

func TestListPendingReviewsRequiresTenant(t *testing.T) {
	router, _ := setupRouter(t)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Router:   router,
		Response: &body,
		Method:   http.MethodGet,
		Route:    "/contact-reviews",
		Header:   serviceHeader(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestApproveReview(t *testing.T) {
	router, ds := setupRouter(t)

	pending := &model.ContactReview{
		ReviewID:           "rev_1",
		TenantID:           "tenant_1",
		ContactID:          "c1",
		ContactName:        "JMC - Joana",
		ContactPhone:       "+5511988880002",
		CandidateCompanyID: "cmp_jmc",
		Status:             model.ReviewPending,
	}
	approved := &model.ContactReview{
		ReviewID:           "rev_1",
		TenantID:           "tenant_1",
		ContactID:          "c1",
		ContactName:        "JMC - Joana",
		ContactPhone:       "+5511988880002",
		CandidateCompanyID: "cmp_jmc",
		Status:             model.ReviewApproved,
	}

	ds.On("GetReview", mock.Anything, "rev_1").Return(pending, nil).Twice()
	ds.On("ResolveReview", mock.Anything, "rev_1", model.ReviewApproved, "service").Return(true, nil)
	ds.On("LinkCompanyContact", mock.Anything, "cmp_jmc", "c1", "+5511988880002").Return(nil)
	ds.On("GetReview", mock.Anything, "rev_1").Return(approved, nil)

	var body model.ContactReview
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/contact-reviews/rev_1/approve",
		Header:   serviceHeader(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.ReviewApproved, body.Status)
	ds.AssertExpectations(t)
}

func TestApproveReviewAlreadyResolvedConflicts(t *testing.T) {
	router, ds := setupRouter(t)

	resolved := &model.ContactReview{
		ReviewID:           "rev_1",
		TenantID:           "tenant_1",
		ContactID:          "c1",
		CandidateCompanyID: "cmp_jmc",
		Status:             model.ReviewApproved,
	}

	ds.On("GetReview", mock.Anything, "rev_1").Return(resolved, nil)
	ds.On("ResolveReview", mock.Anything, "rev_1", model.ReviewApproved, "service").Return(false, nil)

	var body map[string]interface{}
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/contact-reviews/rev_1/approve",
		Header:   serviceHeader(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusConflict, resp.Code)
	ds.AssertNotCalled(t, "LinkCompanyContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIgnoreReviewResolvedByFromBody(t *testing.T) {
	router, ds := setupRouter(t)

	review := &model.ContactReview{
		ReviewID:           "rev_2",
		TenantID:           "tenant_1",
		ContactID:          "c2",
		CandidateCompanyID: "cmp_jmc",
		Status:             model.ReviewIgnored,
	}

	ds.On("GetReview", mock.Anything, "rev_2").Return(review, nil)
	ds.On("ResolveReview", mock.Anything, "rev_2", model.ReviewIgnored, "usr_7").Return(true, nil)

	var body model.ContactReview
	resp, err := SetUpTestRequest(TestRequest{
		Payload:  strings.NewReader(`{"resolved_by": "usr_7"}`),
		Router:   router,
		Response: &body,
		Method:   http.MethodPost,
		Route:    "/contact-reviews/rev_2/ignore",
		Header:   serviceHeader(),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, model.ReviewIgnored, body.Status)
	ds.AssertNotCalled(t, "LinkCompanyContact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
