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
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/contaops/contaops/api/middleware"
	model2 "github.com/contaops/contaops/api/model"
	"github.com/contaops/contaops/internal/apierror"
)

// SyncCompanies handles both a fresh company sync trigger and a
// continuation re-entry. Continuations come from the engine itself, so they
// require the service principal.
func (a Api) SyncCompanies(c *gin.Context) {
	var req model2.CompanySyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.ValidateCompanySyncRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IsContinuation() {
		if !middleware.RequireService(c) {
			return
		}
		result, err := a.service.ResumeCompanySync(c.Request.Context(), req.ToContinuation())
		if err != nil {
			a.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	// The tenant is resolved from the slug inside the engine; admin scoping
	// for user principals happens against the resolved tenant there too, so
	// here it is enough that a session user is an admin somewhere or the
	// caller is the service.
	if user := middleware.AuthenticatedUser(c); user != nil {
		tenant, err := a.service.TenantBySlug(c.Request.Context(), req.TenantSlug)
		if err != nil {
			a.writeError(c, err)
			return
		}
		if !middleware.RequireTenantAdmin(c, tenant.TenantID) {
			return
		}
	}

	result, err := a.service.StartCompanySync(c.Request.Context(), req.TenantSlug, req.JobID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SyncInvoices pushes monthly values onto open invoices.
func (a Api) SyncInvoices(c *gin.Context) {
	var req model2.InvoiceSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.ValidateInvoiceSyncRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !middleware.RequireTenantAdmin(c, req.TenantID) {
		return
	}

	response, err := a.service.SyncInvoices(c.Request.Context(), req.TenantID, req.Competencia, req.ToSyncItems())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SyncPayments runs the payment reconciliation pass.
func (a Api) SyncPayments(c *gin.Context) {
	var req model2.TenantScopedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.ValidateTenantScopedRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !middleware.RequireTenantAdmin(c, req.TenantID) {
		return
	}

	response, err := a.service.SyncPayments(c.Request.Context(), req.TenantID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// SyncContacts runs the contact identity matcher.
func (a Api) SyncContacts(c *gin.Context) {
	var req model2.TenantScopedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.ValidateTenantScopedRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !middleware.RequireTenantAdmin(c, req.TenantID) {
		return
	}

	response, err := a.service.MatchContacts(c.Request.Context(), req.TenantID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// writeError maps engine errors onto HTTP statuses. Unknown errors become a
// 500 with a generic body; the details stay in the logs.
func (a Api) writeError(c *gin.Context, err error) {
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(apierror.MapErrorToHTTPStatus(apiErr), gin.H{"error": apiErr.Message})
		return
	}
	logrus.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
