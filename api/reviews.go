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

	"github.com/contaops/contaops/api/middleware"
	model2 "github.com/contaops/contaops/api/model"
)

// ListPendingReviews returns a tenant's open review queue.
func (a Api) ListPendingReviews(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenant_id is required"})
		return
	}
	if !middleware.RequireTenantAdmin(c, tenantID) {
		return
	}

	reviews, err := a.service.PendingReviews(c.Request.Context(), tenantID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// ApproveReview applies a pending review's candidate link.
func (a Api) ApproveReview(c *gin.Context) {
	a.resolveReview(c, true)
}

// IgnoreReview resolves a pending review without linking.
func (a Api) IgnoreReview(c *gin.Context) {
	a.resolveReview(c, false)
}

func (a Api) resolveReview(c *gin.Context, approve bool) {
	reviewID, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "review id is required. pass id in the route /:id"})
		return
	}

	var req model2.ReviewResolveRequest
	_ = c.ShouldBindJSON(&req)

	review, err := a.service.Review(c.Request.Context(), reviewID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !middleware.RequireTenantAdmin(c, review.TenantID) {
		return
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		if user := middleware.AuthenticatedUser(c); user != nil {
			resolvedBy = user.UserID
		} else {
			resolvedBy = "service"
		}
	}

	if approve {
		review, err = a.service.ApproveReview(c.Request.Context(), reviewID, resolvedBy)
	} else {
		review, err = a.service.IgnoreReview(c.Request.Context(), reviewID, resolvedBy)
	}
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}
