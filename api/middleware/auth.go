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

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/database"
	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

// Context keys set by Authenticate.
const (
	CtxIsService = "auth_is_service"
	CtxUser      = "auth_user"
)

// AuthMiddleware validates the Authorization header. Two principals exist:
// the configured service key, used by the cron trigger and the engine's own
// continuations, and a user session token, which must belong to an admin of
// the tenant the request targets.
type AuthMiddleware struct {
	datasource database.IDataSource
}

func NewAuthMiddleware(ds database.IDataSource) *AuthMiddleware {
	return &AuthMiddleware{datasource: ds}
}

// Authenticate resolves the bearer token and stashes the principal on the
// gin context. Tenant scoping is checked per handler via RequireTenantAdmin
// because the target tenant lives in the request body.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := config.Fetch()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "configuration unavailable"})
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "malformed authorization header"})
			return
		}

		if conf.Server.ServiceKey != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(conf.Server.ServiceKey)) == 1 {
			c.Set(CtxIsService, true)
			c.Next()
			return
		}

		user, session, err := m.datasource.GetSessionUser(c.Request.Context(), token)
		if err != nil {
			if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrUnauthorized {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			logrus.Errorf("session lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if session.Expired(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		c.Set(CtxIsService, false)
		c.Set(CtxUser, user)
		c.Next()
	}
}

// RequireTenantAdmin checks that the authenticated principal may act on the
// given tenant. The service principal always may; a user must hold the
// admin role for that exact tenant. On failure the response is already
// written and false is returned.
func RequireTenantAdmin(c *gin.Context, tenantID string) bool {
	if c.GetBool(CtxIsService) {
		return true
	}

	v, exists := c.Get(CtxUser)
	if !exists {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
		return false
	}
	user, ok := v.(*model.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return false
	}

	if user.Role != model.RoleAdmin || user.TenantID != tenantID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

// RequireService restricts an endpoint to the service principal, used for
// continuation re-entry.
func RequireService(c *gin.Context) bool {
	if c.GetBool(CtxIsService) {
		return true
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	return false
}

// AuthenticatedUser returns the session user, nil for the service principal.
func AuthenticatedUser(c *gin.Context) *model.User {
	v, exists := c.Get(CtxUser)
	if !exists {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}
