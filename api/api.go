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
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	contaops "github.com/contaops/contaops"
	"github.com/contaops/contaops/api/middleware"
	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/database"
)

type Api struct {
	service *contaops.Contaops
	auth    *middleware.AuthMiddleware
	router  *gin.Engine
}

// Router registers all routes. The GET probes stay outside the auth
// middleware so the cron scheduler can health-check without a key.
func (a Api) Router() *gin.Engine {
	router := a.router

	router.GET("/", a.Health)
	router.GET("/sync/companies", a.Health)

	authed := router.Group("/", a.auth.Authenticate())
	authed.POST("/sync/companies", a.SyncCompanies)
	authed.POST("/sync/invoices", a.SyncInvoices)
	authed.POST("/sync/payments", a.SyncPayments)
	authed.POST("/sync/contacts", a.SyncContacts)

	authed.GET("/contact-reviews", a.ListPendingReviews)
	authed.POST("/contact-reviews/:id/approve", a.ApproveReview)
	authed.POST("/contact-reviews/:id/ignore", a.IgnoreReview)

	return a.router
}

func NewAPI(service *contaops.Contaops, ds database.IDataSource) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}

	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))

	return &Api{
		service: service,
		auth:    middleware.NewAuthMiddleware(ds),
		router:  r,
	}
}

// Health is the unauthenticated probe.
func (a Api) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "timestamp": time.Now().UTC().Format(time.RFC3339)})
}
