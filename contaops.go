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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/database"
	"github.com/contaops/contaops/internal/cache"
	"github.com/contaops/contaops/internal/redisdb"
	"github.com/contaops/contaops/model"
	"github.com/contaops/contaops/providers"
)

// Contaops is the reconciliation engine. One instance serves both the API
// process and the queue worker process.
type Contaops struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	cache      cache.Cache
}

//go:embed migrations/*.sql
var MigrationFiles embed.FS

// NewContaops initializes the engine with the provided datasource. It
// fetches the configuration and wires the redis client, cache, and queue.
func NewContaops(db database.IDataSource) (*Contaops, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redisdb.NewRedisClient(fmt.Sprintf("redis://%s", configuration.Redis.Dns))
	if err != nil {
		return nil, err
	}
	companyCache, err := cache.NewCache(configuration.Redis.Dns)
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	return &Contaops{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		cache:      companyCache,
	}, nil
}

// TenantBySlug resolves a tenant from its human-facing slug.
func (c *Contaops) TenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	return c.datasource.GetTenantBySlug(ctx, slug)
}

// registryClient builds the registry client for a tenant from its stored
// integration credential.
func (c *Contaops) registryClient(ctx context.Context, tenantID string) (*providers.RegistryClient, *model.TenantIntegration, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, nil, err
	}
	integration, err := c.datasource.GetTenantIntegration(ctx, tenantID, model.ProviderRegistry)
	if err != nil {
		return nil, nil, err
	}
	return providers.NewRegistryClient(conf.Providers.RegistryBaseURL, integration.Token), integration, nil
}

func (c *Contaops) billingClient(ctx context.Context, tenantID string) (*providers.BillingClient, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	integration, err := c.datasource.GetTenantIntegration(ctx, tenantID, model.ProviderBilling)
	if err != nil {
		return nil, err
	}
	return providers.NewBillingClient(conf.Providers.BillingBaseURL, integration.Token), nil
}

func (c *Contaops) contactsClient(ctx context.Context, tenantID string) (*providers.ContactsClient, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	integration, err := c.datasource.GetTenantIntegration(ctx, tenantID, model.ProviderContacts)
	if err != nil {
		return nil, err
	}
	return providers.NewContactsClient(conf.Providers.ContactsBaseURL, integration.Token), nil
}
