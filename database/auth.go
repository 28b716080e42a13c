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
	"database/sql"

	"go.opentelemetry.io/otel"

	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

// GetTenantBySlug resolves the human-facing slug the cron trigger sends.
func (d Datasource) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	ctx, span := otel.Tracer("Auth").Start(ctx, "Fetching tenant by slug")
	defer span.End()

	return d.scanTenant(d.Conn.QueryRowContext(ctx, `
		SELECT id, tenant_id, slug, name, active, created_at
		FROM contaops.tenants
		WHERE slug = $1
	`, slug))
}

// GetTenantByID retrieves a tenant by its internal ID.
func (d Datasource) GetTenantByID(ctx context.Context, tenantID string) (*model.Tenant, error) {
	ctx, span := otel.Tracer("Auth").Start(ctx, "Fetching tenant by ID")
	defer span.End()

	return d.scanTenant(d.Conn.QueryRowContext(ctx, `
		SELECT id, tenant_id, slug, name, active, created_at
		FROM contaops.tenants
		WHERE tenant_id = $1
	`, tenantID))
}

// GetTenantIntegration returns the active credential for one provider.
func (d Datasource) GetTenantIntegration(ctx context.Context, tenantID, provider string) (*model.TenantIntegration, error) {
	ctx, span := otel.Tracer("Auth").Start(ctx, "Fetching tenant integration")
	defer span.End()

	ti := &model.TenantIntegration{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, integration_id, tenant_id, provider, token, active, created_at
		FROM contaops.tenant_integrations
		WHERE tenant_id = $1 AND provider = $2 AND active = TRUE
	`, tenantID, provider).Scan(
		&ti.ID, &ti.IntegrationID, &ti.TenantID, &ti.Provider,
		&ti.Token, &ti.Active, &ti.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Tenant integration not found", provider)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch tenant integration", err)
	}

	return ti, nil
}

// GetSessionUser resolves a bearer session token to its user. Expiry is
// checked by the caller so it can answer 401 with a distinct message.
func (d Datasource) GetSessionUser(ctx context.Context, token string) (*model.User, *model.Session, error) {
	ctx, span := otel.Tracer("Auth").Start(ctx, "Resolving session user")
	defer span.End()

	user := &model.User{}
	session := &model.Session{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT u.id, u.user_id, u.tenant_id, u.email, u.role, u.created_at,
			s.id, s.token, s.user_id, s.expires_at, s.created_at
		FROM contaops.sessions s
		JOIN contaops.users u ON u.user_id = s.user_id
		WHERE s.token = $1
	`, token).Scan(
		&user.ID, &user.UserID, &user.TenantID, &user.Email, &user.Role, &user.CreatedAt,
		&session.ID, &session.Token, &session.UserID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, apierror.NewAPIError(apierror.ErrUnauthorized, "Invalid session token", nil)
	}
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve session", err)
	}

	return user, session, nil
}

func (d Datasource) scanTenant(row *sql.Row) (*model.Tenant, error) {
	t := &model.Tenant{}
	err := row.Scan(&t.ID, &t.TenantID, &t.Slug, &t.Name, &t.Active, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Tenant not found", err)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch tenant", err)
	}
	return t, nil
}
