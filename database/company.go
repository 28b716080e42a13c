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
	"time"

	"go.opentelemetry.io/otel"

	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

// CreateCompany inserts a new mirrored company for a tenant.
func (d Datasource) CreateCompany(ctx context.Context, cmp *model.Company) (*model.Company, error) {
	ctx, span := otel.Tracer("Company").Start(ctx, "Saving company to db")
	defer span.End()

	cmp.CompanyID = model.GenerateUUIDWithSuffix("cmp")
	cmp.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx,
		`INSERT INTO contaops.companies(
			company_id, tenant_id, name, cnpj, remote_id, content_hash, active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		cmp.CompanyID, cmp.TenantID, cmp.Name, cmp.CNPJ, cmp.RemoteID,
		cmp.ContentHash, cmp.Active, cmp.CreatedAt,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create company", err)
	}

	return cmp, nil
}

// UpdateCompanyFromSync overwrites the synced fields of an existing company
// when its content hash changed upstream.
func (d Datasource) UpdateCompanyFromSync(ctx context.Context, companyID, name, cnpj, contentHash string) error {
	ctx, span := otel.Tracer("Company").Start(ctx, "Updating company from sync")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.companies
		SET name = $2, cnpj = $3, content_hash = $4, updated_at = $5
		WHERE company_id = $1
	`, companyID, name, cnpj, contentHash, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update company", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update company", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Company not found", companyID)
	}

	return nil
}

// GetCompanyByCNPJ looks a company up by the exact stored CNPJ string.
func (d Datasource) GetCompanyByCNPJ(ctx context.Context, tenantID, cnpj string) (*model.Company, error) {
	ctx, span := otel.Tracer("Company").Start(ctx, "Fetching company by CNPJ")
	defer span.End()

	return d.scanCompany(d.Conn.QueryRowContext(ctx, `
		SELECT id, company_id, tenant_id, name, cnpj, remote_id, content_hash,
			whatsapp_contact_id, whatsapp_phone, contact_synced_at,
			active, created_at, updated_at
		FROM contaops.companies
		WHERE tenant_id = $1 AND cnpj = $2
	`, tenantID, cnpj))
}

// GetCompanyByTaxKey looks a company up by normalized CNPJ digits, ignoring
// whatever formatting the stored value carries.
func (d Datasource) GetCompanyByTaxKey(ctx context.Context, tenantID, normalizedKey string) (*model.Company, error) {
	ctx, span := otel.Tracer("Company").Start(ctx, "Fetching company by tax key")
	defer span.End()

	return d.scanCompany(d.Conn.QueryRowContext(ctx, `
		SELECT id, company_id, tenant_id, name, cnpj, remote_id, content_hash,
			whatsapp_contact_id, whatsapp_phone, contact_synced_at,
			active, created_at, updated_at
		FROM contaops.companies
		WHERE tenant_id = $1 AND regexp_replace(cnpj, '[^0-9]', '', 'g') = $2
	`, tenantID, normalizedKey))
}

// GetCompanyByRemoteID looks a company up by the registry's record ID, the
// key the billing sync payload carries.
func (d Datasource) GetCompanyByRemoteID(ctx context.Context, tenantID, remoteID string) (*model.Company, error) {
	ctx, span := otel.Tracer("Company").Start(ctx, "Fetching company by remote ID")
	defer span.End()

	return d.scanCompany(d.Conn.QueryRowContext(ctx, `
		SELECT id, company_id, tenant_id, name, cnpj, remote_id, content_hash,
			whatsapp_contact_id, whatsapp_phone, contact_synced_at,
			active, created_at, updated_at
		FROM contaops.companies
		WHERE tenant_id = $1 AND remote_id = $2
	`, tenantID, remoteID))
}

// GetCompaniesForTenant returns every active company of a tenant, the source
// set for the contact matcher's snapshot.
func (d Datasource) GetCompaniesForTenant(ctx context.Context, tenantID string) ([]*model.Company, error) {
	ctx, span := otel.Tracer("Company").Start(ctx, "Fetching companies for tenant")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, company_id, tenant_id, name, cnpj, remote_id, content_hash,
			whatsapp_contact_id, whatsapp_phone, contact_synced_at,
			active, created_at, updated_at
		FROM contaops.companies
		WHERE tenant_id = $1 AND active = TRUE
		ORDER BY cnpj ASC
	`, tenantID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch companies", err)
	}
	defer rows.Close()

	var companies []*model.Company
	for rows.Next() {
		cmp := &model.Company{}
		err = rows.Scan(
			&cmp.ID, &cmp.CompanyID, &cmp.TenantID, &cmp.Name, &cmp.CNPJ,
			&cmp.RemoteID, &cmp.ContentHash, &cmp.WhatsAppContactID,
			&cmp.WhatsAppPhone, &cmp.ContactSyncedAt,
			&cmp.Active, &cmp.CreatedAt, &cmp.UpdatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan company", err)
		}
		companies = append(companies, cmp)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating companies", err)
	}

	return companies, nil
}

// LinkCompanyContact stores the WhatsApp contact ID, the contact's phone,
// and the synced timestamp on a company after an auto-link or an approved
// review.
func (d Datasource) LinkCompanyContact(ctx context.Context, companyID, contactID, phone string) error {
	ctx, span := otel.Tracer("Company").Start(ctx, "Linking contact to company")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.companies
		SET whatsapp_contact_id = $2, whatsapp_phone = NULLIF($3, ''),
			contact_synced_at = $4, updated_at = $4
		WHERE company_id = $1
	`, companyID, contactID, phone, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to link contact", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to link contact", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Company not found", companyID)
	}

	return nil
}

func (d Datasource) scanCompany(row *sql.Row) (*model.Company, error) {
	cmp := &model.Company{}
	err := row.Scan(
		&cmp.ID, &cmp.CompanyID, &cmp.TenantID, &cmp.Name, &cmp.CNPJ,
		&cmp.RemoteID, &cmp.ContentHash, &cmp.WhatsAppContactID,
		&cmp.WhatsAppPhone, &cmp.ContactSyncedAt,
		&cmp.Active, &cmp.CreatedAt, &cmp.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Company not found", err)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch company", err)
	}
	return cmp, nil
}
