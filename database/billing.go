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

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"

	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

// GetActiveContracts returns the active contracts for a company key. More
// than one row is a data problem the caller reports as warning_multiple.
func (d Datasource) GetActiveContracts(ctx context.Context, tenantID, companyKey string) ([]*model.Contract, error) {
	ctx, span := otel.Tracer("Billing").Start(ctx, "Fetching active contracts")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, contract_id, tenant_id, company_key, company_name,
			remote_customer_id, monthly_value, active, created_at, updated_at
		FROM contaops.contracts
		WHERE tenant_id = $1 AND company_key = $2 AND active = TRUE
		ORDER BY created_at ASC
	`, tenantID, companyKey)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch contracts", err)
	}
	defer rows.Close()

	var contracts []*model.Contract
	for rows.Next() {
		c := &model.Contract{}
		err = rows.Scan(
			&c.ID, &c.ContractID, &c.TenantID, &c.CompanyKey, &c.CompanyName,
			&c.RemoteCustomerID, &c.MonthlyValue, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan contract", err)
		}
		contracts = append(contracts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating contracts", err)
	}

	return contracts, nil
}

// UpsertInvoiceMapping writes the sync decision for one (company,
// competencia). Reruns land on the same row via the unique key and replace
// the previous resolution.
func (d Datasource) UpsertInvoiceMapping(ctx context.Context, mapping *model.InvoiceMapping) error {
	ctx, span := otel.Tracer("Billing").Start(ctx, "Upserting invoice mapping")
	defer span.End()

	if mapping.MappingID == "" {
		mapping.MappingID = model.GenerateUUIDWithSuffix("map")
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.invoice_mappings(
			mapping_id, tenant_id, company_key, competencia,
			remote_contract_id, remote_invoice_id, due_date,
			resolution, value_set, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, company_key, competencia)
		DO UPDATE SET remote_contract_id = EXCLUDED.remote_contract_id,
			remote_invoice_id = EXCLUDED.remote_invoice_id,
			due_date = EXCLUDED.due_date,
			resolution = EXCLUDED.resolution,
			value_set = EXCLUDED.value_set,
			message = EXCLUDED.message,
			updated_at = $11
	`, mapping.MappingID, mapping.TenantID, mapping.CompanyKey,
		mapping.Competencia, mapping.RemoteContractID, mapping.RemoteInvoiceID,
		mapping.DueDate, mapping.Resolution, mapping.ValueSet, mapping.Message,
		time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert invoice mapping", err)
	}

	return nil
}

// GetInvoiceMapping retrieves one mapping row.
func (d Datasource) GetInvoiceMapping(ctx context.Context, tenantID, companyKey, competencia string) (*model.InvoiceMapping, error) {
	ctx, span := otel.Tracer("Billing").Start(ctx, "Fetching invoice mapping")
	defer span.End()

	m := &model.InvoiceMapping{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, mapping_id, tenant_id, company_key, competencia,
			remote_contract_id, remote_invoice_id, due_date, resolution,
			value_set, message, paid, paid_at, paid_value,
			created_at, updated_at
		FROM contaops.invoice_mappings
		WHERE tenant_id = $1 AND company_key = $2 AND competencia = $3
	`, tenantID, companyKey, competencia).Scan(
		&m.ID, &m.MappingID, &m.TenantID, &m.CompanyKey, &m.Competencia,
		&m.RemoteContractID, &m.RemoteInvoiceID, &m.DueDate, &m.Resolution,
		&m.ValueSet, &m.Message, &m.Paid, &m.PaidAt,
		&m.PaidValue, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Invoice mapping not found", competencia)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch invoice mapping", err)
	}

	return m, nil
}

// GetUnpaidMappings returns unpaid mappings inside the given competencias
// that actually reached an invoice (resolution not in not_found, failed).
func (d Datasource) GetUnpaidMappings(ctx context.Context, tenantID string, competencias []string) ([]*model.InvoiceMapping, error) {
	ctx, span := otel.Tracer("Billing").Start(ctx, "Fetching unpaid invoice mappings")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, mapping_id, tenant_id, company_key, competencia,
			remote_contract_id, remote_invoice_id, due_date, resolution,
			value_set, message, paid, paid_at, paid_value,
			created_at, updated_at
		FROM contaops.invoice_mappings
		WHERE tenant_id = $1
			AND competencia = ANY($2)
			AND paid = FALSE
			AND resolution NOT IN ('not_found', 'failed')
			AND remote_invoice_id IS NOT NULL
		ORDER BY competencia ASC, company_key ASC
	`, tenantID, pq.Array(competencias))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch unpaid mappings", err)
	}
	defer rows.Close()

	var mappings []*model.InvoiceMapping
	for rows.Next() {
		m := &model.InvoiceMapping{}
		err = rows.Scan(
			&m.ID, &m.MappingID, &m.TenantID, &m.CompanyKey, &m.Competencia,
			&m.RemoteContractID, &m.RemoteInvoiceID, &m.DueDate, &m.Resolution,
			&m.ValueSet, &m.Message, &m.Paid, &m.PaidAt,
			&m.PaidValue, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan invoice mapping", err)
		}
		mappings = append(mappings, m)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating invoice mappings", err)
	}

	return mappings, nil
}

// MarkMappingPaid stores the settlement observed upstream.
func (d Datasource) MarkMappingPaid(ctx context.Context, mappingID string, paidAt time.Time, paidValue decimal.Decimal) error {
	ctx, span := otel.Tracer("Billing").Start(ctx, "Marking invoice mapping paid")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.invoice_mappings
		SET paid = TRUE, paid_at = $2, paid_value = $3, updated_at = $4
		WHERE mapping_id = $1
	`, mappingID, paidAt, paidValue, time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark mapping paid", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark mapping paid", err)
	}
	if rows == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Invoice mapping not found", mappingID)
	}

	return nil
}

// SetFeePaymentDate propagates the payment date to the fee-tracking row for
// that month. Missing rows are not an error: propagation is best effort.
func (d Datasource) SetFeePaymentDate(ctx context.Context, tenantID, companyKey, competencia string, paidAt time.Time, paidValue decimal.Decimal) error {
	ctx, span := otel.Tracer("Billing").Start(ctx, "Setting fee payment date")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.fee_entries
		SET payment_date = $4, paid_value = $5
		WHERE tenant_id = $1 AND company_key = $2 AND competencia = $3
	`, tenantID, companyKey, competencia, paidAt, paidValue)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to set fee payment date", err)
	}

	return nil
}
