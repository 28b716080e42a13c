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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

func companyColumns() []string {
	return []string{
		"id", "company_id", "tenant_id", "name", "cnpj", "remote_id",
		"content_hash", "whatsapp_contact_id", "whatsapp_phone", "contact_synced_at",
		"active", "created_at", "updated_at",
	}
}

func TestCreateCompany(t *testing.T) {
	d, mock := newMockDatasource(t)

	mock.ExpectExec("INSERT INTO contaops.companies").
		WithArgs(sqlmock.AnyArg(), "tenant_1", "Acme Transportes", "12.345.678/0001-95",
			"r-1", "hash-1", true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := d.CreateCompany(context.Background(), &model.Company{
		TenantID:    "tenant_1",
		Name:        "Acme Transportes",
		CNPJ:        "12.345.678/0001-95",
		RemoteID:    "r-1",
		ContentHash: "hash-1",
		Active:      true,
	})
	require.NoError(t, err)

	assert.Contains(t, created.CompanyID, "cmp_")
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompanyByCNPJNotFound(t *testing.T) {
	d, mock := newMockDatasource(t)

	mock.ExpectQuery("SELECT .* FROM contaops.companies").
		WithArgs("tenant_1", "12.345.678/0001-95").
		WillReturnRows(sqlmock.NewRows(companyColumns()))

	_, err := d.GetCompanyByCNPJ(context.Background(), "tenant_1", "12.345.678/0001-95")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompanyByTaxKey(t *testing.T) {
	d, mock := newMockDatasource(t)

	rows := sqlmock.NewRows(companyColumns()).
		AddRow(1, "cmp_1", "tenant_1", "Acme Transportes", "12345678000195",
			"r-1", "hash-1", nil, nil, nil, true, time.Now(), nil)

	mock.ExpectQuery("SELECT .* FROM contaops.companies").
		WithArgs("tenant_1", "12345678000195").
		WillReturnRows(rows)

	cmp, err := d.GetCompanyByTaxKey(context.Background(), "tenant_1", "12345678000195")
	require.NoError(t, err)

	assert.Equal(t, "cmp_1", cmp.CompanyID)
	assert.Nil(t, cmp.WhatsAppContactID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCompanyFromSyncMissingCompany(t *testing.T) {
	d, mock := newMockDatasource(t)

	mock.ExpectExec("UPDATE contaops.companies").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := d.UpdateCompanyFromSync(context.Background(), "cmp_missing", "Name", "12.345.678/0001-95", "hash")
	require.Error(t, err)

	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompaniesForTenant(t *testing.T) {
	d, mock := newMockDatasource(t)

	rows := sqlmock.NewRows(companyColumns()).
		AddRow(1, "cmp_1", "tenant_1", "Acme Transportes", "12.345.678/0001-95",
			"r-1", "hash-1", "c1", "+5511988880001", time.Now(), true, time.Now(), nil).
		AddRow(2, "cmp_2", "tenant_1", "Beta Contabil", "98.765.432/0001-10",
			"r-2", "hash-2", nil, nil, nil, true, time.Now(), nil)

	mock.ExpectQuery("SELECT .* FROM contaops.companies").
		WithArgs("tenant_1").
		WillReturnRows(rows)

	companies, err := d.GetCompaniesForTenant(context.Background(), "tenant_1")
	require.NoError(t, err)
	require.Len(t, companies, 2)

	assert.Equal(t, "c1", *companies[0].WhatsAppContactID)
	assert.Equal(t, "+5511988880001", *companies[0].WhatsAppPhone)
	assert.Nil(t, companies[1].WhatsAppContactID)
	assert.Nil(t, companies[1].WhatsAppPhone)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkCompanyContact(t *testing.T) {
	d, mock := newMockDatasource(t)

	mock.ExpectExec("UPDATE contaops.companies").
		WithArgs("cmp_1", "c1", "+5511988880001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := d.LinkCompanyContact(context.Background(), "cmp_1", "c1", "+5511988880001")
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
