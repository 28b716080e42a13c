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
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/contaops/contaops/internal/request"
	"github.com/contaops/contaops/internal/taxid"
	"github.com/contaops/contaops/model"
	"github.com/contaops/contaops/providers"
)

// InvoiceSyncItem is one company's monthly value to push.
type InvoiceSyncItem struct {
	PortalCompanyID string          `json:"portal_company_id"`
	ValorTotalMes   decimal.Decimal `json:"valor_total_mes"`
}

// InvoiceItemResult reports how one item resolved.
type InvoiceItemResult struct {
	PortalCompanyID  string     `json:"portal_company_id"`
	CompanyKey       string     `json:"company_key"`
	Resolution       string     `json:"resolution"`
	RemoteContractID string     `json:"remote_contract_id,omitempty"`
	RemoteInvoiceID  string     `json:"remote_invoice_id,omitempty"`
	DueDate          *time.Time `json:"due_date,omitempty"`
	Message          string     `json:"message,omitempty"`
}

// InvoiceSyncSummary aggregates item resolutions.
type InvoiceSyncSummary struct {
	Total           int `json:"total"`
	Synced          int `json:"synced"`
	Unchanged       int `json:"unchanged"`
	NotFound        int `json:"not_found"`
	WarningMultiple int `json:"warning_multiple"`
	Failed          int `json:"failed"`
}

// InvoiceSyncResponse is the full response for one invoice sync call.
type InvoiceSyncResponse struct {
	Summary InvoiceSyncSummary  `json:"summary"`
	Results []InvoiceItemResult `json:"results"`
}

// SyncInvoices pushes the computed monthly values for one competencia onto
// the matching open invoices in the billing system. Items are processed
// sequentially; one item's failure never stops the batch.
func (c *Contaops) SyncInvoices(ctx context.Context, tenantID, competencia string, items []InvoiceSyncItem) (*InvoiceSyncResponse, error) {
	client, err := c.billingClient(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	response := &InvoiceSyncResponse{Results: make([]InvoiceItemResult, 0, len(items))}
	response.Summary.Total = len(items)

	for _, item := range items {
		result := c.syncInvoiceItem(ctx, client, tenantID, competencia, item)
		response.Results = append(response.Results, result)

		switch result.Resolution {
		case model.ResolutionSynced:
			response.Summary.Synced++
		case model.ResolutionUnchanged:
			response.Summary.Unchanged++
		case model.ResolutionNotFound:
			response.Summary.NotFound++
		case model.ResolutionWarningMultiple:
			response.Summary.WarningMultiple++
		default:
			response.Summary.Failed++
		}
	}

	logrus.Infof("invoice sync %s %s: %d items, %d synced, %d unchanged, %d not found, %d multiple, %d failed",
		tenantID, competencia, response.Summary.Total, response.Summary.Synced,
		response.Summary.Unchanged, response.Summary.NotFound,
		response.Summary.WarningMultiple, response.Summary.Failed)
	return response, nil
}

// syncInvoiceItem resolves and applies one item. The mapping row is written
// whatever the outcome, so reruns land on the same row and the back office
// can see why an item did not sync.
func (c *Contaops) syncInvoiceItem(ctx context.Context, client *providers.BillingClient, tenantID, competencia string, item InvoiceSyncItem) InvoiceItemResult {
	result := InvoiceItemResult{PortalCompanyID: item.PortalCompanyID}

	company, err := c.datasource.GetCompanyByRemoteID(ctx, tenantID, item.PortalCompanyID)
	if isNotFound(err) {
		result.CompanyKey = "portal:" + item.PortalCompanyID
		result.Resolution = model.ResolutionNotFound
		result.Message = "company not found"
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}
	if err != nil {
		result.CompanyKey = "portal:" + item.PortalCompanyID
		result.Resolution = model.ResolutionFailed
		result.Message = err.Error()
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}

	companyKey := taxid.NormalizeKey(company.CNPJ)
	result.CompanyKey = companyKey

	contracts, err := c.datasource.GetActiveContracts(ctx, tenantID, companyKey)
	if err != nil {
		result.Resolution = model.ResolutionFailed
		result.Message = err.Error()
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}
	if len(contracts) == 0 {
		result.Resolution = model.ResolutionFailed
		result.Message = "contract not found"
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}
	if len(contracts) > 1 {
		result.Resolution = model.ResolutionWarningMultiple
		result.Message = "multiple active contracts"
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}
	contract := contracts[0]
	result.RemoteContractID = contract.RemoteCustomerID

	invoices, listResult, err := client.FindOpenInvoices(ctx, contract.RemoteCustomerID, competencia)
	c.recordBillingAction(ctx, tenantID, "find_open_invoices", http.MethodGet,
		fmt.Sprintf("%s/invoices?customer_id=%s&competencia=%s&status=open", client.BaseURL, contract.RemoteCustomerID, competencia),
		"", listResult)
	if err != nil {
		result.Resolution = model.ResolutionFailed
		result.Message = err.Error()
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}
	if len(invoices) == 0 {
		result.Resolution = model.ResolutionNotFound
		result.Message = "no open invoice for competencia"
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}

	invoice, ambiguous := chooseInvoice(invoices)
	result.RemoteInvoiceID = invoice.ID
	dueDate := invoice.DueDate
	result.DueDate = &dueDate

	if c.lastSyncedValueMatches(ctx, tenantID, companyKey, competencia, item.ValorTotalMes) {
		result.Resolution = model.ResolutionUnchanged
		c.storeMapping(ctx, tenantID, competencia, result, model.InvoiceValue(item.ValorTotalMes))
		return result
	}

	body := fmt.Sprintf(`{"value": %s}`, item.ValorTotalMes.String())
	setResult, err := client.SetInvoiceValue(ctx, invoice.ID, item.ValorTotalMes)
	c.recordBillingAction(ctx, tenantID, "set_invoice_value", http.MethodPut,
		fmt.Sprintf("%s/invoices/%s/value", client.BaseURL, invoice.ID), body, setResult)
	if err != nil {
		// Value stays unset on the mapping so a rerun retries the mutation.
		result.Resolution = model.ResolutionFailed
		result.Message = err.Error()
		c.storeMapping(ctx, tenantID, competencia, result, decimal.NullDecimal{})
		return result
	}

	if ambiguous {
		result.Resolution = model.ResolutionWarningMultiple
		result.Message = fmt.Sprintf("multiple open invoices, selected %s", invoice.ID)
	} else {
		result.Resolution = model.ResolutionSynced
	}
	c.storeMapping(ctx, tenantID, competencia, result, model.InvoiceValue(item.ValorTotalMes))
	return result
}

// lastSyncedValueMatches reports whether the local mapping already carries
// the requested value from a previous push. The comparison never consults
// the remote invoice: the billing side may drift, and the decision is about
// what this engine last wrote.
func (c *Contaops) lastSyncedValueMatches(ctx context.Context, tenantID, companyKey, competencia string, target decimal.Decimal) bool {
	cached, err := c.datasource.GetInvoiceMapping(ctx, tenantID, companyKey, competencia)
	if isNotFound(err) {
		return false
	}
	if err != nil {
		logrus.Warnf("invoice mapping read failed (%s %s): %v", companyKey, competencia, err)
		return false
	}
	return cached.ValueSet.Valid && cached.ValueSet.Decimal.Equal(target)
}

// chooseInvoice picks the invoice to mutate when the competencia has more
// than one open invoice. A single invoice of the regular billing type wins
// outright; otherwise the due date closest to the 15th does, earlier date
// on equal distance. The bool reports whether a tie-break was needed.
func chooseInvoice(invoices []providers.Invoice) (providers.Invoice, bool) {
	if len(invoices) == 1 {
		return invoices[0], false
	}

	var billingOnly []providers.Invoice
	for _, inv := range invoices {
		if strings.EqualFold(inv.Type, providers.InvoiceTypeBilling) {
			billingOnly = append(billingOnly, inv)
		}
	}
	if len(billingOnly) == 1 {
		return billingOnly[0], true
	}

	candidates := invoices
	if len(billingOnly) > 1 {
		candidates = billingOnly
	}

	best := candidates[0]
	for _, inv := range candidates[1:] {
		if closerToMidMonth(inv.DueDate, best.DueDate) {
			best = inv
		}
	}
	return best, true
}

func closerToMidMonth(a, b time.Time) bool {
	da := a.Day() - 15
	if da < 0 {
		da = -da
	}
	db := b.Day() - 15
	if db < 0 {
		db = -db
	}
	if da != db {
		return da < db
	}
	return a.Before(b)
}

// storeMapping persists the item decision. Failures are logged only; the
// caller already has its resolution.
func (c *Contaops) storeMapping(ctx context.Context, tenantID, competencia string, result InvoiceItemResult, value decimal.NullDecimal) {
	mapping := &model.InvoiceMapping{
		TenantID:    tenantID,
		CompanyKey:  result.CompanyKey,
		Competencia: competencia,
		DueDate:     result.DueDate,
		Resolution:  result.Resolution,
		ValueSet:    value,
	}
	if result.RemoteContractID != "" {
		contractID := result.RemoteContractID
		mapping.RemoteContractID = &contractID
	}
	if result.RemoteInvoiceID != "" {
		remoteID := result.RemoteInvoiceID
		mapping.RemoteInvoiceID = &remoteID
	}
	if result.Message != "" {
		message := result.Message
		mapping.Message = &message
	}
	if err := c.datasource.UpsertInvoiceMapping(ctx, mapping); err != nil {
		logrus.Errorf("invoice mapping write failed (%s %s): %v", result.CompanyKey, competencia, err)
	}
}

// recordBillingAction writes one outbound billing call to the action log
// with the authorization material redacted.
func (c *Contaops) recordBillingAction(ctx context.Context, tenantID, action, method, url, requestBody string, result *request.Result) {
	entry := &model.SyncActionLog{
		TenantID:       tenantID,
		Action:         action,
		Method:         method,
		URL:            url,
		RequestExcerpt: request.RedactAuthorization(requestBody),
	}
	if result != nil {
		entry.StatusCode = result.StatusCode
		entry.DurationMs = result.Duration.Milliseconds()
		entry.ResponseExcerpt = request.RedactAuthorization(result.BodyExcerpt(500))
	}
	if err := c.datasource.RecordSyncAction(ctx, entry); err != nil {
		logrus.Warnf("sync action log failed (%s): %v", action, err)
	}
}
