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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/contaops/contaops/model"
)

// paymentLookbackMonths is how many competencias the payment pass walks,
// counting the current one.
const paymentLookbackMonths = 4

// PaymentSyncResponse summarizes one payment reconciliation pass.
type PaymentSyncResponse struct {
	Processed int `json:"processed"`
	Paid      int `json:"paid"`
	Errors    int `json:"errors"`
}

// SyncPayments re-checks the unpaid invoices of the recent competencias
// against the billing system and records the ones that settled. Per-item
// errors are counted; the pass always completes.
func (c *Contaops) SyncPayments(ctx context.Context, tenantID string) (*PaymentSyncResponse, error) {
	client, err := c.billingClient(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	competencias := recentCompetencias(time.Now(), paymentLookbackMonths)
	mappings, err := c.datasource.GetUnpaidMappings(ctx, tenantID, competencias)
	if err != nil {
		return nil, err
	}

	response := &PaymentSyncResponse{}
	for _, mapping := range mappings {
		response.Processed++

		invoice, getResult, err := client.GetInvoice(ctx, *mapping.RemoteInvoiceID)
		c.recordBillingAction(ctx, tenantID, "get_invoice", http.MethodGet,
			fmt.Sprintf("%s/invoices/%s", client.BaseURL, *mapping.RemoteInvoiceID), "", getResult)
		if err != nil {
			response.Errors++
			logrus.Warnf("payment check failed for mapping %s: %v", mapping.MappingID, err)
			continue
		}

		if !invoice.Settled() {
			continue
		}

		paidAt := time.Now()
		if invoice.PaymentDate != nil {
			paidAt = *invoice.PaymentDate
		}
		paidValue := invoice.Value
		if invoice.PaidValue.Valid {
			paidValue = invoice.PaidValue.Decimal
		}

		if err := c.datasource.MarkMappingPaid(ctx, mapping.MappingID, paidAt, paidValue); err != nil {
			response.Errors++
			logrus.Errorf("marking mapping %s paid failed: %v", mapping.MappingID, err)
			continue
		}
		response.Paid++

		// Fee propagation is best effort; a missing fee row is fine.
		if err := c.datasource.SetFeePaymentDate(ctx, tenantID, mapping.CompanyKey, mapping.Competencia, paidAt, paidValue); err != nil {
			logrus.Warnf("fee payment date for %s %s not propagated: %v",
				mapping.CompanyKey, mapping.Competencia, err)
		}
	}

	logrus.Infof("payment sync %s: %d processed, %d paid, %d errors",
		tenantID, response.Processed, response.Paid, response.Errors)
	return response, nil
}

// recentCompetencias returns the "YYYY-MM" labels of the last n months,
// current month first.
func recentCompetencias(now time.Time, n int) []string {
	labels := make([]string, 0, n)
	year, month, _ := now.Date()
	current := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		labels = append(labels, current.Format("2006-01"))
		current = current.AddDate(0, -1, 0)
	}
	return labels
}

// mappingEligible mirrors the datasource filter, used by tests to document
// which rows the pass touches.
func mappingEligible(m *model.InvoiceMapping) bool {
	if m.Paid || m.RemoteInvoiceID == nil {
		return false
	}
	return m.Resolution != model.ResolutionNotFound && m.Resolution != model.ResolutionFailed
}
