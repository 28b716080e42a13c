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
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/contaops/contaops/internal/request"
)

// BillingClient reads and mutates invoices in the billing system. Every
// method also returns the raw exchange so callers can write action logs.
type BillingClient struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewBillingClient(baseURL, token string) *BillingClient {
	return &BillingClient{BaseURL: baseURL, Token: token, client: newHTTPClient()}
}

// InvoiceTypeBilling marks the regular monthly billing invoice, as opposed
// to one-off charges sharing the same customer.
const InvoiceTypeBilling = "billing"

// Invoice is the engine's view of a billing-system invoice.
type Invoice struct {
	ID          string
	Type        string
	Status      string
	DueDate     time.Time
	Value       decimal.Decimal
	PaymentDate *time.Time
	PaidValue   decimal.NullDecimal
}

// Settled reports whether the invoice was paid upstream.
func (i *Invoice) Settled() bool {
	switch strings.ToLower(i.Status) {
	case "paid", "settled", "received", "received_in_cash":
		return true
	}
	return false
}

type wireInvoice struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	Kind        string              `json:"kind"`
	Status      string              `json:"status"`
	DueDate     string              `json:"due_date"`
	Value       decimal.NullDecimal `json:"value"`
	Amount      decimal.NullDecimal `json:"amount"`
	PaymentDate string              `json:"payment_date"`
	PaidValue   decimal.NullDecimal `json:"paid_value"`
}

func (w *wireInvoice) toInvoice() Invoice {
	inv := Invoice{ID: w.ID, Type: w.Type, Status: w.Status, PaidValue: w.PaidValue}
	if inv.Type == "" {
		inv.Type = w.Kind
	}
	if w.Value.Valid {
		inv.Value = w.Value.Decimal
	} else if w.Amount.Valid {
		inv.Value = w.Amount.Decimal
	}
	if t, ok := parseFlexibleDate(w.DueDate); ok {
		inv.DueDate = t
	}
	if t, ok := parseFlexibleDate(w.PaymentDate); ok {
		inv.PaymentDate = &t
	}
	return inv
}

// parseFlexibleDate accepts the two date shapes the billing API emits.
func parseFlexibleDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FindOpenInvoices lists the open invoices of a customer within a
// competencia ("YYYY-MM").
func (b *BillingClient) FindOpenInvoices(ctx context.Context, customerID, competencia string) ([]Invoice, *request.Result, error) {
	url := fmt.Sprintf("%s/invoices?customer_id=%s&competencia=%s&status=open", b.BaseURL, customerID, competencia)

	result, err := b.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, result, errors.Wrap(err, "billing list invoices")
	}
	if !result.OK() {
		return nil, result, errors.Errorf("billing list invoices: status %d: %s", result.StatusCode, result.BodyExcerpt(200))
	}

	var decoded struct {
		Data  []wireInvoice `json:"data"`
		Items []wireInvoice `json:"items"`
	}
	if err := result.Decode(&decoded); err != nil {
		return nil, result, errors.Wrap(err, "billing list invoices decode")
	}

	wires := decoded.Data
	if len(wires) == 0 {
		wires = decoded.Items
	}

	invoices := make([]Invoice, 0, len(wires))
	for i := range wires {
		invoices = append(invoices, wires[i].toInvoice())
	}
	return invoices, result, nil
}

// GetInvoice re-fetches one invoice, used by the payment pass.
func (b *BillingClient) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, *request.Result, error) {
	url := fmt.Sprintf("%s/invoices/%s", b.BaseURL, invoiceID)

	result, err := b.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, result, errors.Wrap(err, "billing get invoice")
	}
	if !result.OK() {
		return nil, result, errors.Errorf("billing get invoice: status %d: %s", result.StatusCode, result.BodyExcerpt(200))
	}

	var w wireInvoice
	if err := result.Decode(&w); err != nil {
		return nil, result, errors.Wrap(err, "billing get invoice decode")
	}
	inv := w.toInvoice()
	return &inv, result, nil
}

// SetInvoiceValue writes the monthly value onto an invoice.
func (b *BillingClient) SetInvoiceValue(ctx context.Context, invoiceID string, value decimal.Decimal) (*request.Result, error) {
	url := fmt.Sprintf("%s/invoices/%s/value", b.BaseURL, invoiceID)
	body := map[string]interface{}{"value": value}

	result, err := b.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return result, errors.Wrap(err, "billing set invoice value")
	}
	if !result.OK() {
		return result, errors.Errorf("billing set invoice value: status %d: %s", result.StatusCode, result.BodyExcerpt(200))
	}
	return result, nil
}

func (b *BillingClient) do(ctx context.Context, method, url string, body interface{}) (*request.Result, error) {
	return request.DoWithRetry(ctx, b.client, func() (*http.Request, error) {
		var req *http.Request
		var err error
		if body != nil {
			payload, errMarshal := json.Marshal(body)
			if errMarshal != nil {
				return nil, errMarshal
			}
			req, err = http.NewRequestWithContext(ctx, method, url, strings.NewReader(string(payload)))
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")
		} else {
			req, err = http.NewRequestWithContext(ctx, method, url, nil)
			if err != nil {
				return nil, err
			}
		}
		req.Header.Set("Authorization", "Bearer "+b.Token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}
