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
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/contaops/contaops/internal/request"
)

// RegistryClient pages through the company registry.
type RegistryClient struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewRegistryClient(baseURL, token string) *RegistryClient {
	return &RegistryClient{BaseURL: baseURL, Token: token, client: newHTTPClient()}
}

// CompanyPage is one page of registry records. Records stay loosely typed
// because the engine hashes the full payload and extracts keys itself.
// TotalPages is zero when the registry does not report it.
type CompanyPage struct {
	Records    []map[string]interface{}
	HasMore    bool
	TotalPages int
}

type registryPageResponse struct {
	Data  []map[string]interface{} `json:"data"`
	Items []map[string]interface{} `json:"items"`
	Meta  struct {
		HasMore    *bool `json:"has_more"`
		TotalPages *int  `json:"total_pages"`
		Page       *int  `json:"page"`
	} `json:"meta"`
}

// FetchCompaniesPage retrieves one page. Rate limiting and transient network
// failures are retried inside request.DoWithRetry; any other non-2xx status
// is returned as an error so the engine stops paging.
func (r *RegistryClient) FetchCompaniesPage(ctx context.Context, page, pageSize int) (*CompanyPage, error) {
	url := fmt.Sprintf("%s/companies?page=%d&per_page=%d", r.BaseURL, page, pageSize)

	result, err := request.DoWithRetry(ctx, r.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+r.Token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "registry page %d", page)
	}
	if !result.OK() {
		return nil, errors.Errorf("registry page %d: status %d: %s", page, result.StatusCode, result.BodyExcerpt(200))
	}

	var decoded registryPageResponse
	if err := result.Decode(&decoded); err != nil {
		return nil, errors.Wrapf(err, "registry page %d decode", page)
	}

	records := decoded.Data
	if len(records) == 0 {
		records = decoded.Items
	}

	hasMore := len(records) == pageSize
	if decoded.Meta.HasMore != nil {
		hasMore = *decoded.Meta.HasMore
	} else if decoded.Meta.TotalPages != nil && decoded.Meta.Page != nil {
		hasMore = *decoded.Meta.Page < *decoded.Meta.TotalPages
	}

	totalPages := 0
	if decoded.Meta.TotalPages != nil {
		totalPages = *decoded.Meta.TotalPages
	}

	return &CompanyPage{Records: records, HasMore: hasMore, TotalPages: totalPages}, nil
}

// ExtractTaxID pulls the identity key from a registry record. Field
// precedence: cnpj, cpf_cnpj, taxId, document.
func ExtractTaxID(record map[string]interface{}) (string, bool) {
	return firstString(record, "cnpj", "cpf_cnpj", "taxId", "document")
}

// ExtractName pulls the company name, falling back through the aliases the
// registry has used over time.
func ExtractName(record map[string]interface{}) string {
	name, _ := firstString(record, "name", "razao_social", "company_name")
	return name
}

// ExtractRemoteID pulls the registry's own record ID.
func ExtractRemoteID(record map[string]interface{}) string {
	if id, ok := firstString(record, "id", "uuid"); ok {
		return id
	}
	if v, ok := record["id"].(float64); ok {
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
