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
	"strings"

	"github.com/pkg/errors"

	"github.com/contaops/contaops/internal/request"
)

// ContactsClient pages through the WhatsApp CRM contact list.
type ContactsClient struct {
	BaseURL string
	Token   string
	client  *http.Client
}

func NewContactsClient(baseURL, token string) *ContactsClient {
	return &ContactsClient{BaseURL: baseURL, Token: token, client: newHTTPClient()}
}

// Contact is one CRM contact. Name is the raw display name; callers derive
// the company-name candidate from it. Phone travels with the contact so an
// auto-link can write it onto the matched company.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// ContactPage is one page of contacts.
type ContactPage struct {
	Contacts []Contact
	HasMore  bool
}

// CompanyNameCandidate strips the personal part of a CRM display name. The
// office convention is "Company Name - Person", so everything after the
// first " - " is dropped.
func CompanyNameCandidate(displayName string) string {
	if idx := strings.Index(displayName, " - "); idx >= 0 {
		return strings.TrimSpace(displayName[:idx])
	}
	return strings.TrimSpace(displayName)
}

// FetchContactsPage retrieves one page of contacts.
func (c *ContactsClient) FetchContactsPage(ctx context.Context, page, pageSize int) (*ContactPage, error) {
	url := fmt.Sprintf("%s/contacts?page=%d&per_page=%d", c.BaseURL, page, pageSize)

	result, err := request.DoWithRetry(ctx, c.client, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "contacts page %d", page)
	}
	if !result.OK() {
		return nil, errors.Errorf("contacts page %d: status %d: %s", page, result.StatusCode, result.BodyExcerpt(200))
	}

	var decoded struct {
		Data  []Contact `json:"data"`
		Items []Contact `json:"items"`
		Meta  struct {
			HasMore *bool `json:"has_more"`
		} `json:"meta"`
	}
	if err := result.Decode(&decoded); err != nil {
		return nil, errors.Wrapf(err, "contacts page %d decode", page)
	}

	contacts := decoded.Data
	if len(contacts) == 0 {
		contacts = decoded.Items
	}

	hasMore := len(contacts) == pageSize
	if decoded.Meta.HasMore != nil {
		hasMore = *decoded.Meta.HasMore
	}

	return &ContactPage{Contacts: contacts, HasMore: hasMore}, nil
}
