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

// Package providers holds narrow clients for the three upstream systems:
// the company registry, the billing system, and the WhatsApp CRM. Upstream
// wire schemas are not contractual, so every decoder reads only the handful
// of fields the engine needs and tolerates alternate field names.
package providers

import (
	"net/http"
	"time"
)

const clientTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: clientTimeout}
}

// getString digs a string field out of a loosely typed record. Numbers are
// not coerced: an upstream that sends a numeric document is a data bug the
// caller should see as a missing key.
func getString(record map[string]interface{}, key string) (string, bool) {
	v, ok := record[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// firstString returns the first present non-empty string among keys, in
// order. The order is the precedence contract.
func firstString(record map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := getString(record, key); ok {
			return s, true
		}
	}
	return "", false
}
