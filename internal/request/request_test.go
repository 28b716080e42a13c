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

package request_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contaops/contaops/internal/request"
	"github.com/stretchr/testify/assert"
)

func TestToJsonReq_Success(t *testing.T) {
	payload := map[string]string{
		"key": "value",
	}

	reqBuffer, err := request.ToJsonReq(payload)
	assert.NoError(t, err)

	expectedJSON, _ := json.Marshal(payload)
	assert.Equal(t, expectedJSON, reqBuffer.Bytes())
}

func TestToJsonReq_Fail(t *testing.T) {
	payload := map[string]interface{}{
		"key": make(chan int), // invalid data type for JSON encoding
	}

	reqBuffer, err := request.ToJsonReq(payload)
	assert.Error(t, err)
	assert.Nil(t, reqBuffer)
}

func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"success"}`))
		assert.NoError(t, err)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	assert.NoError(t, err)

	var response map[string]string
	resp, err := request.Call(req, &response)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", response["status"])
}

func TestDoWithRetry_SucceedsFirstAttempt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	result, err := request.DoWithRetry(context.Background(), server.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, server.URL, nil)
	})
	assert.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, `{"data":[]}`, string(result.Body))
}

func TestDoWithRetry_RetriesRateLimit(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	result, err := request.DoWithRetry(context.Background(), server.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, server.URL, nil)
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.True(t, result.OK())
}

func TestDoWithRetry_NonRetryableStatusReturnsResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer server.Close()

	result, err := request.DoWithRetry(context.Background(), server.Client(), func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, server.URL, nil)
	})
	assert.NoError(t, err)
	assert.False(t, result.OK())
	assert.Equal(t, http.StatusForbidden, result.StatusCode)
	assert.Contains(t, result.BodyExcerpt(100), "invalid token")
}

func TestRedactAuthorization(t *testing.T) {
	raw := `{"url":"https://api.example.com","authorization":"Bearer sk-live-abc123"}`
	redacted := request.RedactAuthorization(raw)
	assert.NotContains(t, redacted, "sk-live-abc123")
	assert.Contains(t, redacted, "[REDACTED]")
}

func TestSanitizeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret-token")
	h.Set("Content-Type", "application/json")

	clean := request.SanitizeHeaders(h)
	assert.Equal(t, "[REDACTED]", clean.Get("Authorization"))
	assert.Equal(t, "application/json", clean.Get("Content-Type"))
	assert.Equal(t, "Bearer secret-token", h.Get("Authorization"))
}
