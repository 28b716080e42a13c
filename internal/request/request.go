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

// Package request is the single resilient HTTP wrapper shared by every
// outbound call site. Retry behavior lives here, not at the call sites:
// HTTP 429 retries with a linearly increasing delay, transient network
// failures retry with a shorter linear delay, and any other non-2xx response
// is returned to the caller without retrying.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	rateLimitBaseDelay   = 2 * time.Second
	rateLimitMaxAttempts = 4
	networkBaseDelay     = 500 * time.Millisecond
	networkMaxAttempts   = 3
)

// Result is the outcome of one completed HTTP exchange. A Result is returned
// for every response the remote produced, including non-2xx ones; the caller
// decides what a given status means for its record or page.
type Result struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the exchange ended in a 2xx status.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// BodyExcerpt returns at most n bytes of the response body, for error
// messages and audit rows.
func (r *Result) BodyExcerpt(n int) string {
	if len(r.Body) <= n {
		return string(r.Body)
	}
	return string(r.Body[:n])
}

// Decode unmarshals the response body into out.
func (r *Result) Decode(out interface{}) error {
	return json.Unmarshal(r.Body, out)
}

// ToJsonReq converts a Go object to a JSON-encoded HTTP request payload.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return bytes.NewBuffer(c), nil
}

// Call makes a single HTTP request and decodes the JSON response into the
// provided structure. No retries; used for fire-and-forget calls such as
// webhook notifications.
func Call(req *http.Request, response interface{}) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{}

	resp, err := client.Do(req)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()

	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// errRateLimited marks a 429 response so the backoff policy can distinguish
// it from a transport failure.
var errRateLimited = fmt.Errorf("rate limited by remote")

// linearBackOff implements backoff.BackOff with a delay that grows linearly
// with the attempt count. Rate-limit retries and network retries carry
// separate budgets and base delays.
type linearBackOff struct {
	rateLimited      bool
	rateLimitAttempt int
	networkAttempt   int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	if l.rateLimited {
		l.rateLimitAttempt++
		if l.rateLimitAttempt >= rateLimitMaxAttempts {
			return backoff.Stop
		}
		return time.Duration(l.rateLimitAttempt) * rateLimitBaseDelay
	}
	l.networkAttempt++
	if l.networkAttempt >= networkMaxAttempts {
		return backoff.Stop
	}
	return time.Duration(l.networkAttempt) * networkBaseDelay
}

func (l *linearBackOff) Reset() {
	l.rateLimitAttempt = 0
	l.networkAttempt = 0
}

// DoWithRetry executes the request produced by build, retrying per the
// package policy. build is invoked once per attempt so request bodies are
// never re-read. The last Result is returned even when retries are exhausted
// on a 429, so callers can log the terminal status.
func DoWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*Result, error) {
	if client == nil {
		client = http.DefaultClient
	}

	policy := &linearBackOff{}
	var last *Result

	operation := func() error {
		req, err := build()
		if err != nil {
			return backoff.Permanent(err)
		}
		req = req.WithContext(ctx)

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			policy.rateLimited = false
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			policy.rateLimited = false
			return err
		}

		last = &Result{StatusCode: resp.StatusCode, Body: body, Duration: time.Since(start)}
		if resp.StatusCode == http.StatusTooManyRequests {
			policy.rateLimited = true
			return errRateLimited
		}
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil {
		if last != nil && last.StatusCode == http.StatusTooManyRequests {
			return last, fmt.Errorf("rate limit retries exhausted: status %d", last.StatusCode)
		}
		return nil, err
	}
	return last, nil
}

var authorizationPattern = regexp.MustCompile(`(?i)("?authorization"?\s*[:=]\s*"?)(?:bearer\s+)?[^",\s]+`)

// RedactAuthorization replaces API-key-bearing authorization values in a
// serialized request or response before it is persisted to an audit row.
func RedactAuthorization(s string) string {
	return authorizationPattern.ReplaceAllString(s, `${1}[REDACTED]`)
}

// SanitizeHeaders clones headers with authorization values redacted.
func SanitizeHeaders(h http.Header) http.Header {
	clone := h.Clone()
	if clone.Get("Authorization") != "" {
		clone.Set("Authorization", "[REDACTED]")
	}
	return clone
}
