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
package model

import "time"

// Review statuses. Pending items are unique per (tenant, contact); approve
// and ignore are terminal.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewIgnored  = "ignored"
)

// ContactMatchLog is the append-only trail of matcher decisions. Every
// contact examined gets a row, including ignores.
type ContactMatchLog struct {
	ID             int64     `json:"-"`
	TenantID       string    `json:"tenant_id"`
	ContactID      string    `json:"contact_id"`
	ContactName    string    `json:"contact_name"`
	NormalizedName string    `json:"normalized_name"`
	BestCompanyID  *string   `json:"best_company_id,omitempty"`
	Score          float64   `json:"score"`
	EditDistance   int       `json:"edit_distance"`
	Outcome        string    `json:"outcome"`
	CreatedAt      time.Time `json:"created_at"`
}

// ContactReview is a mid-band match queued for a human decision.
type ContactReview struct {
	ID                 int64      `json:"-"`
	ReviewID           string     `json:"review_id"`
	TenantID           string     `json:"tenant_id"`
	ContactID          string     `json:"contact_id"`
	ContactName        string     `json:"contact_name"`
	ContactPhone       string     `json:"contact_phone,omitempty"`
	CandidateCompanyID string     `json:"candidate_company_id"`
	Score              float64    `json:"score"`
	EditDistance       int        `json:"edit_distance"`
	Status             string     `json:"status"`
	ResolvedBy         *string    `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Resolved reports whether the review has reached a terminal status.
func (r *ContactReview) Resolved() bool {
	return r.Status != ReviewPending
}
