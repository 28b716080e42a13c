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
	"database/sql"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/contaops/contaops/internal/apierror"
	"github.com/contaops/contaops/model"
)

// RecordContactMatch appends one matcher decision to the trail.
func (d Datasource) RecordContactMatch(ctx context.Context, entry *model.ContactMatchLog) error {
	ctx, span := otel.Tracer("Contact").Start(ctx, "Saving contact match to db")
	defer span.End()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.contact_match_logs(
			tenant_id, contact_id, contact_name, normalized_name,
			best_company_id, score, edit_distance, outcome, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.TenantID, entry.ContactID, entry.ContactName, entry.NormalizedName,
		entry.BestCompanyID, entry.Score, entry.EditDistance, entry.Outcome,
		time.Now())
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record contact match", err)
	}

	return nil
}

// CreatePendingReview inserts a review item. A partial unique index on
// (tenant_id, contact_id) WHERE status = 'pending' keeps reruns from piling
// up duplicates; the bool reports whether a new row was created.
func (d Datasource) CreatePendingReview(ctx context.Context, review *model.ContactReview) (bool, error) {
	ctx, span := otel.Tracer("Contact").Start(ctx, "Creating contact review")
	defer span.End()

	review.ReviewID = model.GenerateUUIDWithSuffix("rev")
	review.Status = model.ReviewPending

	result, err := d.Conn.ExecContext(ctx, `
		INSERT INTO contaops.contact_reviews(
			review_id, tenant_id, contact_id, contact_name, contact_phone,
			candidate_company_id, score, edit_distance, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT DO NOTHING
	`, review.ReviewID, review.TenantID, review.ContactID, review.ContactName,
		review.ContactPhone, review.CandidateCompanyID, review.Score,
		review.EditDistance, review.Status, time.Now())
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create contact review", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create contact review", err)
	}

	return rows == 1, nil
}

// GetReview retrieves a review item by its ID.
func (d Datasource) GetReview(ctx context.Context, reviewID string) (*model.ContactReview, error) {
	ctx, span := otel.Tracer("Contact").Start(ctx, "Fetching contact review")
	defer span.End()

	r := &model.ContactReview{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, review_id, tenant_id, contact_id, contact_name,
			contact_phone, candidate_company_id, score, edit_distance, status,
			resolved_by, resolved_at, created_at
		FROM contaops.contact_reviews
		WHERE review_id = $1
	`, reviewID).Scan(
		&r.ID, &r.ReviewID, &r.TenantID, &r.ContactID, &r.ContactName,
		&r.ContactPhone, &r.CandidateCompanyID, &r.Score, &r.EditDistance,
		&r.Status, &r.ResolvedBy, &r.ResolvedAt, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, "Contact review not found", reviewID)
	}
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch contact review", err)
	}

	return r, nil
}

// ResolveReview moves a pending review to a terminal status. The WHERE guard
// makes resolution single-shot: a second resolution matches zero rows and
// returns false so the handler can answer 409.
func (d Datasource) ResolveReview(ctx context.Context, reviewID, status, resolvedBy string) (bool, error) {
	ctx, span := otel.Tracer("Contact").Start(ctx, "Resolving contact review")
	defer span.End()

	result, err := d.Conn.ExecContext(ctx, `
		UPDATE contaops.contact_reviews
		SET status = $2, resolved_by = $3, resolved_at = $4
		WHERE review_id = $1 AND status = 'pending'
	`, reviewID, status, resolvedBy, time.Now())
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve contact review", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to resolve contact review", err)
	}

	return rows == 1, nil
}

// GetPendingReviews lists a tenant's open review queue, oldest first.
func (d Datasource) GetPendingReviews(ctx context.Context, tenantID string) ([]*model.ContactReview, error) {
	ctx, span := otel.Tracer("Contact").Start(ctx, "Fetching pending contact reviews")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, review_id, tenant_id, contact_id, contact_name,
			contact_phone, candidate_company_id, score, edit_distance, status,
			resolved_by, resolved_at, created_at
		FROM contaops.contact_reviews
		WHERE tenant_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`, tenantID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to fetch pending reviews", err)
	}
	defer rows.Close()

	var reviews []*model.ContactReview
	for rows.Next() {
		r := &model.ContactReview{}
		err = rows.Scan(
			&r.ID, &r.ReviewID, &r.TenantID, &r.ContactID, &r.ContactName,
			&r.ContactPhone, &r.CandidateCompanyID, &r.Score, &r.EditDistance,
			&r.Status, &r.ResolvedBy, &r.ResolvedAt, &r.CreatedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan contact review", err)
		}
		reviews = append(reviews, r)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating contact reviews", err)
	}

	return reviews, nil
}
