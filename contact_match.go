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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/internal/apierror"
	redlock "github.com/contaops/contaops/internal/lock"
	"github.com/contaops/contaops/internal/similarity"
	"github.com/contaops/contaops/internal/taxid"
	"github.com/contaops/contaops/model"
	"github.com/contaops/contaops/providers"
)

// companySnapshotTTL bounds how stale the matcher's view of the companies
// table may be.
const companySnapshotTTL = 5 * time.Minute

// matchLockTimeout is the redis lock expiry for one matcher pass. The lock
// is extended after every page, so the timeout only has to outlive a single
// page.
const matchLockTimeout = 10 * time.Minute

// SnapshotEntry is one company in the matcher's cached view. Fields are
// exported for the cache codec. LinkedContactID and Phone carry the current
// link state so the matcher can tell linked companies apart without a second
// read.
type SnapshotEntry struct {
	CompanyID       string
	Name            string
	NormalizedName  string
	Key             string
	LinkedContactID string
	Phone           string
}

// ContactMatchResponse summarizes one matcher pass.
type ContactMatchResponse struct {
	Success          bool  `json:"success"`
	TotalProcessados int   `json:"total_processados"`
	TotalMatched     int   `json:"total_matched"`
	TotalReview      int   `json:"total_review"`
	TotalIgnored     int   `json:"total_ignored"`
	ExecutionTimeMs  int64 `json:"execution_time_ms"`
}

// MatchContacts scores every CRM contact against the tenant's companies and
// applies the outcome per the similarity thresholds. The pass is idempotent:
// companies already linked or carrying a phone are never overwritten, and
// pending reviews are not duplicated.
func (c *Contaops) MatchContacts(ctx context.Context, tenantID string) (*ContactMatchResponse, error) {
	started := time.Now()

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	// Contact matching has no sync_runs row, so single-flight per tenant is
	// enforced with a redis lock instead.
	locker := redlock.NewLocker(c.redis, "contaops:match:"+tenantID)
	if err := locker.Lock(ctx, matchLockTimeout); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "contact match already running for tenant", tenantID)
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Warnf("matcher lock release for %s: %v", tenantID, err)
		}
	}()

	client, err := c.contactsClient(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	snapshot, err := c.companySnapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	response := &ContactMatchResponse{Success: true}
	throttle := time.Duration(conf.Sync.InterPageDelayMs) * time.Millisecond

	page := 1
	for {
		contactPage, err := client.FetchContactsPage(ctx, page, conf.Sync.PageSize)
		if err != nil {
			// Stop paging but keep the totals collected so far; the summary
			// row below still records the partial pass.
			logrus.Errorf("contact match %s: page %d fetch failed: %v", tenantID, page, err)
			response.Success = false
			break
		}

		for _, contact := range contactPage.Contacts {
			outcome := c.matchOneContact(ctx, tenantID, contact, snapshot)
			response.TotalProcessados++
			switch outcome {
			case similarity.OutcomeAutoLink:
				response.TotalMatched++
			case similarity.OutcomeReview:
				response.TotalReview++
			default:
				response.TotalIgnored++
			}
		}

		if !contactPage.HasMore {
			break
		}
		page++

		if err := locker.ExtendLock(ctx, matchLockTimeout); err != nil {
			logrus.Warnf("matcher lock extension for %s: %v", tenantID, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(throttle):
		}
	}

	response.ExecutionTimeMs = time.Since(started).Milliseconds()

	if response.TotalMatched > 0 {
		c.invalidateSnapshot(ctx, tenantID)
	}

	status := model.StatusSuccess
	if !response.Success {
		status = model.StatusFailed
	}
	summary := &model.IntegrationLog{
		TenantID: tenantID,
		Provider: model.ProviderContacts,
		Status:   status,
		Summary: map[string]int{
			"total_processados": response.TotalProcessados,
			"total_matched":     response.TotalMatched,
			"total_review":      response.TotalReview,
			"total_ignored":     response.TotalIgnored,
		},
	}
	if err := c.datasource.RecordIntegrationLog(ctx, summary); err != nil {
		logrus.Errorf("contact match summary for %s failed: %v", tenantID, err)
	}

	logrus.Infof("contact match %s: %d processed, %d matched, %d review, %d ignored in %dms",
		tenantID, response.TotalProcessados, response.TotalMatched,
		response.TotalReview, response.TotalIgnored, response.ExecutionTimeMs)
	return response, nil
}

// matchOneContact scores one contact and applies the classified outcome.
// Every decision lands in the match log, including ignores.
func (c *Contaops) matchOneContact(ctx context.Context, tenantID string, contact providers.Contact, snapshot []SnapshotEntry) similarity.Outcome {
	candidate := providers.CompanyNameCandidate(contact.Name)
	normalized := similarity.NormalizeName(candidate)

	entry := &model.ContactMatchLog{
		TenantID:       tenantID,
		ContactID:      contact.ID,
		ContactName:    contact.Name,
		NormalizedName: normalized,
		Outcome:        string(similarity.OutcomeIgnore),
	}

	if normalized == "" {
		c.logMatchDecision(ctx, entry)
		return similarity.OutcomeIgnore
	}

	idx, score, ok := bestCompanyMatch(normalized, snapshot)
	if !ok {
		c.logMatchDecision(ctx, entry)
		return similarity.OutcomeIgnore
	}
	best := snapshot[idx]

	outcome := similarity.Classify(score)
	entry.BestCompanyID = &best.CompanyID
	entry.Score = score
	entry.EditDistance = similarity.EditDistance(normalized, best.NormalizedName)
	entry.Outcome = string(outcome)

	switch outcome {
	case similarity.OutcomeAutoLink:
		if best.LinkedContactID != "" || best.Phone != "" {
			// A company that already carries a contact link or a phone is
			// left alone.
			entry.Outcome = string(similarity.OutcomeIgnore)
			outcome = similarity.OutcomeIgnore
		} else if err := c.datasource.LinkCompanyContact(ctx, best.CompanyID, contact.ID, contact.Phone); err != nil {
			logrus.Errorf("linking contact %s to company %s failed: %v", contact.ID, best.CompanyID, err)
			entry.Outcome = string(similarity.OutcomeIgnore)
			outcome = similarity.OutcomeIgnore
		} else {
			// Keep the in-memory view current so a later contact in the same
			// pass cannot claim the company again.
			snapshot[idx].LinkedContactID = contact.ID
			snapshot[idx].Phone = contact.Phone
		}
	case similarity.OutcomeReview:
		review := &model.ContactReview{
			TenantID:           tenantID,
			ContactID:          contact.ID,
			ContactName:        contact.Name,
			ContactPhone:       contact.Phone,
			CandidateCompanyID: best.CompanyID,
			Score:              score,
			EditDistance:       entry.EditDistance,
		}
		created, err := c.datasource.CreatePendingReview(ctx, review)
		if err != nil {
			logrus.Errorf("review for contact %s failed: %v", contact.ID, err)
		} else if !created {
			logrus.Debugf("pending review for contact %s already exists", contact.ID)
		}
	}

	c.logMatchDecision(ctx, entry)
	return outcome
}

// bestCompanyMatch returns the index of the highest-scoring company. Ties
// break to the lexically smaller tax-ID key so reruns pick the same winner.
func bestCompanyMatch(normalizedName string, snapshot []SnapshotEntry) (int, float64, bool) {
	bestIdx := -1
	bestScore := -1.0

	for i, entry := range snapshot {
		score := similarity.JaroWinkler(normalizedName, entry.NormalizedName)
		if score > bestScore || (score == bestScore && bestIdx >= 0 && entry.Key < snapshot[bestIdx].Key) {
			bestIdx = i
			bestScore = score
		}
	}
	return bestIdx, bestScore, bestIdx >= 0
}

// companySnapshot returns the tenant's companies with precomputed
// normalized names, cached so a contacts pass reads the table once.
func (c *Contaops) companySnapshot(ctx context.Context, tenantID string) ([]SnapshotEntry, error) {
	cacheKey := "companies:" + tenantID

	var snapshot []SnapshotEntry
	if err := c.cache.Get(ctx, cacheKey, &snapshot); err != nil {
		logrus.Warnf("company snapshot cache read failed: %v", err)
	}
	if len(snapshot) > 0 {
		return snapshot, nil
	}

	companies, err := c.datasource.GetCompaniesForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	snapshot = make([]SnapshotEntry, 0, len(companies))
	for _, cmp := range companies {
		entry := SnapshotEntry{
			CompanyID:      cmp.CompanyID,
			Name:           cmp.Name,
			NormalizedName: similarity.NormalizeName(cmp.Name),
			Key:            taxid.NormalizeKey(cmp.CNPJ),
		}
		if cmp.WhatsAppContactID != nil {
			entry.LinkedContactID = *cmp.WhatsAppContactID
		}
		if cmp.WhatsAppPhone != nil {
			entry.Phone = *cmp.WhatsAppPhone
		}
		snapshot = append(snapshot, entry)
	}

	if err := c.cache.Set(ctx, cacheKey, snapshot, companySnapshotTTL); err != nil {
		logrus.Warnf("company snapshot cache write failed: %v", err)
	}
	return snapshot, nil
}

func (c *Contaops) logMatchDecision(ctx context.Context, entry *model.ContactMatchLog) {
	if err := c.datasource.RecordContactMatch(ctx, entry); err != nil {
		logrus.Warnf("contact match log failed for %s: %v", entry.ContactID, err)
	}
}

// ApproveReview applies a pending review's candidate link and resolves the
// item. Resolution is single-shot; a second call gets a conflict.
func (c *Contaops) ApproveReview(ctx context.Context, reviewID, resolvedBy string) (*model.ContactReview, error) {
	review, err := c.datasource.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	resolved, err := c.datasource.ResolveReview(ctx, reviewID, model.ReviewApproved, resolvedBy)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "review already resolved", reviewID)
	}

	if err := c.datasource.LinkCompanyContact(ctx, review.CandidateCompanyID, review.ContactID, review.ContactPhone); err != nil {
		return nil, err
	}

	c.invalidateSnapshot(ctx, review.TenantID)
	return c.datasource.GetReview(ctx, reviewID)
}

// IgnoreReview resolves a pending review without touching the company.
func (c *Contaops) IgnoreReview(ctx context.Context, reviewID, resolvedBy string) (*model.ContactReview, error) {
	resolved, err := c.datasource.ResolveReview(ctx, reviewID, model.ReviewIgnored, resolvedBy)
	if err != nil {
		return nil, err
	}
	if !resolved {
		return nil, apierror.NewAPIError(apierror.ErrConflict, "review already resolved", reviewID)
	}
	return c.datasource.GetReview(ctx, reviewID)
}

// Review retrieves one review item.
func (c *Contaops) Review(ctx context.Context, reviewID string) (*model.ContactReview, error) {
	return c.datasource.GetReview(ctx, reviewID)
}

// PendingReviews lists a tenant's open review queue.
func (c *Contaops) PendingReviews(ctx context.Context, tenantID string) ([]*model.ContactReview, error) {
	return c.datasource.GetPendingReviews(ctx, tenantID)
}

func (c *Contaops) invalidateSnapshot(ctx context.Context, tenantID string) {
	if err := c.cache.Delete(ctx, "companies:"+tenantID); err != nil {
		logrus.Warnf("company snapshot invalidation failed: %v", err)
	}
}
