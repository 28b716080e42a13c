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

// Company is a client company of an accounting office (tenant), mirrored
// from the company registry. CNPJ is stored formatted; lookups fall back to
// the normalized digits when the stored formatting differs.
type Company struct {
	ID                int64      `json:"-"`
	CompanyID         string     `json:"company_id"`
	TenantID          string     `json:"tenant_id"`
	Name              string     `json:"name"`
	CNPJ              string     `json:"cnpj"`
	RemoteID          string     `json:"remote_id"`
	ContentHash       string     `json:"content_hash"`
	WhatsAppContactID *string    `json:"whatsapp_contact_id,omitempty"`
	WhatsAppPhone     *string    `json:"whatsapp_phone,omitempty"`
	ContactSyncedAt   *time.Time `json:"contact_synced_at,omitempty"`
	Active            bool       `json:"active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// Tenant is an accounting office. Slug is the human-facing identifier used
// by the cron trigger; TenantID is the internal key.
type Tenant struct {
	ID        int64     `json:"-"`
	TenantID  string    `json:"tenant_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// TenantIntegration holds a tenant's credential for one upstream provider.
// Base URLs are global configuration; tokens are per tenant.
type TenantIntegration struct {
	ID            int64     `json:"-"`
	IntegrationID string    `json:"integration_id"`
	TenantID      string    `json:"tenant_id"`
	Provider      string    `json:"provider"`
	Token         string    `json:"-"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

// User belongs to a tenant. Role gates the admin-only sync endpoints.
type User struct {
	ID        int64     `json:"-"`
	UserID    string    `json:"user_id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const RoleAdmin = "admin"

// Session is a bearer session token issued to a user.
type Session struct {
	ID        int64     `json:"-"`
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
