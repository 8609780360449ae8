// internal/model/domain.go
package model

import (
	"encoding/json"
	"time"
)

// Domain verification statuses.
const (
	DomainPending  = "pending"
	DomainVerified = "verified"
)

type Domain struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Status            string          `db:"status" json:"status"`
	VerificationToken string          `db:"verification_token" json:"verificationToken"`
	ProviderConfig    json.RawMessage `db:"provider_config" json:"providerConfig,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt         *time.Time      `db:"updated_at" json:"updatedAt,omitempty"`
	VerifiedAt        *time.Time      `db:"verified_at" json:"verifiedAt,omitempty"`
}
