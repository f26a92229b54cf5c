package domain

import "time"

// Well-known alias names. Any non-empty alias name is accepted; these are
// the conventional lifecycle stages.
const (
	AliasStaging  = "staging"
	AliasChampion = "champion"
)

// Alias is a mutable named pointer from (model name, alias name) to exactly
// one bound version. Rebinding is the only permitted mutation and is applied
// as a single atomic conditional update in the backing store.
type Alias struct {
	ModelName   string    `json:"model_name"`
	Alias       string    `json:"alias"`
	Version     int       `json:"version"`
	AuditReason string    `json:"audit_reason"`
	UpdatedAt   time.Time `json:"updated_at"`
}
