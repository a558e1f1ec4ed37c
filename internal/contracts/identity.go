package contracts

import "time"

// IdentityPair is one (raw id, name) observation fed to the resolver
type IdentityPair struct {
	OriginalID string    `json:"original_customer_id"`
	Name       string    `json:"customer_name"`
	FirstSeen  time.Time `json:"first_seen"`
}

// CustomerIdentity maps raw customer IDs to one canonical customer
// ⭐ SSOT: customer_identity 테이블 (append-only)
type CustomerIdentity struct {
	MasterCustomerID int64    `json:"master_customer_id"` // dense, 1..N
	CustomerName     string   `json:"customer_name"`      // normalized key
	OriginalIDs      []string `json:"original_ids"`       // sorted
}
