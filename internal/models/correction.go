// internal/models/correction.go
package models

import "time"

// CorrectionRequest targets one divergence type, either an explicit id list or
// every currently-offending record.
type CorrectionRequest struct {
	Type              DivergenceType         `json:"type"`
	IDs               []int64                `json:"ids,omitempty"`
	FixAll            bool                   `json:"fixAll,omitempty"`
	ConfirmationToken string                 `json:"confirmationToken,omitempty"`
	Params            map[string]interface{} `json:"params,omitempty"`

	// User is the acting identity for audit attribution, taken from the
	// request context rather than the payload.
	User string `json:"-"`
}

// Unattended reports whether the request carries no operator confirmation.
func (r *CorrectionRequest) Unattended() bool {
	return r.ConfirmationToken == ""
}

// CorrectionResult aggregates per-target outcomes of one correction batch.
type CorrectionResult struct {
	Success   bool     `json:"success"`
	Corrected int      `json:"corrected"`
	Skipped   int      `json:"skipped"` // targets already resolved (no-ops)
	Errors    int      `json:"errors"`
	Messages  []string `json:"messages"`
}

// HistoryEntry is the persisted, append-only audit record of one applied fix.
type HistoryEntry struct {
	ID         string                 `json:"id"`
	Type       DivergenceType         `json:"type"`
	Severity   Severity               `json:"severity"`
	EntityKind string                 `json:"entityKind"`
	EntityID   int64                  `json:"entityId"`
	Before     map[string]interface{} `json:"before,omitempty"`
	After      map[string]interface{} `json:"after,omitempty"`
	Action     string                 `json:"action"`
	Automatic  bool                   `json:"automatic"`
	User       string                 `json:"user"`
	CreatedAt  time.Time              `json:"createdAt"`
}

// HistoryFilter narrows a history query. Zero values mean "any".
type HistoryFilter struct {
	Type       DivergenceType
	EntityKind string
	EntityID   int64
	From       time.Time
	To         time.Time
	Limit      int
}
