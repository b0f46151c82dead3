package models

import "time"

// MatchDecision is the outcome kind of resolving a record against the registry.
type MatchDecision string

const (
	// DecisionNew means no object lies within the matching radius.
	DecisionNew MatchDecision = "new"
	// DecisionMerge means the record merges into an existing object.
	DecisionMerge MatchDecision = "merge"
	// DecisionUnchanged means the object already carries this exact record.
	DecisionUnchanged MatchDecision = "unchanged"
	// DecisionAmbiguous means the target already carries a different
	// record from the same survey; the record goes to pending review.
	DecisionAmbiguous MatchDecision = "ambiguous"
)

// CandidateInfo describes one object found within the matching radius.
type CandidateInfo struct {
	ObjectID   string  `json:"object_id"`
	Separation float64 `json:"separation_arcsec"`
	Priority   int     `json:"priority"`
	Quality    *int    `json:"quality,omitempty"`
}

// RejectedAlternate records a candidate that lost the deterministic
// ranking, kept for audit.
type RejectedAlternate struct {
	ObjectID   string  `json:"object_id"`
	Separation float64 `json:"separation_arcsec"`
	Reason     string  `json:"reason"`
}

// MatchOutcome is a fully resolved decision for one record. Object is
// set for merge/unchanged/ambiguous decisions.
type MatchOutcome struct {
	Decision   MatchDecision       `json:"decision"`
	Record     CatalogRecord       `json:"record"`
	Object     *CelestialObject    `json:"object,omitempty"`
	Separation float64             `json:"separation_arcsec,omitempty"`
	Alternates []RejectedAlternate `json:"alternates,omitempty"`
}

// Pending record review states.
const (
	PendingStatusOpen     = "open"
	PendingStatusApproved = "approved"
	PendingStatusRejected = "rejected"
)

// PendingRecord is an ambiguous duplicate parked for operator review.
type PendingRecord struct {
	ID         string        `json:"id"`
	ObjectID   string        `json:"object_id"`
	Record     CatalogRecord `json:"record"`
	Reason     string        `json:"reason"`
	Status     string        `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// MatchAudit is the persisted trail of one resolution: the winning
// object and the alternates it beat.
type MatchAudit struct {
	ID         string              `json:"id"`
	RunID      string              `json:"run_id,omitempty"`
	Survey     string              `json:"survey"`
	SourceID   string              `json:"source_id"`
	ObjectID   string              `json:"object_id"`
	Separation float64             `json:"separation_arcsec"`
	Alternates []RejectedAlternate `json:"alternates,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
