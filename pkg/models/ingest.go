package models

import "time"

// IngestSummary accumulates per-record outcomes of a batch.
type IngestSummary struct {
	Total     int `json:"total"`
	Created   int `json:"created"`
	Merged    int `json:"merged"`
	Unchanged int `json:"unchanged"`
	Pending   int `json:"pending"`
	Malformed int `json:"malformed"`
	Failed    int `json:"failed"`
}

// Count records a single decision in the summary.
func (s *IngestSummary) Count(decision MatchDecision) {
	s.Total++
	switch decision {
	case DecisionNew:
		s.Created++
	case DecisionMerge:
		s.Merged++
	case DecisionUnchanged:
		s.Unchanged++
	case DecisionAmbiguous:
		s.Pending++
	}
}

// Ingest run states.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// IngestRun records one batch ingestion with its final summary.
type IngestRun struct {
	ID         string        `json:"id"`
	Survey     string        `json:"survey"`
	Source     string        `json:"source,omitempty"`
	Status     string        `json:"status"`
	Summary    IngestSummary `json:"summary"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// SurveyPriority ranks a survey for attribute precedence and match
// tie-breaking. Higher wins.
type SurveyPriority struct {
	Survey   string `json:"survey"`
	Priority int    `json:"priority"`
}

// PriorityFor returns the priority for survey, or 0 when unranked.
func PriorityFor(priorities []SurveyPriority, survey string) int {
	for _, p := range priorities {
		if p.Survey == survey {
			return p.Priority
		}
	}
	return 0
}
