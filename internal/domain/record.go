package domain

import "time"

// ActionStatus represents the terminal outcome of a capability invocation
type ActionStatus string

const (
	StatusDryRun    ActionStatus = "dry-run"
	StatusCompleted ActionStatus = "completed"
	StatusWritten   ActionStatus = "written"
	StatusPartial   ActionStatus = "partial"
	StatusFailed    ActionStatus = "failed"
	StatusBlocked   ActionStatus = "blocked"
)

// ActionRecord is one immutable outcome fact for one capability invocation.
// Records are append-only; nothing ever edits or deletes one.
type ActionRecord struct {
	TestID       string       `json:"test_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Action       string       `json:"action"`
	Status       ActionStatus `json:"status"`
	Details      string       `json:"details"`
	ArtifactPath string       `json:"artifact_path,omitempty"`
}

// NewActionRecord builds a record stamped with the current time.
func NewActionRecord(cfg *RunConfig, action string, status ActionStatus, details string) *ActionRecord {
	return &ActionRecord{
		TestID:    cfg.TestID,
		Timestamp: time.Now().UTC(),
		Action:    action,
		Status:    status,
		Details:   details,
	}
}
