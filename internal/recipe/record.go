package recipe

import (
	"encoding/json"
	"time"
)

// Run statuses written to record metadata.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunRecord is the output of one executed task.
type RunRecord struct {
	Actions  []ActionRecord `json:"actions"`
	Metadata RecordMetadata `json:"metadata"`
}

// RecordMetadata identifies the run a record belongs to.
type RecordMetadata struct {
	ESPKey   string    `json:"espkey"`
	Task     string    `json:"task"`
	RunID    string    `json:"run_id"`
	RunStart time.Time `json:"run_start"`
	Status   string    `json:"status"`
	// Error is set when the task failed before any action ran.
	Error string `json:"error,omitempty"`
}

// ActionRecord is one executed action. A delay sets Delay, other actions set
// Result on success. Error is set when the action failed.
type ActionRecord struct {
	Action string          `json:"action"`
	Run    time.Time       `json:"run"`
	Result json.RawMessage `json:"result,omitempty"`
	Delay  *float64        `json:"delay,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Failed reports whether the record ends in failure.
func (r RunRecord) Failed() bool {
	return r.Metadata.Status == StatusFailed
}
