// Package jobs holds the review job lifecycle: the in-memory store that is
// the single source of truth for job state, and the runner that drives a job
// through its agents.
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/deepcritic/deepcritic/internal/review"
)

// Status represents the lifecycle state of a review job.
type Status int

// Job status constants
const (
	// StatusUnknown represents an unknown or invalid job status
	StatusUnknown Status = iota
	// StatusPending indicates the job is waiting for its runner to start
	StatusPending
	// StatusProcessing indicates the job is being analyzed
	StatusProcessing
	// StatusCompleted indicates the job has finished successfully
	StatusCompleted
	// StatusFailed indicates the job has failed to complete
	StatusFailed
)

var statusNames = []string{
	"unknown",
	"pending",
	"processing",
	"completed",
	"failed",
}

// ParseStatus converts a string representation of a job status to Status
func ParseStatus(str string) (Status, error) {
	for i, name := range statusNames {
		if name == str {
			return Status(i), nil
		}
	}
	return StatusUnknown, fmt.Errorf("invalid job status: %s", str)
}

func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return statusNames[StatusUnknown]
	}
	return statusNames[s]
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MarshalJSON implements the json.Marshaler interface for Status
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Status
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	status, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// AgentStatus represents the state of a single agent within a job.
type AgentStatus int

// Agent status constants
const (
	AgentWaiting AgentStatus = iota
	AgentProcessing
	AgentCompleted
	AgentFailed
)

var agentStatusNames = []string{
	"waiting",
	"processing",
	"completed",
	"failed",
}

func (s AgentStatus) String() string {
	if int(s) >= len(agentStatusNames) {
		return agentStatusNames[AgentWaiting]
	}
	return agentStatusNames[s]
}

// MarshalJSON implements the json.Marshaler interface for AgentStatus
func (s AgentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for AgentStatus
func (s *AgentStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	for i, name := range agentStatusNames {
		if name == str {
			*s = AgentStatus(i)
			return nil
		}
	}
	return fmt.Errorf("invalid agent status: %s", str)
}

// Job is the authoritative record of one review request. It is owned by the
// Store and mutated only through Store.Apply.
type Job struct {
	ID            string
	Status        Status
	Progress      float64
	Stage         string
	TimeRemaining int
	AgentStatuses map[string]AgentStatus
	Result        *review.Report
	Error         string
	CreatedAt     time.Time
}

// Snapshot is an immutable point-in-time copy of a job's status fields, safe
// to hand to readers and publishers.
type Snapshot struct {
	JobID                  string                 `json:"jobId"`
	Status                 Status                 `json:"status"`
	Progress               float64                `json:"progress"`
	Stage                  string                 `json:"stage"`
	EstimatedTimeRemaining int                    `json:"estimatedTimeRemaining"`
	AgentStatuses          map[string]AgentStatus `json:"agentStatuses"`
	Error                  string                 `json:"error,omitempty"`
}

func (j *Job) snapshot() Snapshot {
	statuses := make(map[string]AgentStatus, len(j.AgentStatuses))
	for id, st := range j.AgentStatuses {
		statuses[id] = st
	}
	return Snapshot{
		JobID:                  j.ID,
		Status:                 j.Status,
		Progress:               j.Progress,
		Stage:                  j.Stage,
		EstimatedTimeRemaining: j.TimeRemaining,
		AgentStatuses:          statuses,
		Error:                  j.Error,
	}
}
