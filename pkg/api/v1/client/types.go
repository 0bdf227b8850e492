package client

import "encoding/json"

// JobStatus is a point-in-time view of a review job.
type JobStatus struct {
	JobID                  string            `json:"jobId"`
	Status                 string            `json:"status"`
	Progress               float64           `json:"progress"`
	Stage                  string            `json:"stage"`
	EstimatedTimeRemaining int               `json:"estimatedTimeRemaining"`
	AgentStatuses          map[string]string `json:"agentStatuses"`
	Error                  string            `json:"error,omitempty"`
}

// Agent describes one configured analysis agent.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Results is the outcome of a results query. While the job is still running
// Report is nil and Processing carries the interim state.
type Results struct {
	Report     json.RawMessage
	Processing *JobStatus
}

// Completed reports whether the final report is available.
func (r *Results) Completed() bool {
	return r.Report != nil
}

type submitResponse struct {
	JobID   string `json:"jobId"`
	Message string `json:"message"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type agentsResponse struct {
	Agents []Agent `json:"agents"`
}

type processingResponse struct {
	Message  string  `json:"message"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}
