package jobs

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deepcritic/deepcritic/internal/review"
)

// Store errors
var (
	// ErrNotFound is returned when a job id is unknown
	ErrNotFound = errors.New("job not found")
	// ErrTerminal is returned when updating a job that already completed or failed
	ErrTerminal = errors.New("job already in a terminal state")
)

// perAgentEstimate is the advisory per-agent duration used for the initial
// time-remaining estimate.
const perAgentEstimate = 60

// Update is a partial mutation of a job. Nil fields are left untouched;
// AgentStatuses entries are merged key by key.
type Update struct {
	Status        *Status
	Progress      *float64
	Stage         *string
	TimeRemaining *int
	AgentStatuses map[string]AgentStatus
	Result        *review.Report
	Error         *string
}

// Store is the in-memory record of every job's current state. All job state
// lives in process memory for the process lifetime; there is no eviction.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Create allocates a new job for the given agents. The job starts pending
// with zero progress and every agent waiting. agentIDs must be non-empty;
// the caller validates that before scheduling any work.
func (s *Store) Create(agentIDs []string) Snapshot {
	statuses := make(map[string]AgentStatus, len(agentIDs))
	for _, id := range agentIDs {
		statuses[id] = AgentWaiting
	}

	job := &Job{
		ID:            uuid.NewString(),
		Status:        StatusPending,
		Progress:      0,
		Stage:         "Starting document analysis",
		TimeRemaining: len(agentIDs) * perAgentEstimate,
		AgentStatuses: statuses,
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return job.snapshot()
}

// Get returns a consistent snapshot of the job's current state.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return job.snapshot(), nil
}

// Result returns the aggregated report for a completed job. It returns nil
// without error while the job is still running or has failed.
func (s *Store) Result(id string) (*review.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if job.Status != StatusCompleted {
		return nil, nil
	}
	// The report is never mutated after the terminal transition, so sharing
	// the pointer with readers is safe.
	return job.Result, nil
}

// Apply merges an update into the job under the store lock, so no reader
// ever observes a partially applied update. Updates against a job that has
// already reached a terminal state are rejected with ErrTerminal.
func (s *Store) Apply(id string, u Update) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if job.Status.Terminal() {
		return Snapshot{}, ErrTerminal
	}

	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.Progress != nil {
		job.Progress = *u.Progress
	}
	if u.Stage != nil {
		job.Stage = *u.Stage
	}
	if u.TimeRemaining != nil {
		job.TimeRemaining = *u.TimeRemaining
	}
	for agentID, st := range u.AgentStatuses {
		// Agent keys are fixed at creation; unknown keys are ignored.
		if _, exists := job.AgentStatuses[agentID]; exists {
			job.AgentStatuses[agentID] = st
		}
	}
	if u.Result != nil {
		job.Result = u.Result
	}
	if u.Error != nil {
		job.Error = *u.Error
	}

	return job.snapshot(), nil
}

// Len returns the number of jobs currently tracked.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
