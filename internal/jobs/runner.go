package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/deepcritic/deepcritic/internal/analyzer"
	"github.com/deepcritic/deepcritic/internal/logger"
	"github.com/deepcritic/deepcritic/internal/review"
)

// Progress weights: a fixed fraction for setup, the bulk split evenly across
// agents, the remainder for aggregation.
const (
	progressSetup     = 0.1
	progressAgentSpan = 0.8
	progressReport    = 0.9
)

// Notifier receives a snapshot after every state change of a job.
type Notifier interface {
	Publish(jobID string, snap Snapshot)
}

// ArchiveEntry is the terminal outcome of a job, handed to the archiver.
type ArchiveEntry struct {
	JobID         string
	DocumentTitle string
	Prompt        string
	Status        Status
	Report        *review.Report
	Error         string
}

// Archiver persists terminal review outcomes. Archiving is best effort; a
// failed write never affects the job itself.
type Archiver interface {
	Save(ctx context.Context, entry ArchiveEntry) error
}

// Request carries everything the runner needs to process one job.
type Request struct {
	JobID         string
	DocumentTitle string
	Document      []byte
	Prompt        string
	AgentIDs      []string
}

// Runner drives a job through its agent pipeline, updating the store and
// publishing a snapshot after every state change. Each job is processed by
// exactly one runner invocation; the store's terminal check backstops that.
type Runner struct {
	store        *Store
	notifier     Notifier
	analyzer     analyzer.Analyzer
	archiver     Archiver
	agentTimeout time.Duration
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Store    *Store
	Notifier Notifier
	Analyzer analyzer.Analyzer
	// Archiver is optional; nil disables archiving
	Archiver Archiver
	// AgentTimeout bounds a single analyzer call
	AgentTimeout time.Duration
}

// NewRunner creates a job runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.AgentTimeout == 0 {
		opts.AgentTimeout = 2 * time.Minute
	}
	return &Runner{
		store:        opts.Store,
		notifier:     opts.Notifier,
		analyzer:     opts.Analyzer,
		archiver:     opts.Archiver,
		agentTimeout: opts.AgentTimeout,
	}
}

// Schedule starts processing the job in its own goroutine and returns
// immediately, before any agent work begins.
func (r *Runner) Schedule(req Request) {
	go r.Run(req)
}

// Run processes the job synchronously. Any panic escaping the pipeline is
// converted into a failed terminal transition so a job can never be left
// stuck in processing.
func (r *Runner) Run(req Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("job %s: runner panicked: %v", req.JobID, rec)
			r.fail(req.JobID, req, fmt.Sprintf("internal error: %v", rec))
		}
	}()

	started := time.Now()

	agents := review.Resolve(req.AgentIDs)
	if len(agents) == 0 {
		r.fail(req.JobID, req, "No valid agents selected")
		return
	}

	r.apply(req.JobID, Update{
		Status:        statusPtr(StatusProcessing),
		Progress:      floatPtr(progressSetup),
		Stage:         strPtr("Preparing document for analysis"),
		TimeRemaining: intPtr(len(agents) * perAgentEstimate),
	})

	doc := analyzer.Document{Title: req.DocumentTitle, Content: req.Document}
	feedback := make(map[string]review.AgentFeedback, len(agents))

	for i, agent := range agents {
		progress := progressSetup + float64(i)/float64(len(agents))*progressAgentSpan
		r.apply(req.JobID, Update{
			Progress:      floatPtr(progress),
			Stage:         strPtr("Analyzing with " + agent.Name),
			TimeRemaining: intPtr((len(agents) - i) * perAgentEstimate),
			AgentStatuses: map[string]AgentStatus{agent.ID: AgentProcessing},
		})

		fb, err := r.analyze(agent, doc, req.Prompt)
		if err != nil {
			// A single agent's failure never aborts the job.
			logger.Errorf("job %s: agent %s failed: %v", req.JobID, agent.ID, err)
			r.apply(req.JobID, Update{
				AgentStatuses: map[string]AgentStatus{agent.ID: AgentFailed},
			})
			continue
		}

		feedback[agent.ID] = fb
		r.apply(req.JobID, Update{
			Progress:      floatPtr(progressSetup + float64(i+1)/float64(len(agents))*progressAgentSpan),
			AgentStatuses: map[string]AgentStatus{agent.ID: AgentCompleted},
		})
	}

	r.apply(req.JobID, Update{
		Progress:      floatPtr(progressReport),
		Stage:         strPtr("Generating final report"),
		TimeRemaining: intPtr(30),
	})

	report := review.Aggregate(req.DocumentTitle, req.Prompt, agents, feedback, time.Since(started))

	r.apply(req.JobID, Update{
		Status:        statusPtr(StatusCompleted),
		Progress:      floatPtr(1.0),
		Stage:         strPtr("Analysis complete"),
		TimeRemaining: intPtr(0),
		Result:        report,
	})

	r.archive(ArchiveEntry{
		JobID:         req.JobID,
		DocumentTitle: req.DocumentTitle,
		Prompt:        req.Prompt,
		Status:        StatusCompleted,
		Report:        report,
	})
}

// analyze invokes the analyzer for one agent with a bounded context,
// shielding the pipeline from a panicking implementation.
func (r *Runner) analyze(agent review.Agent, doc analyzer.Document, prompt string) (fb review.AgentFeedback, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("analyzer panicked: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), r.agentTimeout)
	defer cancel()
	return r.analyzer.Analyze(ctx, agent, doc, prompt)
}

// fail transitions the job to failed. This is the only fatal path. When the
// transition is rejected because the job already reached a terminal state,
// nothing is archived: the terminal outcome was archived by whoever got
// there first.
func (r *Runner) fail(jobID string, req Request, msg string) {
	if err := r.apply(jobID, Update{
		Status:        statusPtr(StatusFailed),
		Stage:         strPtr("Failed"),
		TimeRemaining: intPtr(0),
		Error:         strPtr(msg),
	}); err != nil {
		return
	}
	r.archive(ArchiveEntry{
		JobID:         jobID,
		DocumentTitle: req.DocumentTitle,
		Prompt:        req.Prompt,
		Status:        StatusFailed,
		Error:         msg,
	})
}

// apply updates the store and publishes the resulting snapshot. An update
// rejected because the job already reached a terminal state is logged and
// dropped; this only happens after the panic recovery path raced the normal
// terminal transition. The error is returned so fail can tell whether its
// transition took effect.
func (r *Runner) apply(jobID string, u Update) error {
	snap, err := r.store.Apply(jobID, u)
	if err != nil {
		logger.Warnf("job %s: dropping update: %v", jobID, err)
		return err
	}
	r.notifier.Publish(jobID, snap)
	return nil
}

func (r *Runner) archive(entry ArchiveEntry) {
	if r.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.archiver.Save(ctx, entry); err != nil {
		logger.Errorf("job %s: failed to archive review: %v", entry.JobID, err)
	}
}

func statusPtr(s Status) *Status  { return &s }
func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }
