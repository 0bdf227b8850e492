package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcritic/deepcritic/internal/analyzer"
	"github.com/deepcritic/deepcritic/internal/review"
)

// fakeAnalyzer routes each agent id to a canned outcome.
type fakeAnalyzer struct {
	fn func(agent review.Agent) (review.AgentFeedback, error)
}

func (f *fakeAnalyzer) Analyze(_ context.Context, agent review.Agent, _ analyzer.Document, _ string) (review.AgentFeedback, error) {
	return f.fn(agent)
}

// recordingNotifier captures every published snapshot in order.
type recordingNotifier struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (n *recordingNotifier) Publish(_ string, snap Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snaps = append(n.snaps, snap)
}

func (n *recordingNotifier) all() []Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Snapshot(nil), n.snaps...)
}

type recordingArchiver struct {
	mu      sync.Mutex
	entries []ArchiveEntry
}

func (a *recordingArchiver) Save(_ context.Context, entry ArchiveEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func okFeedback(name string) review.AgentFeedback {
	return review.AgentFeedback{
		Feedback:   name + " found the paper convincing.",
		Confidence: 0.9,
		Strengths:  []string{"clear structure"},
	}
}

func newTestRunner(an analyzer.Analyzer) (*Runner, *Store, *recordingNotifier, *recordingArchiver) {
	store := NewStore()
	notifier := &recordingNotifier{}
	arch := &recordingArchiver{}
	runner := NewRunner(RunnerOptions{
		Store:        store,
		Notifier:     notifier,
		Analyzer:     an,
		Archiver:     arch,
		AgentTimeout: time.Second,
	})
	return runner, store, notifier, arch
}

func runJob(t *testing.T, runner *Runner, store *Store, agentIDs []string) (Snapshot, Request) {
	t.Helper()
	snap := store.Create(agentIDs)
	req := Request{
		JobID:         snap.JobID,
		DocumentTitle: "paper.pdf",
		Document:      []byte("%PDF-1.4"),
		Prompt:        "review this",
		AgentIDs:      agentIDs,
	}
	runner.Run(req)
	final, err := store.Get(snap.JobID)
	require.NoError(t, err)
	return final, req
}

func TestRunnerHappyPath(t *testing.T) {
	an := &fakeAnalyzer{fn: func(agent review.Agent) (review.AgentFeedback, error) {
		return okFeedback(agent.Name), nil
	}}
	runner, store, notifier, _ := newTestRunner(an)

	final, req := runJob(t, runner, store, []string{"claude", "opus"})

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 1.0, final.Progress)
	assert.Equal(t, 0, final.EstimatedTimeRemaining)
	assert.Equal(t, map[string]AgentStatus{
		"claude": AgentCompleted,
		"opus":   AgentCompleted,
	}, final.AgentStatuses)

	report, err := store.Result(req.JobID)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.AgentResults, 2)
	assert.Equal(t, "paper.pdf", report.Metadata.DocumentTitle)

	// Progress never decreases and ends at exactly 1.0.
	snaps := notifier.all()
	require.NotEmpty(t, snaps)
	prev := 0.0
	for _, s := range snaps {
		assert.GreaterOrEqual(t, s.Progress, prev)
		assert.GreaterOrEqual(t, s.EstimatedTimeRemaining, 0)
		// Agent keys never change over the job's life.
		assert.Len(t, s.AgentStatuses, 2)
		prev = s.Progress
	}
	assert.Equal(t, 1.0, snaps[len(snaps)-1].Progress)
}

func TestRunnerSingleAgentFailure(t *testing.T) {
	an := &fakeAnalyzer{fn: func(agent review.Agent) (review.AgentFeedback, error) {
		if agent.ID == "claude" {
			return review.AgentFeedback{}, errors.New("model overloaded")
		}
		return okFeedback(agent.Name), nil
	}}
	runner, store, _, _ := newTestRunner(an)

	final, req := runJob(t, runner, store, []string{"claude", "opus"})

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, AgentFailed, final.AgentStatuses["claude"])
	assert.Equal(t, AgentCompleted, final.AgentStatuses["opus"])

	report, err := store.Result(req.JobID)
	require.NoError(t, err)
	require.Len(t, report.AgentResults, 1)
	assert.Equal(t, "opus", report.AgentResults[0].AgentID)
}

func TestRunnerAllAgentsFail(t *testing.T) {
	an := &fakeAnalyzer{fn: func(review.Agent) (review.AgentFeedback, error) {
		return review.AgentFeedback{}, errors.New("down")
	}}
	runner, store, _, _ := newTestRunner(an)

	final, req := runJob(t, runner, store, []string{"claude", "opus"})

	// The pipeline completing is success even when every agent failed.
	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, 1.0, final.Progress)

	report, err := store.Result(req.JobID)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.AgentResults)
	assert.NotEmpty(t, report.Summary)
	assert.NotNil(t, report.KeyFindings)
}

func TestRunnerNoValidAgents(t *testing.T) {
	an := &fakeAnalyzer{fn: func(review.Agent) (review.AgentFeedback, error) {
		t.Fatal("analyzer must not be called")
		return review.AgentFeedback{}, nil
	}}
	runner, store, notifier, _ := newTestRunner(an)

	final, _ := runJob(t, runner, store, []string{"unknown-agent"})

	assert.Equal(t, StatusFailed, final.Status)
	assert.Equal(t, "No valid agents selected", final.Error)
	assert.Equal(t, 0, final.EstimatedTimeRemaining)

	// The failure is propagated through the publish channel.
	snaps := notifier.all()
	require.NotEmpty(t, snaps)
	assert.Equal(t, StatusFailed, snaps[len(snaps)-1].Status)
}

func TestRunnerAnalyzerPanicIsPerAgentFailure(t *testing.T) {
	an := &fakeAnalyzer{fn: func(agent review.Agent) (review.AgentFeedback, error) {
		if agent.ID == "claude" {
			panic("boom")
		}
		return okFeedback(agent.Name), nil
	}}
	runner, store, _, _ := newTestRunner(an)

	final, _ := runJob(t, runner, store, []string{"claude", "opus"})

	assert.Equal(t, StatusCompleted, final.Status)
	assert.Equal(t, AgentFailed, final.AgentStatuses["claude"])
	assert.Equal(t, AgentCompleted, final.AgentStatuses["opus"])
}

func TestRunnerArchivesTerminalOutcome(t *testing.T) {
	an := &fakeAnalyzer{fn: func(agent review.Agent) (review.AgentFeedback, error) {
		return okFeedback(agent.Name), nil
	}}
	runner, store, _, arch := newTestRunner(an)

	_, req := runJob(t, runner, store, []string{"claude"})

	require.Len(t, arch.entries, 1)
	entry := arch.entries[0]
	assert.Equal(t, req.JobID, entry.JobID)
	assert.Equal(t, StatusCompleted, entry.Status)
	assert.Equal(t, "paper.pdf", entry.DocumentTitle)
	assert.NotNil(t, entry.Report)
	assert.Empty(t, entry.Error)
}

func TestRunnerLateFailureLeavesCompletedArchiveAlone(t *testing.T) {
	an := &fakeAnalyzer{fn: func(agent review.Agent) (review.AgentFeedback, error) {
		return okFeedback(agent.Name), nil
	}}
	runner, store, _, arch := newTestRunner(an)

	final, req := runJob(t, runner, store, []string{"claude"})
	require.Equal(t, StatusCompleted, final.Status)
	require.Len(t, arch.entries, 1)

	// A failure transition losing the race against completion must not
	// write a second archive entry for the same job.
	runner.fail(req.JobID, req, "internal error: boom")

	got, err := store.Get(req.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.Len(t, arch.entries, 1)
	assert.Equal(t, StatusCompleted, arch.entries[0].Status)
}

func TestRunnerScheduleDoesNotBlock(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	an := &fakeAnalyzer{fn: func(agent review.Agent) (review.AgentFeedback, error) {
		close(started)
		<-release
		return okFeedback(agent.Name), nil
	}}
	runner, store, _, _ := newTestRunner(an)

	snap := store.Create([]string{"claude"})
	runner.Schedule(Request{
		JobID:    snap.JobID,
		Document: []byte("%PDF-1.4"),
		Prompt:   "review this",
		AgentIDs: []string{"claude"},
	})

	// Schedule returned while the analyzer is still blocked.
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("runner never started")
	}
	mid, err := store.Get(snap.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, mid.Status)

	close(release)
	require.Eventually(t, func() bool {
		got, err := store.Get(snap.JobID)
		return err == nil && got.Status == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
