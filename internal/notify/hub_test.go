package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcritic/deepcritic/internal/jobs"
)

// fakeConn records every written message; failWrites makes writes error to
// simulate a dead connection.
type fakeConn struct {
	mu         sync.Mutex
	messages   []Envelope
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("connection closed")
	}
	c.messages = append(c.messages, v.(Envelope))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) all() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Envelope(nil), c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// staticSource serves fixed snapshots by job id.
type staticSource struct {
	snaps map[string]jobs.Snapshot
}

func (s *staticSource) Get(id string) (jobs.Snapshot, error) {
	snap, ok := s.snaps[id]
	if !ok {
		return jobs.Snapshot{}, jobs.ErrNotFound
	}
	return snap, nil
}

func snapshotFor(jobID string, progress float64) jobs.Snapshot {
	return jobs.Snapshot{
		JobID:         jobID,
		Status:        jobs.StatusProcessing,
		Progress:      progress,
		AgentStatuses: map[string]jobs.AgentStatus{"claude": jobs.AgentProcessing},
	}
}

// waitFor polls the connection until the predicate holds.
func waitFor(t *testing.T, conn *fakeConn, pred func([]Envelope) bool) []Envelope {
	t.Helper()
	var got []Envelope
	require.Eventually(t, func() bool {
		got = conn.all()
		return pred(got)
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestHubSubscribeAckAndSnapshot(t *testing.T) {
	source := &staticSource{snaps: map[string]jobs.Snapshot{
		"job-1": snapshotFor("job-1", 0.5),
	}}
	hub := NewHub(source)

	conn := &fakeConn{}
	client := hub.Register(conn)
	defer hub.Unregister(client)

	hub.Subscribe(client, "job-1")

	got := waitFor(t, conn, func(msgs []Envelope) bool { return len(msgs) >= 2 })
	assert.Equal(t, MessageSubscribed, got[0].Type)
	assert.Equal(t, "job-1", got[0].JobID)
	// A late subscriber receives the current state, not just future deltas.
	assert.Equal(t, MessageUpdate, got[1].Type)
	require.NotNil(t, got[1].Data)
	assert.Equal(t, 0.5, got[1].Data.Progress)
	assert.NotEmpty(t, got[1].Timestamp)
}

func TestHubSubscribeUnknownJobAcksWithoutSnapshot(t *testing.T) {
	hub := NewHub(&staticSource{snaps: map[string]jobs.Snapshot{}})

	conn := &fakeConn{}
	client := hub.Register(conn)
	defer hub.Unregister(client)

	hub.Subscribe(client, "ghost")

	got := waitFor(t, conn, func(msgs []Envelope) bool { return len(msgs) >= 1 })
	assert.Equal(t, MessageSubscribed, got[0].Type)
	assert.Len(t, got, 1)
}

func TestHubPublishFanOut(t *testing.T) {
	hub := NewHub(nil)

	connA := &fakeConn{}
	connB := &fakeConn{}
	clientA := hub.Register(connA)
	clientB := hub.Register(connB)
	defer hub.Unregister(clientA)
	defer hub.Unregister(clientB)

	hub.Subscribe(clientA, "job-1")
	hub.Subscribe(clientB, "job-1")

	hub.Publish("job-1", snapshotFor("job-1", 0.3))

	for _, conn := range []*fakeConn{connA, connB} {
		got := waitFor(t, conn, func(msgs []Envelope) bool { return len(msgs) >= 2 })
		assert.Equal(t, MessageUpdate, got[1].Type)
		assert.Equal(t, 0.3, got[1].Data.Progress)
	}
}

func TestHubSubscriberIsolation(t *testing.T) {
	hub := NewHub(nil)

	connA := &fakeConn{}
	connB := &fakeConn{}
	clientA := hub.Register(connA)
	clientB := hub.Register(connB)
	defer hub.Unregister(clientA)
	defer hub.Unregister(clientB)

	hub.Subscribe(clientA, "job-a")
	hub.Subscribe(clientB, "job-b")

	hub.Publish("job-b", snapshotFor("job-b", 0.7))

	got := waitFor(t, connB, func(msgs []Envelope) bool { return len(msgs) >= 2 })
	assert.Equal(t, "job-b", got[1].JobID)

	// Client A only ever saw its subscription ack.
	for _, msg := range connA.all() {
		assert.NotEqual(t, "job-b", msg.JobID)
	}
}

func TestHubPerSubscriberOrdering(t *testing.T) {
	hub := NewHub(nil)

	conn := &fakeConn{}
	client := hub.Register(conn)
	defer hub.Unregister(client)

	hub.Subscribe(client, "job-1")
	for i := 1; i <= 5; i++ {
		hub.Publish("job-1", snapshotFor("job-1", float64(i)/10))
	}

	got := waitFor(t, conn, func(msgs []Envelope) bool { return len(msgs) >= 6 })
	for i := 1; i <= 5; i++ {
		assert.Equal(t, float64(i)/10, got[i].Data.Progress)
	}
}

func TestHubLastSubscribeWins(t *testing.T) {
	hub := NewHub(nil)

	conn := &fakeConn{}
	client := hub.Register(conn)
	defer hub.Unregister(client)

	hub.Subscribe(client, "job-1")
	hub.Subscribe(client, "job-2")

	assert.Equal(t, 0, hub.Subscribers("job-1"))
	assert.Equal(t, 1, hub.Subscribers("job-2"))
	// The empty job-1 entry was removed, not left behind.
	assert.Equal(t, 1, hub.TrackedJobs())

	hub.Publish("job-1", snapshotFor("job-1", 0.9))
	hub.Publish("job-2", snapshotFor("job-2", 0.4))

	got := waitFor(t, conn, func(msgs []Envelope) bool {
		return len(msgs) >= 3
	})
	last := got[len(got)-1]
	assert.Equal(t, "job-2", last.JobID)
}

func TestHubCleanupOnUnregister(t *testing.T) {
	hub := NewHub(nil)

	conn := &fakeConn{}
	client := hub.Register(conn)
	hub.Subscribe(client, "job-1")
	require.Equal(t, 1, hub.Subscribers("job-1"))

	hub.Unregister(client)

	assert.Equal(t, 0, hub.Subscribers("job-1"))
	assert.Equal(t, 0, hub.TrackedJobs())
	assert.True(t, conn.isClosed())

	// Unregistering twice is harmless.
	hub.Unregister(client)
}

func TestHubSubscribeAfterWriterDeath(t *testing.T) {
	hub := NewHub(nil)

	conn := &fakeConn{failWrites: true}
	client := hub.Register(conn)

	// The subscription ack fails to write, so the writer unregisters the
	// client and its send channel is closed.
	hub.Subscribe(client, "job-1")
	require.Eventually(t, func() bool {
		return hub.Subscribers("job-1") == 0
	}, 2*time.Second, 5*time.Millisecond)

	// The read loop may still deliver a subscribe that raced the writer's
	// death; it must be dropped, not re-attach the dead client.
	hub.Subscribe(client, "job-1")

	assert.Equal(t, 0, hub.Subscribers("job-1"))
	assert.Equal(t, 0, hub.TrackedJobs())

	// Publishing afterwards reaches nobody and does not panic either.
	hub.Publish("job-1", snapshotFor("job-1", 0.5))
}

func TestHubReapsDeadConnectionOnPublish(t *testing.T) {
	hub := NewHub(nil)

	conn := &fakeConn{failWrites: true}
	client := hub.Register(conn)
	hub.Subscribe(client, "job-1")

	hub.Publish("job-1", snapshotFor("job-1", 0.2))

	// The failed write makes the writer unregister the client.
	require.Eventually(t, func() bool {
		return hub.Subscribers("job-1") == 0 && hub.TrackedJobs() == 0
	}, 2*time.Second, 5*time.Millisecond)
}
