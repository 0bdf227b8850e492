// Package notify fans job status updates out to subscribed websocket
// clients. Delivery is fire-and-forget: no persistence, no replay, no
// acknowledgment tracking.
package notify

import (
	"sync"
	"time"

	"github.com/deepcritic/deepcritic/internal/jobs"
	"github.com/deepcritic/deepcritic/internal/logger"
)

// Message types exchanged on the websocket channel
const (
	// MessageSubscribe is sent by a client to start tracking a job
	MessageSubscribe = "subscribe"
	// MessageSubscribed acknowledges a subscription
	MessageSubscribed = "subscribed"
	// MessageUpdate carries a job status snapshot
	MessageUpdate = "update"
)

// Envelope is the wire format for outbound websocket messages.
type Envelope struct {
	Type      string         `json:"type"`
	JobID     string         `json:"jobId"`
	Data      *jobs.Snapshot `json:"data,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// SnapshotSource supplies the current state of a job so a late subscriber
// receives it immediately instead of waiting for the next change.
type SnapshotSource interface {
	Get(id string) (jobs.Snapshot, error)
}

// Hub tracks which clients are subscribed to which job ids and fans
// published snapshots out to them. A client holds at most one subscription;
// subscribing again moves it (last subscribe wins).
//
// All subscriber bookkeeping, including closing a client's send channel,
// happens under the hub mutex; that is what makes enqueueing safe.
type Hub struct {
	mu        sync.Mutex
	jobs      map[string]map[*Client]struct{}
	clientJob map[*Client]string
	source    SnapshotSource
}

// NewHub creates a hub that serves snapshots from source on subscribe.
func NewHub(source SnapshotSource) *Hub {
	return &Hub{
		jobs:      make(map[string]map[*Client]struct{}),
		clientJob: make(map[*Client]string),
		source:    source,
	}
}

// Register wraps a connection in a client and starts its writer. The caller
// must Unregister the client when the connection ends.
func (h *Hub) Register(conn Conn) *Client {
	client := &Client{hub: h, conn: conn, send: make(chan interface{}, sendBuffer)}
	go client.writePump()
	return client
}

// Unregister removes the client's subscription, if any, and shuts it down.
// When the client was the last subscriber of a job, the job's tracking entry
// is removed so the registry never grows without bound. Safe to call more
// than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(client)
	client.closed = true
	client.close()
}

// Subscribe registers the client's interest in a job, replacing any previous
// subscription. The client receives a subscription acknowledgment followed
// by the job's current snapshot when the job is known. Subscribing to the
// same job twice is a no-op beyond a fresh acknowledgment.
//
// A client whose writer already died is ignored: its read loop may still be
// delivering a message that raced the unregistration.
func (h *Hub) Subscribe(client *Client, jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.closed {
		return
	}

	if h.clientJob[client] != jobID {
		h.detach(client)
		set, ok := h.jobs[jobID]
		if !ok {
			set = make(map[*Client]struct{})
			h.jobs[jobID] = set
		}
		set[client] = struct{}{}
		h.clientJob[client] = jobID
	}

	client.enqueue(Envelope{Type: MessageSubscribed, JobID: jobID})

	if h.source != nil {
		if snap, err := h.source.Get(jobID); err == nil {
			client.enqueue(updateEnvelope(jobID, snap))
		}
	}

	logger.Debugf("websocket client subscribed to job %s", jobID)
}

// Publish delivers the snapshot to every client currently subscribed to the
// job. Per client the hub preserves publish order for a given job; across
// clients and jobs there is no ordering guarantee.
func (h *Hub) Publish(jobID string, snap jobs.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.jobs[jobID]
	if !ok {
		return
	}
	msg := updateEnvelope(jobID, snap)
	for client := range set {
		client.enqueue(msg)
	}
}

// Subscribers returns the number of clients subscribed to the job.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.jobs[jobID])
}

// TrackedJobs returns the number of jobs with at least one subscriber.
func (h *Hub) TrackedJobs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.jobs)
}

// detach removes the client from the subscriber maps. Caller holds the lock.
func (h *Hub) detach(client *Client) {
	jobID, ok := h.clientJob[client]
	if !ok {
		return
	}
	delete(h.clientJob, client)
	if set, ok := h.jobs[jobID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.jobs, jobID)
		}
	}
}

func updateEnvelope(jobID string, snap jobs.Snapshot) Envelope {
	return Envelope{
		Type:      MessageUpdate,
		JobID:     jobID,
		Data:      &snap,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
