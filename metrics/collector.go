// Package metrics provides transfer counters for a client process.
//
// The Collector accumulates counters across every transfer the process
// runs. It is a leaf package with no internal dependencies: callers pass
// HTTP status codes and byte counts rather than protocol types.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// HTTP round trips
	Requests          int64 `json:"requests"`
	ResponsesComplete int64 `json:"responses_complete"`
	ResponsesPartial  int64 `json:"responses_partial"`
	ResponsesFailed   int64 `json:"responses_failed"`
	TransportErrors   int64 `json:"transport_errors"`

	// Handshake
	HandshakeAttempts int64 `json:"handshake_attempts"`
	HandshakeRetries  int64 `json:"handshake_retries"`
	HandshakeFailures int64 `json:"handshake_failures"`

	// Transfers
	ChunksSent           int64 `json:"chunks_sent"`
	ChunksReceived       int64 `json:"chunks_received"`
	MessagesSent         int64 `json:"messages_sent"`
	MessagesReceived     int64 `json:"messages_received"`
	MessagesAcknowledged int64 `json:"messages_acknowledged"`
	TransferFailures     int64 `json:"transfer_failures"`
	BytesSent            int64 `json:"bytes_sent"`
	BytesReceived        int64 `json:"bytes_received"`

	// Archive
	ArchiveWriteSuccess int64 `json:"archive_write_success"`
	ArchiveWriteFailure int64 `json:"archive_write_failure"`

	// Dimensions (informational, set at construction)
	Environment    string `json:"environment"`
	StorageBackend string `json:"storage_backend,omitempty"`
}

// Collector accumulates counters for the lifetime of a client.
// Thread-safe via sync.Mutex. All methods are nil-receiver safe, so
// components accept a nil *Collector when metrics are not wanted.
type Collector struct {
	mu sync.Mutex
	s  Snapshot
}

// NewCollector creates a Collector with dimension labels.
// environment is typically the base URL host; storageBackend is optional.
func NewCollector(environment, storageBackend string) *Collector {
	return &Collector{s: Snapshot{Environment: environment, StorageBackend: storageBackend}}
}

func (c *Collector) update(fn func(s *Snapshot)) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn(&c.s)
	c.mu.Unlock()
}

// --- HTTP round trips ---

// IncRequest records one signed request handed to the transport.
func (c *Collector) IncRequest() { c.update(func(s *Snapshot) { s.Requests++ }) }

// RecordResponse classifies a received response by status code.
func (c *Collector) RecordResponse(status int) {
	c.update(func(s *Snapshot) {
		switch status {
		case 200:
			s.ResponsesComplete++
		case 206:
			s.ResponsesPartial++
		default:
			s.ResponsesFailed++
		}
	})
}

// IncTransportError records a request that produced no response.
func (c *Collector) IncTransportError() { c.update(func(s *Snapshot) { s.TransportErrors++ }) }

// --- Handshake ---

// IncHandshakeAttempt records one handshake round trip.
func (c *Collector) IncHandshakeAttempt() { c.update(func(s *Snapshot) { s.HandshakeAttempts++ }) }

// IncHandshakeRetry records a retry after a transient handshake failure.
func (c *Collector) IncHandshakeRetry() { c.update(func(s *Snapshot) { s.HandshakeRetries++ }) }

// IncHandshakeFailure records a handshake that ended in failure.
func (c *Collector) IncHandshakeFailure() { c.update(func(s *Snapshot) { s.HandshakeFailures++ }) }

// --- Transfers ---

// AddChunkSent records one chunk upload of n bytes on the wire.
func (c *Collector) AddChunkSent(n int) {
	c.update(func(s *Snapshot) {
		s.ChunksSent++
		s.BytesSent += int64(n)
	})
}

// AddChunkReceived records one chunk download of n bytes on the wire.
func (c *Collector) AddChunkReceived(n int) {
	c.update(func(s *Snapshot) {
		s.ChunksReceived++
		s.BytesReceived += int64(n)
	})
}

// IncMessageSent records a completed outbound message.
func (c *Collector) IncMessageSent() { c.update(func(s *Snapshot) { s.MessagesSent++ }) }

// IncMessageReceived records a completed inbound message.
func (c *Collector) IncMessageReceived() { c.update(func(s *Snapshot) { s.MessagesReceived++ }) }

// IncMessageAcknowledged records an acknowledged message.
func (c *Collector) IncMessageAcknowledged() {
	c.update(func(s *Snapshot) { s.MessagesAcknowledged++ })
}

// IncTransferFailure records a transfer that ended in a Failure outcome.
func (c *Collector) IncTransferFailure() { c.update(func(s *Snapshot) { s.TransferFailures++ }) }

// --- Archive ---
// Archive counters are per message, not per object: the payload and its
// metadata sidecar count as one write.

// IncArchiveWriteSuccess records a successful archive write.
func (c *Collector) IncArchiveWriteSuccess() {
	c.update(func(s *Snapshot) { s.ArchiveWriteSuccess++ })
}

// IncArchiveWriteFailure records a failed archive write.
func (c *Collector) IncArchiveWriteFailure() {
	c.update(func(s *Snapshot) { s.ArchiveWriteFailure++ })
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
