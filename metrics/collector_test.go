package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("mesh.example", "fs")

	c.IncRequest()
	c.IncRequest()
	c.IncRequest()
	c.RecordResponse(200)
	c.RecordResponse(206)
	c.RecordResponse(403)
	c.RecordResponse(503)
	c.IncTransportError()
	c.IncHandshakeAttempt()
	c.IncHandshakeAttempt()
	c.IncHandshakeRetry()
	c.IncHandshakeFailure()
	c.AddChunkSent(100)
	c.AddChunkSent(50)
	c.AddChunkReceived(70)
	c.IncMessageSent()
	c.IncMessageReceived()
	c.IncMessageAcknowledged()
	c.IncTransferFailure()
	c.IncArchiveWriteSuccess()
	c.IncArchiveWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name      string
		got, want int64
	}{
		{"Requests", s.Requests, 3},
		{"ResponsesComplete", s.ResponsesComplete, 1},
		{"ResponsesPartial", s.ResponsesPartial, 1},
		{"ResponsesFailed", s.ResponsesFailed, 2},
		{"TransportErrors", s.TransportErrors, 1},
		{"HandshakeAttempts", s.HandshakeAttempts, 2},
		{"HandshakeRetries", s.HandshakeRetries, 1},
		{"HandshakeFailures", s.HandshakeFailures, 1},
		{"ChunksSent", s.ChunksSent, 2},
		{"BytesSent", s.BytesSent, 150},
		{"ChunksReceived", s.ChunksReceived, 1},
		{"BytesReceived", s.BytesReceived, 70},
		{"MessagesSent", s.MessagesSent, 1},
		{"MessagesReceived", s.MessagesReceived, 1},
		{"MessagesAcknowledged", s.MessagesAcknowledged, 1},
		{"TransferFailures", s.TransferFailures, 1},
		{"ArchiveWriteSuccess", s.ArchiveWriteSuccess, 1},
		{"ArchiveWriteFailure", s.ArchiveWriteFailure, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("mesh.example", "s3")
	s := c.Snapshot()

	if s.Environment != "mesh.example" {
		t.Errorf("Environment = %q, want %q", s.Environment, "mesh.example")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
}

func TestCollector_NilReceiver(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncRequest()
	c.RecordResponse(200)
	c.IncHandshakeAttempt()
	c.AddChunkSent(10)
	c.IncArchiveWriteFailure()

	if s := c.Snapshot(); s.Requests != 0 {
		t.Errorf("nil collector snapshot should be zero, got %+v", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("mesh.example", "")
	c.IncRequest()

	s1 := c.Snapshot()
	c.IncRequest()

	if s1.Requests != 1 {
		t.Errorf("snapshot mutated after collector update: %d", s1.Requests)
	}
	if c.Snapshot().Requests != 2 {
		t.Errorf("expected 2 requests, got %d", c.Snapshot().Requests)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("mesh.example", "")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.IncRequest()
				c.AddChunkReceived(1)
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.Requests != 1000 {
		t.Errorf("Requests = %d, want 1000", s.Requests)
	}
	if s.BytesReceived != 1000 {
		t.Errorf("BytesReceived = %d, want 1000", s.BytesReceived)
	}
}
