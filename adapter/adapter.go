// Package adapter defines the boundary for notifying downstream systems
// about completed transfers.
//
// Adapters publish one TransferEvent per message sent or fetched. The
// CLI owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"
)

// Event types.
const (
	EventMessageSent     = "message_sent"
	EventMessageReceived = "message_received"
)

// DefaultBackoff is the base delay between publish retries. The delay
// doubles with every retry.
const DefaultBackoff = 500 * time.Millisecond

// TransferEvent is the payload published after a transfer completes.
type TransferEvent struct {
	EventType    string `json:"event_type"` // message_sent or message_received
	MessageID    string `json:"message_id"`
	MailboxID    string `json:"mailbox_id"` // the local mailbox
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	WorkflowID   string `json:"workflow_id,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	LocalID      string `json:"local_id,omitempty"`
	Bytes        int    `json:"bytes"`
	Chunks       int    `json:"chunks"`
	ArchivePath  string `json:"archive_path,omitempty"`
	Acknowledged bool   `json:"acknowledged"`
	Timestamp    string `json:"timestamp"` // RFC 3339
	DurationMs   int64  `json:"duration_ms"`
}

// Adapter publishes transfer events to a downstream system.
type Adapter interface {
	// Publish sends a transfer event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *TransferEvent) error

	// Close releases adapter resources.
	Close() error
}

// Backoff returns the delay before retry attempt i (i >= 1).
func Backoff(base time.Duration, i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * base //nolint:gosec // i is a small retry index
}
