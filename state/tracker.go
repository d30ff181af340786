// Package state remembers which inbound messages have already been
// processed, so repeated fetches skip them.
//
// FileTracker keeps an append-only log of length-prefixed msgpack
// records in <dir>/processed.msgpack and replays it on open. A torn
// final record, left by a process that died mid-append, is discarded.
package state

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/pithecene-io/meshclient/types"
)

// FileName is the log file created inside the state directory.
const FileName = "processed.msgpack"

// Record marks one processed message.
type Record struct {
	MessageID   string `msgpack:"message_id" json:"message_id"`
	MailboxID   string `msgpack:"mailbox_id" json:"mailbox_id"`
	ProcessedAt int64  `msgpack:"processed_at" json:"processed_at"`
}

// Tracker records processed message ids.
type Tracker interface {
	AlreadyProcessed(messageID string) bool
	MarkProcessed(messageID, mailboxID string) error
	Snapshot() []Record
}

// MemoryTracker is a Tracker that forgets everything on exit.
type MemoryTracker struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryTracker creates an empty MemoryTracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{records: make(map[string]Record), now: time.Now}
}

// AlreadyProcessed reports whether messageID has been marked.
func (t *MemoryTracker) AlreadyProcessed(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[messageID]
	return ok
}

// MarkProcessed records messageID. Marking twice is a no-op.
func (t *MemoryTracker) MarkProcessed(messageID, mailboxID string) error {
	if err := requireIDs(messageID, mailboxID); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.records[messageID]; !ok {
		t.records[messageID] = Record{MessageID: messageID, MailboxID: mailboxID, ProcessedAt: t.now().Unix()}
	}
	return nil
}

// Snapshot returns every record ordered by message id.
func (t *MemoryTracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sorted(t.records)
}

// FileTracker is a Tracker persisted to disk.
type FileTracker struct {
	mem  *MemoryTracker
	mu   sync.Mutex // serializes appends
	file *os.File
}

// Open opens (creating if needed) the tracker log in dir and replays it.
func Open(dir string) (*FileTracker, error) {
	if err := types.RequireNonEmpty("dir", dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //nolint:gosec // path is operator configured
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}

	mem := NewMemoryTracker()
	good, err := replay(f, mem)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	if err := f.Truncate(good); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate %s: %w", path, err)
	}
	if _, err := f.Seek(good, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("seek %s: %w", path, err)
	}
	return &FileTracker{mem: mem, file: f}, nil
}

// replay loads every complete record and returns the offset just past
// the last one.
func replay(f *os.File, mem *MemoryTracker) (int64, error) {
	r := bufio.NewReader(f)
	var offset int64
	for {
		rec, n, err := readFrame(r)
		if errors.Is(err, io.EOF) {
			return offset, nil
		}
		if isTruncation(err) {
			return offset, nil
		}
		if err != nil {
			return offset, err
		}
		if _, ok := mem.records[rec.MessageID]; !ok {
			mem.records[rec.MessageID] = rec
		}
		offset += int64(n)
	}
}

// AlreadyProcessed reports whether messageID has been marked.
func (t *FileTracker) AlreadyProcessed(messageID string) bool {
	return t.mem.AlreadyProcessed(messageID)
}

// MarkProcessed appends a record for messageID and syncs it to disk.
// Marking twice is a no-op.
func (t *FileTracker) MarkProcessed(messageID, mailboxID string) error {
	if err := requireIDs(messageID, mailboxID); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mem.AlreadyProcessed(messageID) {
		return nil
	}
	rec := Record{MessageID: messageID, MailboxID: mailboxID, ProcessedAt: t.mem.now().Unix()}
	frame, err := encodeFrame(rec)
	if err != nil {
		return err
	}
	if _, err := t.file.Write(frame); err != nil {
		return fmt.Errorf("append state record: %w", err)
	}
	if err := t.file.Sync(); err != nil {
		return fmt.Errorf("sync state file: %w", err)
	}

	t.mem.mu.Lock()
	t.mem.records[messageID] = rec
	t.mem.mu.Unlock()
	return nil
}

// Snapshot returns every record ordered by message id.
func (t *FileTracker) Snapshot() []Record {
	return t.mem.Snapshot()
}

// Close closes the log file.
func (t *FileTracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

func requireIDs(messageID, mailboxID string) error {
	if err := types.RequireNonEmpty("messageID", messageID); err != nil {
		return err
	}
	return types.RequireNonEmpty("mailboxID", mailboxID)
}

func sorted(m map[string]Record) []Record {
	out := make([]Record, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Record) int { return cmp.Compare(a.MessageID, b.MessageID) })
	return out
}

var (
	_ Tracker = (*MemoryTracker)(nil)
	_ Tracker = (*FileTracker)(nil)
)
