package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pithecene-io/meshclient/iox"
	"github.com/pithecene-io/meshclient/types"
)

func TestMemoryTracker(t *testing.T) {
	tr := NewMemoryTracker()
	if tr.AlreadyProcessed("M1") {
		t.Fatal("fresh tracker reports M1 processed")
	}
	if err := tr.MarkProcessed("M1", "X26ABC2"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	if err := tr.MarkProcessed("M1", "X26ABC2"); err != nil {
		t.Fatalf("second MarkProcessed failed: %v", err)
	}
	if !tr.AlreadyProcessed("M1") {
		t.Error("expected M1 processed")
	}
	if n := len(tr.Snapshot()); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
}

func TestFileTracker_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for _, id := range []string{"M2", "M1", "M2"} {
		if err := tr.MarkProcessed(id, "X26ABC2"); err != nil {
			t.Fatalf("MarkProcessed(%s) failed: %v", id, err)
		}
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(reopened))

	snap := reopened.Snapshot()
	if len(snap) != 2 || snap[0].MessageID != "M1" || snap[1].MessageID != "M2" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap[0].MailboxID != "X26ABC2" || snap[0].ProcessedAt == 0 {
		t.Errorf("record fields not restored: %+v", snap[0])
	}
	if !reopened.AlreadyProcessed("M1") || reopened.AlreadyProcessed("M3") {
		t.Error("AlreadyProcessed does not reflect replayed log")
	}
}

func TestFileTracker_DiscardsTornRecord(t *testing.T) {
	dir := t.TempDir()
	tr, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := tr.MarkProcessed("M1", "X26ABC2"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	_ = tr.Close()

	path := filepath.Join(dir, FileName)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	good := info.Size()

	// Half of a second record: a length prefix promising more than follows.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := f.Write([]byte{0, 0, 0, 40, 0x81}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	_ = f.Close()

	tr, err = Open(dir)
	if err != nil {
		t.Fatalf("Open with torn tail failed: %v", err)
	}
	if err := tr.MarkProcessed("M2", "X26ABC2"); err != nil {
		t.Fatalf("MarkProcessed after recovery failed: %v", err)
	}
	_ = tr.Close()

	tr, err = Open(dir)
	if err != nil {
		t.Fatalf("final Open failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(tr))
	if !tr.AlreadyProcessed("M1") || !tr.AlreadyProcessed("M2") {
		t.Errorf("expected M1 and M2 after recovery, got %+v", tr.Snapshot())
	}
	if info, _ := os.Stat(path); info.Size() <= good {
		t.Errorf("expected the log to grow past %d bytes, got %d", good, info.Size())
	}
}

func TestFileTracker_CorruptRecord(t *testing.T) {
	dir := t.TempDir()
	// A complete frame whose payload is not a msgpack map.
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte{0, 0, 0, 1, 0xc1}, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := Open(dir)
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Kind != FrameErrorDecode {
		t.Errorf("expected decode FrameError, got %v", err)
	}
}

func TestFileTracker_OversizedRecord(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte{0xff, 0, 0, 0}, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := Open(dir)
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Kind != FrameErrorTooLarge {
		t.Errorf("expected too-large FrameError, got %v", err)
	}
}

func TestInvalidArguments(t *testing.T) {
	if _, err := Open(""); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("Open(\"\"): expected ErrInvalidArgument, got %v", err)
	}

	tr, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(iox.CloseFunc(tr))

	trackers := map[string]Tracker{"memory": NewMemoryTracker(), "file": tr}
	for name, tracker := range trackers {
		if err := tracker.MarkProcessed("", "X26ABC2"); !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("%s: empty message id: expected ErrInvalidArgument, got %v", name, err)
		}
		if err := tracker.MarkProcessed("M1", ""); !errors.Is(err, types.ErrInvalidArgument) {
			t.Errorf("%s: empty mailbox: expected ErrInvalidArgument, got %v", name, err)
		}
	}
}
