package adapter

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := Backoff(base, i+1); got != w {
			t.Errorf("Backoff(%v, %d) = %v, want %v", base, i+1, got, w)
		}
	}
}

func TestTransferEvent_JSONShape(t *testing.T) {
	data, err := json.Marshal(&TransferEvent{EventType: EventMessageSent, MessageID: "M1", MailboxID: "X26ABC1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"event_type", "message_id", "mailbox_id", "bytes", "chunks", "acknowledged", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if _, ok := fields["archive_path"]; ok {
		t.Errorf("empty archive_path should be omitted: %s", data)
	}
}
