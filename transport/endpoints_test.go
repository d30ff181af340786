package transport

import "testing"

func TestEndpoints(t *testing.T) {
	e, err := NewEndpoints("https://mesh.example/messageexchange/", Paths{})
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}

	base := "https://mesh.example/messageexchange"
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"handshake", e.Handshake("X26ABC1"), base + "/X26ABC1"},
		{"inbox", e.Inbox("X26ABC1"), base + "/X26ABC1/inbox"},
		{"message", e.Message("X26ABC1", "M1"), base + "/X26ABC1/inbox/M1"},
		{"message chunk", e.MessageChunk("X26ABC1", "M1", 2), base + "/X26ABC1/inbox/M1/2"},
		{"acknowledge", e.Acknowledge("X26ABC1", "M1"), base + "/X26ABC1/inbox/M1/status/acknowledged"},
		{"outbox", e.Outbox("X26ABC1"), base + "/X26ABC1/outbox"},
		{"outbox chunk", e.OutboxChunk("X26ABC1", "M1", 3), base + "/X26ABC1/outbox/M1/3"},
		{"track", e.Track("X26ABC1", "M1"), base + "/X26ABC1/outbox/tracking/M1"},
		{"escaped id", e.Message("X26ABC1", "a/b"), base + "/X26ABC1/inbox/a%2Fb"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestEndpoints_CustomPaths(t *testing.T) {
	e, err := NewEndpoints("http://localhost:8700", Paths{Inbox: "in", Acknowledge: "ack"})
	if err != nil {
		t.Fatalf("NewEndpoints failed: %v", err)
	}
	if got, want := e.Acknowledge("A", "M"), "http://localhost:8700/A/in/M/ack"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := e.Outbox("A"), "http://localhost:8700/A/outbox"; got != want {
		t.Errorf("default outbox: got %q, want %q", got, want)
	}
}

func TestNewEndpoints_Invalid(t *testing.T) {
	for _, base := range []string{"", "mesh.example", "ftp://mesh.example", "https://"} {
		if _, err := NewEndpoints(base, Paths{}); err == nil {
			t.Errorf("NewEndpoints(%q): expected error", base)
		}
	}
}
