package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/meshclient/types"
)

func TestSign_KnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		nonce string
		count int
		want  string
	}{
		{
			name:  "uuid nonce count zero",
			nonce: "4f8e2a10-5b7c-4d3e-9a1f-0c2b3d4e5f60",
			count: 0,
			want: "NHSMESH X26ABC1:4f8e2a10-5b7c-4d3e-9a1f-0c2b3d4e5f60:0:202401010000:" +
				"d4fbbb9d09c1e9eedc891c36c0c78777d8ae0e93dce97144df59c43c61450b7e",
		},
		{
			name:  "short nonce count three",
			nonce: "nonce-1",
			count: 3,
			want: "NHSMESH X26ABC1:nonce-1:3:202401010000:" +
				"d9ce1958567e519a67333a8ba56c7f85c893ddd2c9d3edfc59d0bdc90f0e64f0",
		},
	}

	s := NewSigner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Sign("X26ABC1", "password", "TestKey",
				WithNonce(tt.nonce), WithNonceCount(tt.count), WithTimestamp("202401010000"))
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Sign() =\n  %q\nwant\n  %q", got, tt.want)
			}
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	s := NewSigner()
	opts := []SignOption{WithNonce("n"), WithTimestamp("202401010000")}
	a, _ := s.Sign("X26ABC1", "password", "TestKey", opts...)
	b, _ := s.Sign("X26ABC1", "password", "TestKey", opts...)
	if a != b {
		t.Errorf("expected identical headers, got %q and %q", a, b)
	}
}

func TestSign_Defaults(t *testing.T) {
	fixed := time.Date(2024, 3, 5, 17, 4, 59, 0, time.FixedZone("X", 2*3600))
	s := NewSigner(
		WithClock(func() time.Time { return fixed }),
		WithNonceSource(func() string { return "fixed-nonce" }),
	)

	got, err := s.Sign("X26ABC1", "password", "TestKey")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	// 17:04 at UTC+2 is 15:04 UTC
	wantPrefix := "NHSMESH X26ABC1:fixed-nonce:0:202403051504:"
	if !strings.HasPrefix(got, wantPrefix) {
		t.Errorf("expected prefix %q, got %q", wantPrefix, got)
	}
}

func TestSign_RandomNonce(t *testing.T) {
	s := NewSigner()
	got, err := s.Sign("X26ABC1", "password", "TestKey")
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	parts := strings.Split(strings.TrimPrefix(got, Scheme+" "), ":")
	if len(parts) != 5 {
		t.Fatalf("expected 5 header parts, got %d in %q", len(parts), got)
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		t.Errorf("expected uuid nonce, got %q", parts[1])
	}
	if len(parts[3]) != len(TimestampLayout) {
		t.Errorf("expected %d-digit timestamp, got %q", len(TimestampLayout), parts[3])
	}
	if len(parts[4]) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(parts[4]))
	}
}

func TestSign_InvalidArguments(t *testing.T) {
	tests := []struct {
		name      string
		mailboxID string
		password  string
		wantParam string
	}{
		{name: "empty mailbox", mailboxID: "", password: "password", wantParam: "mailboxID"},
		{name: "empty password", mailboxID: "X26ABC1", password: "", wantParam: "password"},
	}

	s := NewSigner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Sign(tt.mailboxID, tt.password, "TestKey")
			if !errors.Is(err, types.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			var argErr *types.ArgumentError
			if !errors.As(err, &argErr) || argErr.Param != tt.wantParam {
				t.Errorf("expected param %q, got %v", tt.wantParam, err)
			}
		})
	}
}
