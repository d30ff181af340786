package iox

import (
	"errors"
	"strings"
	"testing"
)

type spyCloser struct{ closed bool }

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDiscardErr(t *testing.T) {
	called := false
	DiscardErr(func() error {
		called = true
		return errors.New("ignored")
	})
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestReadBounded(t *testing.T) {
	data, err := ReadBounded(strings.NewReader("12345"), 5)
	if err != nil {
		t.Fatalf("ReadBounded failed: %v", err)
	}
	if string(data) != "12345" {
		t.Errorf("expected 12345, got %q", data)
	}

	if _, err := ReadBounded(strings.NewReader("123456"), 5); err == nil {
		t.Error("expected error when body exceeds limit")
	}
}
