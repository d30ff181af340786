package main

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitErrHandler_NilError(t *testing.T) {
	// Should not panic or exit on nil error
	exitErrHandler(nil, nil)
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{
			name:     "exit code 0 no message",
			err:      cli.Exit("", 0),
			wantCode: 0,
			wantOut:  "",
		},
		{
			name:     "failure outcome",
			err:      cli.Exit("mesh failure: 403 forbidden", 1),
			wantCode: 1,
			wantOut:  "mesh failure: 403 forbidden\n",
		},
		{
			name:     "usage error",
			err:      cli.Exit("invalid config: base_url is required", 2),
			wantCode: 2,
			wantOut:  "invalid config: base_url is required\n",
		},
		{
			name:     "silent failure",
			err:      cli.Exit("", 1),
			wantCode: 1,
			wantOut:  "",
		},
		{
			name:     "wrapped exit coder",
			err:      fmt.Errorf("fetch: %w", cli.Exit("boom", 2)),
			wantCode: 2,
			wantOut:  "boom\n",
		},
		{
			name:     "plain error",
			err:      errors.New("unexpected"),
			wantCode: 1,
			wantOut:  "Error: unexpected\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if code := report(&buf, tt.err); code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}
