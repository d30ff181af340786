package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/meshclient/chunk"
	"github.com/pithecene-io/meshclient/transport"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `base_url: https://mesh.example.com/messageexchange
paths:
  inbox: inbox
  acknowledge: status/acknowledged
timeout: 45s
max_retries: 5
retry_backoff: 250ms
chunk_size: 1048576
bypass_server_cert_validation: true
proxy:
  enabled: true
  address: http://proxy.example.com:3128
log_level: debug

mailboxes:
  X26ABC1:
    password: secret1
    shared_key: TestKey
    cert_file: /etc/mesh/x26abc1.crt
    key_file: /etc/mesh/x26abc1.key
  X26ABC2:
    password: secret2
    shared_key: TestKey

archive:
  backend: s3
  path: my-bucket/mesh
  region: eu-west-2
  endpoint: https://s3.example.com
  s3_path_style: true

state_dir: /var/lib/meshclient

adapter:
  type: webhook
  url: https://hooks.example.com/mesh
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "base_url", cfg.BaseURL, "https://mesh.example.com/messageexchange")
	assertEqual(t, "paths.inbox", cfg.Paths.Inbox, "inbox")
	assertEqual(t, "log_level", cfg.LogLevel, "debug")
	assertEqual(t, "state_dir", cfg.StateDir, "/var/lib/meshclient")
	if cfg.Timeout.Duration != 45*time.Second {
		t.Errorf("timeout: got %v", cfg.Timeout.Duration)
	}
	if cfg.MaxRetries == nil || *cfg.MaxRetries != 5 {
		t.Errorf("max_retries: got %v", cfg.MaxRetries)
	}
	if cfg.RetryBackoff.Duration != 250*time.Millisecond {
		t.Errorf("retry_backoff: got %v", cfg.RetryBackoff.Duration)
	}
	if cfg.ChunkSize != 1<<20 || !cfg.BypassServerCertValidation {
		t.Errorf("chunk_size/bypass: got %d %v", cfg.ChunkSize, cfg.BypassServerCertValidation)
	}
	if !cfg.Proxy.Enabled || cfg.Proxy.Address != "http://proxy.example.com:3128" {
		t.Errorf("proxy: got %+v", cfg.Proxy)
	}

	if got := cfg.MailboxIDs(); len(got) != 2 || got[0] != "X26ABC1" || got[1] != "X26ABC2" {
		t.Errorf("mailboxes: got %v", got)
	}
	mb := cfg.Mailboxes["X26ABC1"]
	assertEqual(t, "password", mb.Password, "secret1")
	assertEqual(t, "shared_key", mb.SharedKey, "TestKey")
	assertEqual(t, "cert_file", mb.CertFile, "/etc/mesh/x26abc1.crt")

	assertEqual(t, "archive.backend", cfg.Archive.Backend, "s3")
	assertEqual(t, "archive.path", cfg.Archive.Path, "my-bucket/mesh")
	assertEqual(t, "archive.region", cfg.Archive.Region, "eu-west-2")
	if !cfg.Archive.S3PathStyle {
		t.Error("archive.s3_path_style: expected true")
	}

	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/mesh")
	assertEqual(t, "adapter.headers", cfg.Adapter.Headers["Authorization"], "Bearer token123")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("adapter.timeout: got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("adapter.retries: got %v", cfg.Adapter.Retries)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	hc := cfg.HTTPConfig()
	if hc.ProxyURL != "http://proxy.example.com:3128" || !hc.InsecureSkipVerify || hc.Timeout != 45*time.Second {
		t.Errorf("HTTPConfig: got %+v", hc)
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout: got %v", cfg.Timeout.Duration)
	}
	if cfg.MaxRetries == nil || *cfg.MaxRetries != 3 {
		t.Errorf("max_retries: got %v", cfg.MaxRetries)
	}
	if cfg.RetryBackoff.Duration != 500*time.Millisecond {
		t.Errorf("retry_backoff: got %v", cfg.RetryBackoff.Duration)
	}
	if cfg.ChunkSize != chunk.DefaultSize {
		t.Errorf("chunk_size: got %d", cfg.ChunkSize)
	}
	if cfg.Paths != transport.DefaultPaths() {
		t.Errorf("paths: got %+v", cfg.Paths)
	}
	assertEqual(t, "log_level", cfg.LogLevel, "info")
}

func TestApplyDefaults_KeepsZeroRetries(t *testing.T) {
	path := writeTemp(t, "max_retries: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.ApplyDefaults()
	if *cfg.MaxRetries != 0 {
		t.Errorf("expected explicit max_retries 0 to survive defaults, got %d", *cfg.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			BaseURL: "https://mesh.example.com",
			Mailboxes: map[string]MailboxConfig{
				"X26ABC1": {Password: "p", SharedKey: "k"},
			},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, "base_url is required"},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://mesh" }, "scheme"},
		{"no mailboxes", func(c *Config) { c.Mailboxes = nil }, "at least one mailbox"},
		{"missing password", func(c *Config) {
			c.Mailboxes["X26ABC2"] = MailboxConfig{SharedKey: "k"}
		}, "X26ABC2: password is required"},
		{"missing shared key", func(c *Config) {
			c.Mailboxes["X26ABC2"] = MailboxConfig{Password: "p"}
		}, "X26ABC2: shared_key is required"},
		{"unpaired cert", func(c *Config) {
			c.Mailboxes["X26ABC1"] = MailboxConfig{Password: "p", SharedKey: "k", CertFile: "a.crt"}
		}, "cert_file and key_file"},
		{"negative retries", func(c *Config) { n := -1; c.MaxRetries = &n }, "max_retries"},
		{"proxy without address", func(c *Config) { c.Proxy.Enabled = true }, "proxy.address"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "loud"},
		{"bad archive backend", func(c *Config) { c.Archive.Backend = "ftp" }, "archive.backend"},
		{"archive without path", func(c *Config) { c.Archive.Backend = "fs" }, "archive.path"},
		{"bad adapter", func(c *Config) { c.Adapter.Type = "kafka" }, "adapter.type"},
		{"adapter without url", func(c *Config) { c.Adapter.Type = "redis" }, "adapter.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{Archive: ArchiveConfig{Backend: "ftp"}}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"base_url", "at least one mailbox", "archive.backend"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestRegistry(t *testing.T) {
	cfg := &Config{Mailboxes: map[string]MailboxConfig{
		"X26ABC2": {Password: "p2", SharedKey: "k"},
		"X26ABC1": {Password: "p1", SharedKey: "k"},
	}}
	reg, err := cfg.Registry()
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if got := reg.IDs(); len(got) != 2 || got[0] != "X26ABC1" {
		t.Errorf("IDs: got %v", got)
	}
	id, err := reg.Lookup("X26ABC1")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if id.Password != "p1" || id.Certificate != nil {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestRegistry_MissingCertificate(t *testing.T) {
	cfg := &Config{Mailboxes: map[string]MailboxConfig{
		"X26ABC1": {Password: "p", SharedKey: "k", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"},
	}}
	_, err := cfg.Registry()
	if err == nil || !strings.Contains(err.Error(), "X26ABC1") {
		t.Errorf("expected certificate error naming the mailbox, got %v", err)
	}
}

func TestHTTPConfig_ProxyDisabled(t *testing.T) {
	cfg := &Config{Proxy: ProxyConfig{Address: "http://proxy:3128"}}
	if hc := cfg.HTTPConfig(); hc.ProxyURL != "" {
		t.Errorf("disabled proxy must not be used, got %q", hc.ProxyURL)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != "" || cfg.Mailboxes != nil {
		t.Errorf("expected zero config, got %+v", cfg)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/meshclient.yaml")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "base_url: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_MESH_PASSWORD", "from-env")
	path := writeTemp(t, `mailboxes:
  X26ABC1:
    password: ${TEST_MESH_PASSWORD}
    shared_key: ${TEST_MESH_KEY_UNSET:-DefaultKey}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "password", cfg.Mailboxes["X26ABC1"].Password, "from-env")
	assertEqual(t, "shared_key", cfg.Mailboxes["X26ABC1"].SharedKey, "DefaultKey")
}

func TestLoad_RequiredEnvMissing(t *testing.T) {
	path := writeTemp(t, `mailboxes:
  X26ABC1:
    password: ${TEST_MESH_PASSWORD_UNSET:?set the X26ABC1 password}
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "set the X26ABC1 password") {
		t.Fatalf("expected missing variable error, got %v", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeTemp(t, "base_url: https://mesh\nbogus_key: should_fail\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	path := writeTemp(t, "archive:\n  backend: fs\n  path: ./data\n  unknown_field: bad\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
	if cfg.BaseURL != "" {
		t.Errorf("expected empty base_url, got %q", cfg.BaseURL)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	path := writeTemp(t, "adapter:\n  type: webhook\n  url: https://example.com\n  retries: 0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("expected retries to be non-nil (*int(0)), got nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	path := writeTemp(t, "timeout: not-a-duration\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "not-a-duration") {
		t.Errorf("error should mention the value, got: %v", err)
	}
}

func TestLoad_ReadError(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil || errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected read error for a directory, got %v", err)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "meshclient.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
