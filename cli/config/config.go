package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pithecene-io/meshclient/chunk"
	"github.com/pithecene-io/meshclient/handshake"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/mailbox"
	"github.com/pithecene-io/meshclient/transport"
)

// Config represents a meshclient.yaml configuration file.
// CLI flags override the few values they share with the file.
type Config struct {
	BaseURL                    string                   `yaml:"base_url"`
	Paths                      transport.Paths          `yaml:"paths"`
	Timeout                    Duration                 `yaml:"timeout"`
	MaxRetries                 *int                     `yaml:"max_retries,omitempty"`
	RetryBackoff               Duration                 `yaml:"retry_backoff"`
	ChunkSize                  int                      `yaml:"chunk_size"`
	BypassServerCertValidation bool                     `yaml:"bypass_server_cert_validation"`
	Proxy                      ProxyConfig              `yaml:"proxy"`
	LogLevel                   string                   `yaml:"log_level"`
	Mailboxes                  map[string]MailboxConfig `yaml:"mailboxes"`
	Archive                    ArchiveConfig            `yaml:"archive"`
	StateDir                   string                   `yaml:"state_dir"`
	Adapter                    AdapterConfig            `yaml:"adapter"`
}

// ProxyConfig routes every request through an HTTP proxy when enabled.
type ProxyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// MailboxConfig holds the credentials of one mailbox.
// Name (the mailbox id) is derived from the map key.
type MailboxConfig struct {
	Password  string `yaml:"password"`
	SharedKey string `yaml:"shared_key"`
	CertFile  string `yaml:"cert_file,omitempty"`
	KeyFile   string `yaml:"key_file,omitempty"`
}

// ArchiveConfig selects where fetched messages are stored.
type ArchiveConfig struct {
	Backend     string `yaml:"backend"` // fs or s3; empty disables archiving
	Path        string `yaml:"path"`    // directory, or bucket[/prefix] for s3
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
	// SplitByEvent publishes each event type to its own redis channel.
	SplitByEvent bool `yaml:"split_by_event,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout.Duration <= 0 {
		c.Timeout.Duration = transport.DefaultTimeout
	}
	if c.MaxRetries == nil {
		n := handshake.DefaultMaxRetries
		c.MaxRetries = &n
	}
	if c.RetryBackoff.Duration <= 0 {
		c.RetryBackoff.Duration = handshake.DefaultBackoff
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = chunk.DefaultSize
	}
	def := transport.DefaultPaths()
	if c.Paths.Inbox == "" {
		c.Paths.Inbox = def.Inbox
	}
	if c.Paths.Outbox == "" {
		c.Paths.Outbox = def.Outbox
	}
	if c.Paths.Acknowledge == "" {
		c.Paths.Acknowledge = def.Acknowledge
	}
	if c.Paths.Track == "" {
		c.Paths.Track = def.Track
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, errors.New("base_url is required"))
	} else if _, err := transport.NewEndpoints(c.BaseURL, c.Paths); err != nil {
		errs = append(errs, err)
	}
	if len(c.Mailboxes) == 0 {
		errs = append(errs, errors.New("at least one mailbox is required"))
	}
	for _, id := range c.MailboxIDs() {
		mb := c.Mailboxes[id]
		if mb.Password == "" {
			errs = append(errs, fmt.Errorf("mailbox %s: password is required", id))
		}
		if mb.SharedKey == "" {
			errs = append(errs, fmt.Errorf("mailbox %s: shared_key is required", id))
		}
		if (mb.CertFile == "") != (mb.KeyFile == "") {
			errs = append(errs, fmt.Errorf("mailbox %s: cert_file and key_file must be set together", id))
		}
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0, got %d", *c.MaxRetries))
	}
	if c.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be > 0, got %d", c.ChunkSize))
	}
	if c.Proxy.Enabled && c.Proxy.Address == "" {
		errs = append(errs, errors.New("proxy.address is required when proxy is enabled"))
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}
	switch c.Archive.Backend {
	case "":
	case "fs", "s3":
		if c.Archive.Path == "" {
			errs = append(errs, fmt.Errorf("archive.path is required for backend %q", c.Archive.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.backend must be fs or s3, got %q", c.Archive.Backend))
	}
	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for adapter %q", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	return errors.Join(errs...)
}

// MailboxIDs returns the configured mailbox ids, sorted.
func (c *Config) MailboxIDs() []string {
	ids := make([]string, 0, len(c.Mailboxes))
	for id := range c.Mailboxes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Registry builds the mailbox registry, loading client certificates.
func (c *Config) Registry() (*mailbox.Registry, error) {
	identities := make([]mailbox.Identity, 0, len(c.Mailboxes))
	for _, id := range c.MailboxIDs() {
		mb := c.Mailboxes[id]
		cert, err := mailbox.LoadCertificate(mb.CertFile, mb.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("mailbox %s: %w", id, err)
		}
		identities = append(identities, mailbox.Identity{
			ID:          id,
			Password:    mb.Password,
			SharedKey:   mb.SharedKey,
			Certificate: cert,
		})
	}
	return mailbox.NewRegistry(identities...)
}

// HTTPConfig returns the HTTP client settings.
func (c *Config) HTTPConfig() transport.HTTPConfig {
	hc := transport.HTTPConfig{
		Timeout:            c.Timeout.Duration,
		InsecureSkipVerify: c.BypassServerCertValidation,
	}
	if c.Proxy.Enabled {
		hc.ProxyURL = c.Proxy.Address
	}
	return hc
}
