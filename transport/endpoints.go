package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Paths are the configurable URL segments of the service API.
type Paths struct {
	Inbox       string `yaml:"inbox"`
	Outbox      string `yaml:"outbox"`
	Acknowledge string `yaml:"acknowledge"`
	Track       string `yaml:"track"`
}

// DefaultPaths returns the segments used by the public service.
func DefaultPaths() Paths {
	return Paths{
		Inbox:       "inbox",
		Outbox:      "outbox",
		Acknowledge: "status/acknowledged",
		Track:       "tracking",
	}
}

// Endpoints builds request URLs from a base URL and path segments.
// Mailbox and message ids are path-escaped.
type Endpoints struct {
	base  string
	paths Paths
}

// NewEndpoints validates baseURL and fills empty path segments with defaults.
func NewEndpoints(baseURL string, paths Paths) (Endpoints, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoints{}, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}

	def := DefaultPaths()
	if paths.Inbox == "" {
		paths.Inbox = def.Inbox
	}
	if paths.Outbox == "" {
		paths.Outbox = def.Outbox
	}
	if paths.Acknowledge == "" {
		paths.Acknowledge = def.Acknowledge
	}
	if paths.Track == "" {
		paths.Track = def.Track
	}
	return Endpoints{base: strings.TrimRight(baseURL, "/"), paths: paths}, nil
}

func (e Endpoints) join(segments ...string) string {
	var b strings.Builder
	b.WriteString(e.base)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(strings.Trim(s, "/"))
	}
	return b.String()
}

// Handshake is GET /{mailbox}.
func (e Endpoints) Handshake(mailboxID string) string {
	return e.join(url.PathEscape(mailboxID))
}

// Inbox is GET /{mailbox}/inbox.
func (e Endpoints) Inbox(mailboxID string) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Inbox)
}

// Message is GET|HEAD /{mailbox}/inbox/{messageID}.
func (e Endpoints) Message(mailboxID, messageID string) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Inbox, url.PathEscape(messageID))
}

// MessageChunk is GET /{mailbox}/inbox/{messageID}/{n}.
func (e Endpoints) MessageChunk(mailboxID, messageID string, n int) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Inbox, url.PathEscape(messageID), strconv.Itoa(n))
}

// Acknowledge is PUT /{mailbox}/inbox/{messageID}/status/acknowledged.
func (e Endpoints) Acknowledge(mailboxID, messageID string) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Inbox, url.PathEscape(messageID), e.paths.Acknowledge)
}

// Outbox is POST /{mailbox}/outbox.
func (e Endpoints) Outbox(mailboxID string) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Outbox)
}

// OutboxChunk is POST /{mailbox}/outbox/{messageID}/{n}.
func (e Endpoints) OutboxChunk(mailboxID, messageID string, n int) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Outbox, url.PathEscape(messageID), strconv.Itoa(n))
}

// Track is GET /{mailbox}/outbox/tracking/{messageID}.
func (e Endpoints) Track(mailboxID, messageID string) string {
	return e.join(url.PathEscape(mailboxID), e.paths.Outbox, e.paths.Track, url.PathEscape(messageID))
}
