// Package auth builds the per-request mailbox authorization header.
//
// The header has the form
//
//	NHSMESH {mailboxID}:{nonce}:{nonceCount}:{timestamp}:{hmac}
//
// where hmac is the lowercase hex HMAC-SHA256, keyed by the environment's
// shared key, of "{mailboxID}:{nonce}:{nonceCount}:{password}:{timestamp}".
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/meshclient/types"
)

// Scheme is the authorization scheme prefix.
const Scheme = "NHSMESH"

// TimestampLayout is the UTC timestamp layout embedded in the header.
const TimestampLayout = "200601021504"

// Signer produces authorization header values. The zero value is not
// usable; construct with NewSigner. A Signer holds no mutable state and is
// safe for concurrent use.
type Signer struct {
	now   func() time.Time
	nonce func() string
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

// WithNonceSource overrides the generator used for default nonces.
func WithNonceSource(nonce func() string) Option {
	return func(s *Signer) { s.nonce = nonce }
}

// NewSigner creates a Signer using the wall clock and random UUID nonces.
func NewSigner(opts ...Option) *Signer {
	s := &Signer{
		now:   time.Now,
		nonce: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// signParams holds per-call overrides.
type signParams struct {
	timestamp  string
	nonce      string
	nonceCount int
}

// SignOption overrides one input of a single Sign call.
type SignOption func(*signParams)

// WithTimestamp fixes the timestamp instead of using the current time.
func WithTimestamp(ts string) SignOption {
	return func(p *signParams) { p.timestamp = ts }
}

// WithNonce fixes the nonce instead of generating one.
func WithNonce(nonce string) SignOption {
	return func(p *signParams) { p.nonce = nonce }
}

// WithNonceCount sets the nonce count (default 0).
func WithNonceCount(n int) SignOption {
	return func(p *signParams) { p.nonceCount = n }
}

// Sign returns the authorization header value for one request.
// Returns an ArgumentError if mailboxID or password is empty.
func (s *Signer) Sign(mailboxID, password, sharedKey string, opts ...SignOption) (string, error) {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return "", err
	}
	if err := types.RequireNonEmpty("password", password); err != nil {
		return "", err
	}

	var p signParams
	for _, opt := range opts {
		opt(&p)
	}
	if p.nonce == "" {
		p.nonce = s.nonce()
	}
	if p.timestamp == "" {
		p.timestamp = s.now().UTC().Format(TimestampLayout)
	}
	count := strconv.Itoa(p.nonceCount)

	message := strings.Join([]string{mailboxID, p.nonce, count, password, p.timestamp}, ":")
	mac := hmac.New(sha256.New, []byte(sharedKey))
	mac.Write([]byte(message))
	digest := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s %s:%s:%s:%s:%s", Scheme, mailboxID, p.nonce, count, p.timestamp, digest), nil
}
