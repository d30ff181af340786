// Package mailbox holds the credentials of the mailboxes a client acts for.
package mailbox

import (
	"crypto/tls"
	"fmt"
	"sort"

	"github.com/pithecene-io/meshclient/types"
)

// Identity is the credential set of one mailbox.
type Identity struct {
	// ID is the mailbox id, e.g. "X26ABC1".
	ID string
	// Password is the mailbox password issued with the mailbox.
	Password string
	// SharedKey is the environment-wide HMAC key.
	SharedKey string
	// Certificate is the client certificate presented for mutual TLS.
	// Nil when the environment does not require one.
	Certificate *tls.Certificate
}

// Registry is a read-only lookup of configured mailboxes.
// It is populated once at construction and never mutated afterwards,
// so concurrent lookups need no locking.
type Registry struct {
	byID map[string]Identity
}

// NewRegistry builds a registry from identities.
// Returns an error for an identity without an id or for a repeated id.
func NewRegistry(identities ...Identity) (*Registry, error) {
	byID := make(map[string]Identity, len(identities))
	for _, id := range identities {
		if err := types.RequireNonEmpty("mailbox.ID", id.ID); err != nil {
			return nil, err
		}
		if _, dup := byID[id.ID]; dup {
			return nil, &types.ArgumentError{Param: "mailbox.ID", Reason: fmt.Sprintf("%q configured twice", id.ID)}
		}
		byID[id.ID] = id
	}
	return &Registry{byID: byID}, nil
}

// Lookup returns the identity configured for mailboxID.
// An empty or unconfigured id yields an error matching types.ErrInvalidArgument.
func (r *Registry) Lookup(mailboxID string) (Identity, error) {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return Identity{}, err
	}
	id, ok := r.byID[mailboxID]
	if !ok {
		return Identity{}, &types.ArgumentError{
			Param:  "mailboxID",
			Reason: fmt.Sprintf("%q has not been configured", mailboxID),
		}
	}
	return id, nil
}

// IDs returns the configured mailbox ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of configured mailboxes.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Contains reports whether mailboxID is configured.
func (r *Registry) Contains(mailboxID string) bool {
	_, ok := r.byID[mailboxID]
	return ok
}
