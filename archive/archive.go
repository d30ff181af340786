// Package archive persists downloaded messages to a Lode store.
//
// Each message lands under a Hive-style prefix
//
//	mailbox=<mailbox>/workflow=<workflow>/message_id=<id>/
//
// holding the payload file and a meta.json sidecar describing it. Writes
// are keyed by message id, so archiving a message twice is a no-op.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/meshclient/chunk"
	"github.com/pithecene-io/meshclient/log"
	"github.com/pithecene-io/meshclient/metrics"
	"github.com/pithecene-io/meshclient/types"
)

// MetaFileName is the sidecar written next to every archived payload.
const MetaFileName = "meta.json"

// Record is the content of the meta.json sidecar.
type Record struct {
	MailboxID  string                `json:"mailbox_id"`
	Payload    string                `json:"payload"`
	Size       int                   `json:"size"`
	Checksum   string                `json:"checksum"`
	ArchivedAt string                `json:"archived_at"`
	MetaData   types.MessageMetaData `json:"meta_data"`
}

// Config configures an Archive.
type Config struct {
	Logger  *log.Logger
	Metrics *metrics.Collector
	// Now overrides the clock used for ArchivedAt (tests).
	Now func() time.Time
}

// Archive writes messages to a Lode store.
type Archive struct {
	store   lode.Store
	logger  *log.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// New creates an Archive from a store factory such as lode.NewFSFactory
// or lode.NewMemoryFactory.
func New(factory lode.StoreFactory, cfg Config) (*Archive, error) {
	store, err := factory()
	if err != nil {
		return nil, wrap(err, "init", "")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Archive{
		store:   store,
		logger:  cfg.Logger.WithComponent("archive"),
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}, nil
}

// NewFS creates an Archive rooted at a local directory.
func NewFS(root string, cfg Config) (*Archive, error) {
	if err := types.RequireNonEmpty("root", root); err != nil {
		return nil, err
	}
	return New(lode.NewFSFactory(root), cfg)
}

// Prefix returns the key prefix for a message.
func Prefix(mailboxID string, md types.MessageMetaData) string {
	workflow := md.WorkflowID
	if workflow == "" {
		workflow = "unknown"
	}
	return fmt.Sprintf("mailbox=%s/workflow=%s/message_id=%s",
		segment(mailboxID), segment(workflow), segment(md.MessageID))
}

// segment keeps a value from escaping its path component.
func segment(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}

// payloadName is the object name of the payload within a message prefix.
func payloadName(fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	switch name {
	case "", ".", "/", "..", MetaFileName:
		return "payload"
	}
	return name
}

// Save writes msg's payload and sidecar and returns the payload key.
// A message whose sidecar already exists is left untouched.
func (a *Archive) Save(ctx context.Context, mailboxID string, msg types.Message) (string, error) {
	if err := types.RequireNonEmpty("mailboxID", mailboxID); err != nil {
		return "", err
	}
	if err := types.RequireNonEmpty("messageID", msg.MetaData.MessageID); err != nil {
		return "", err
	}

	fileName := msg.Attachment.FileName
	if fileName == "" {
		fileName = msg.MetaData.FileName
	}
	prefix := Prefix(mailboxID, msg.MetaData)
	payloadKey := prefix + "/" + payloadName(fileName)
	metaKey := prefix + "/" + MetaFileName
	logger := a.logger.WithMailbox(mailboxID)

	exists, err := a.store.Exists(ctx, metaKey)
	if err != nil {
		a.metrics.IncArchiveWriteFailure()
		return "", wrap(err, "read", metaKey)
	}
	if exists {
		logger.Debug("message already archived", map[string]any{"path": payloadKey})
		return payloadKey, nil
	}

	if err := a.store.Put(ctx, payloadKey, bytes.NewReader(msg.Attachment.Content)); err != nil {
		a.metrics.IncArchiveWriteFailure()
		return "", wrap(err, "write", payloadKey)
	}

	rec := Record{
		MailboxID:  mailboxID,
		Payload:    payloadKey,
		Size:       msg.Attachment.Size(),
		Checksum:   chunk.Checksum(msg.Attachment.Content),
		ArchivedAt: a.now().UTC().Format(time.RFC3339Nano),
		MetaData:   msg.MetaData,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		a.metrics.IncArchiveWriteFailure()
		return "", fmt.Errorf("encode archive record: %w", err)
	}
	// The sidecar goes last: its presence marks the message as archived.
	if err := a.store.Put(ctx, metaKey, bytes.NewReader(data)); err != nil {
		a.metrics.IncArchiveWriteFailure()
		return "", wrap(err, "write", metaKey)
	}

	a.metrics.IncArchiveWriteSuccess()
	logger.Info("message archived", map[string]any{
		"message_id": msg.MetaData.MessageID,
		"path":       payloadKey,
		"bytes":      rec.Size,
	})
	return payloadKey, nil
}

// Load reads back the sidecar and payload for a message.
func (a *Archive) Load(ctx context.Context, mailboxID string, md types.MessageMetaData) (Record, []byte, error) {
	metaKey := Prefix(mailboxID, md) + "/" + MetaFileName
	raw, err := a.read(ctx, metaKey)
	if err != nil {
		return Record{}, nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, nil, fmt.Errorf("decode %s: %w", metaKey, err)
	}
	payload, err := a.read(ctx, rec.Payload)
	if err != nil {
		return rec, nil, err
	}
	return rec, payload, nil
}

// List returns every archived payload key for mailboxID.
func (a *Archive) List(ctx context.Context, mailboxID string) ([]string, error) {
	prefix := "mailbox=" + segment(mailboxID) + "/"
	keys, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, wrap(err, "read", prefix)
	}
	var out []string
	for _, k := range keys {
		if path.Base(k) != MetaFileName {
			out = append(out, k)
		}
	}
	return out, nil
}

func (a *Archive) read(ctx context.Context, key string) ([]byte, error) {
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, wrap(err, "read", key)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrap(err, "read", key)
	}
	return data, nil
}
