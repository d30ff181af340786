package types

// FileAttachment is a file payload travelling through a mailbox.
//
// ChunkNumber is zero for a whole message. A value >= 1 marks the
// attachment as one chunk of a larger logical message. Attachments are
// treated as immutable once constructed.
type FileAttachment struct {
	FileName    string `json:"file_name"`
	Content     []byte `json:"-"`
	ContentType string `json:"content_type"`
	ChunkNumber int    `json:"chunk_number,omitempty"`
}

// IsChunk reports whether the attachment is one chunk of a larger message.
func (f FileAttachment) IsChunk() bool {
	return f.ChunkNumber > 0
}

// Size returns the content length in bytes.
func (f FileAttachment) Size() int {
	return len(f.Content)
}

// MessageMetaData describes a message, derived entirely from response
// headers. Which headers the remote service sets varies by message and
// by service revision, so every field is optional: an empty string or a
// zero TotalChunks means the header was absent.
type MessageMetaData struct {
	WorkflowID  string `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty"`
	ToMailbox   string `json:"to_mailbox,omitempty" yaml:"to_mailbox,omitempty"`
	FromMailbox string `json:"from_mailbox,omitempty" yaml:"from_mailbox,omitempty"`
	MessageID   string `json:"message_id,omitempty" yaml:"message_id,omitempty"`
	FileName    string `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	MessageType string `json:"message_type,omitempty" yaml:"message_type,omitempty"`
	LocalID     string `json:"local_id,omitempty" yaml:"local_id,omitempty"`
	Subject     string `json:"subject,omitempty" yaml:"subject,omitempty"`
	ChunkRange  string `json:"chunk_range,omitempty" yaml:"chunk_range,omitempty"`
	TotalChunks int    `json:"total_chunks,omitempty" yaml:"total_chunks,omitempty"`
}

// IsChunked reports whether the metadata describes a multi-chunk message.
func (m MessageMetaData) IsChunked() bool {
	return m.TotalChunks > 1
}

// Message is a downloaded message: its payload and header metadata.
// For a partial (206) response Attachment is empty; the payload must be
// fetched through chunked retrieval.
type Message struct {
	Attachment FileAttachment  `json:"attachment"`
	MetaData   MessageMetaData `json:"meta_data"`
}

// OutboundMessage is a caller's request to send one file to a mailbox.
type OutboundMessage struct {
	// From is the sending mailbox id (required, must be configured).
	From string
	// To is the recipient mailbox id (required).
	To string
	// WorkflowID is the routing tag agreed with the recipient (required).
	WorkflowID string
	// File is the payload. FileName is required.
	File FileAttachment
	// LocalID is an optional caller correlation id.
	LocalID string
	// Subject is optional free text.
	Subject string
	// Compress gzips a single-shot payload before transmission.
	// Chunked payloads are always compressed.
	Compress bool
	// Checksum attaches an MD5 digest of the uncompressed payload.
	Checksum bool
}
