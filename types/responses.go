package types

// HandshakeInfo is returned by a successful mailbox handshake.
type HandshakeInfo struct {
	MailboxID string `json:"mailbox_id"`
}

// InboxListing is the inbox listing: message ids only, no bodies.
type InboxListing struct {
	Messages         []string `json:"messages"`
	ApproxInboxCount int      `json:"approx_inbox_count,omitempty"`
}

// SendReceipt is returned once every part of an outbound message has
// been accepted by the remote service.
type SendReceipt struct {
	MessageID string `json:"message_id"`
	Chunks    int    `json:"chunks,omitempty"`
}

// AckReceipt is returned when a message has been acknowledged.
type AckReceipt struct {
	MessageID string `json:"message_id"`
}

// TrackingInfo is the delivery status of a previously sent message.
type TrackingInfo struct {
	MessageID         string `json:"message_id"`
	LocalID           string `json:"local_id,omitempty"`
	WorkflowID        string `json:"workflow_id,omitempty"`
	FileName          string `json:"filename,omitempty"`
	ExpiryTime        string `json:"expiry_time,omitempty"`
	UploadTimestamp   string `json:"upload_timestamp,omitempty"`
	Recipient         string `json:"recipient,omitempty"`
	RecipientName     string `json:"recipient_name,omitempty"`
	RecipientODSCode  string `json:"recipient_ods_code,omitempty"`
	RecipientOrgCode  string `json:"recipient_org_code,omitempty"`
	RecipientOrgName  string `json:"recipient_org_name,omitempty"`
	StatusSuccess     bool   `json:"status_success"`
	Status            string `json:"status,omitempty"`
	StatusEvent       string `json:"status_event,omitempty"`
	StatusTimestamp   string `json:"status_timestamp,omitempty"`
	StatusDescription string `json:"status_description,omitempty"`
	StatusCode        string `json:"status_code,omitempty"`
}
