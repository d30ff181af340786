package transport

// Protocol header names. The service treats header names
// case-insensitively; these are the canonical spellings it documents.
const (
	HeaderAuthorization     = "Authorization"
	HeaderAccept            = "Accept"
	HeaderContentType       = "Content-Type"
	HeaderContentEncoding   = "Content-Encoding"
	HeaderClientVersion     = "Mex-ClientVersion"
	HeaderOSArchitecture    = "Mex-OSArchitecture"
	HeaderOSName            = "Mex-OSName"
	HeaderOSVersion         = "Mex-OSVersion"
	HeaderFrom              = "Mex-From"
	HeaderTo                = "Mex-To"
	HeaderWorkflowID        = "Mex-WorkflowID"
	HeaderFileName          = "Mex-FileName"
	HeaderLocalID           = "Mex-LocalID"
	HeaderSubject           = "Mex-Subject"
	HeaderMessageID         = "Mex-MessageID"
	HeaderMessageType       = "Mex-MessageType"
	HeaderChunkRange        = "Mex-Chunk-Range"
	HeaderTotalChunks       = "Mex-Total-Chunks"
	HeaderContentCompressed = "Mex-Content-Compressed"
	HeaderContentEncrypted  = "Mex-Content-Encrypted"
	HeaderChecksum          = "Mex-Checksum"
)

// MediaTypeV2 is the versioned accept type for JSON responses.
const MediaTypeV2 = "application/vnd.mesh.v2+json"

// MediaTypeOctetStream is the content type of raw payloads.
const MediaTypeOctetStream = "application/octet-stream"
