package types

// Message is a dto for a single output line; exactly the fields of the
// active message type are set, the rest stay omitted.
type Message struct {
	Type               MessageType    `json:"type"`
	Stream             string         `json:"stream,omitempty"`
	Schema             *TypeSchema    `json:"schema,omitempty"`
	KeyProperties      []string       `json:"key_properties,omitempty"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
	Record             Record         `json:"record,omitempty"`
	TimeExtracted      string         `json:"time_extracted,omitempty"`
	Value              *State         `json:"value,omitempty"`
	Encoding           *BatchEncoding `json:"encoding,omitempty"`
	Manifest           []string       `json:"manifest,omitempty"`
	ConnectionStatus   *StatusRow     `json:"connectionStatus,omitempty"`
}

// BatchEncoding describes how the files named in a batch manifest are encoded
type BatchEncoding struct {
	Format      string `json:"format"`
	Compression string `json:"compression,omitempty"`
}

// StatusRow is a dto for connection check result serialization
type StatusRow struct {
	Status  ConnectionStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
}
