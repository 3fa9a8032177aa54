package ws

import (
	"encoding/json"
	"time"
)

// Inbound is the payload a client sends on an admitted connection.
type Inbound struct {
	Content  string `json:"content"`
	FileURL  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileType string `json:"file_type,omitempty"`
}

// Outbound event shapes. Each event type carries exactly the fields the
// clients expect, so they are separate structs rather than one with
// omitempty tags ("system" must carry an explicit null sender_id).

type systemEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SenderID  *int   `json:"sender_id"`
	Timestamp string `json:"timestamp"`
}

type messageEvent struct {
	Type       string `json:"type"`
	ID         int    `json:"id"`
	Content    string `json:"content"`
	SenderID   int    `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Timestamp  string `json:"timestamp"`
}

type messageSentEvent struct {
	Type      string `json:"type"`
	ID        int    `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

type errorEvent struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

func eventTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Event structs contain only marshalable fields.
		panic(err)
	}
	return b
}
