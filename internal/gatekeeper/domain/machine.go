package domain

import "time"

// Machine is a registered client machine. The registry is a thin
// collaborator; the core only needs enough to attribute reports.
type Machine struct {
	ID           string    `json:"id"`
	Hostname     string    `json:"hostname"`
	Classroom    string    `json:"classroom,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// Report is a raw health report submitted by a machine. Payload is opaque
// JSON; ingestion just persists it.
type Report struct {
	ID         string    `json:"id"`
	Hostname   string    `json:"hostname"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}
