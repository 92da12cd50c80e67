package models

import "time"

// Delivery is the audit record of one processed webhook delivery. It is
// written after the delivery passed signature verification; the Status field
// is the HTTP code the delivery was answered with.
type Delivery struct {
	ID        string    `json:"id"`
	GUID      string    `json:"guid"`
	EventType string    `json:"event_type"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
