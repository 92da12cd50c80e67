package models

import "time"

// ScheduledMove is a pending instruction to set an item's status field on a
// future date. At most one move exists per item; a new schedule for the same
// item replaces the old one.
type ScheduledMove struct {
	ItemID         string    `json:"item_id"`
	ProjectID      string    `json:"project_id"`
	ScheduledDate  time.Time `json:"scheduled_date"`
	FieldID        string    `json:"field_id"`
	OptionID       string    `json:"option_id"`
	OptionName     string    `json:"option_name"`
	InstallationID int64     `json:"installation_id"`
	Actor          string    `json:"actor"`
	IssueNodeID    string    `json:"issue_node_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DateLayout is how scheduled dates are stored: a calendar date with no time
// component.
const DateLayout = "2006-01-02"
