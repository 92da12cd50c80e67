// Package event decodes GitHub webhook payloads in two phases: a minimal
// envelope decode shared by every event kind, then a kind-specific decode
// dispatched on the X-GitHub-Event label.
package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event-type labels as delivered in the X-GitHub-Event header.
const (
	TypeProjectItem  = "projects_v2_item"
	TypeIssueComment = "issue_comment"
)

// Actions this service reacts to. Everything else is skipped.
const (
	ActionEdited  = "edited"
	ActionCreated = "created"
)

var ErrNoInstallation = errors.New("payload carries no installation id")

// Envelope holds the fields common to every delivery. It must decode before
// any kind-specific parsing because the installation identity is required on
// all outbound API calls.
type Envelope struct {
	Installation *struct {
		ID int64 `json:"id"`
	} `json:"installation"`
}

// InstallationID returns the installation the delivery was issued for.
func (e Envelope) InstallationID() int64 {
	if e.Installation == nil {
		return 0
	}
	return e.Installation.ID
}

// DecodeEnvelope parses the common envelope fields from a raw delivery body.
func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Installation == nil {
		return Envelope{}, ErrNoInstallation
	}
	return env, nil
}

// ProjectItemEvent is the projects_v2_item payload. FieldNodeID is only
// present for edited actions.
type ProjectItemEvent struct {
	Action string `json:"action"`
	Item   struct {
		NodeID        string `json:"node_id"`
		ProjectNodeID string `json:"project_node_id"`
	} `json:"projects_v2_item"`
	Changes struct {
		FieldValue struct {
			FieldNodeID string `json:"field_node_id"`
		} `json:"field_value"`
	} `json:"changes"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

// DecodeProjectItem parses a projects_v2_item delivery body.
func DecodeProjectItem(body []byte) (ProjectItemEvent, error) {
	var ev ProjectItemEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ProjectItemEvent{}, fmt.Errorf("decode projects_v2_item event: %w", err)
	}
	return ev, nil
}

// IssueCommentEvent is the issue_comment payload. Comment.NodeID is the
// subject for reactions, Issue.NodeID the subject for reply comments.
type IssueCommentEvent struct {
	Action  string `json:"action"`
	Comment struct {
		NodeID string `json:"node_id"`
		Body   string `json:"body"`
		User   struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"comment"`
	Issue struct {
		NodeID string `json:"node_id"`
	} `json:"issue"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// DecodeIssueComment parses an issue_comment delivery body.
func DecodeIssueComment(body []byte) (IssueCommentEvent, error) {
	var ev IssueCommentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return IssueCommentEvent{}, fmt.Errorf("decode issue_comment event: %w", err)
	}
	return ev, nil
}
