package api

import (
	"context"
	"io"
	"net/http"

	"github.com/mkallio/boardbot/internal/event"
	"github.com/mkallio/boardbot/internal/models"
	"github.com/mkallio/boardbot/internal/signature"
)

const (
	headerEvent     = "X-GitHub-Event"
	headerSignature = "X-Hub-Signature-256"
	headerDelivery  = "X-GitHub-Delivery"
)

// handleWebhook is the single delivery endpoint. The gates run in order and
// each failure answers immediately:
//
//	400: missing body/headers, bad signature, undecodable payload
//	422: authentic delivery of an event type with no handler
//	204: handled, whether or not any action was taken
//	500: a remote call failed; the sender's redelivery is the retry path
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		writeError(w, http.StatusBadRequest, "missing request body")
		return
	}

	eventType := r.Header.Get(headerEvent)
	if eventType == "" {
		writeError(w, http.StatusBadRequest, "missing "+headerEvent+" header")
		return
	}

	if err := signature.Verify(s.github.WebhookSecret, body, r.Header.Get(headerSignature)); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("rejecting delivery")
		writeError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	env, err := event.DecodeEnvelope(body)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("undecodable envelope")
		writeError(w, http.StatusBadRequest, "undecodable payload")
		return
	}

	status, action := s.dispatch(ctx, eventType, body, env)
	s.recordDelivery(ctx, r.Header.Get(headerDelivery), eventType, action, status)

	switch status {
	case http.StatusNoContent:
		writeStatus(w, http.StatusNoContent)
	case http.StatusUnprocessableEntity:
		writeError(w, http.StatusUnprocessableEntity, "no handler for event type "+eventType)
	case http.StatusBadRequest:
		writeError(w, http.StatusBadRequest, "undecodable payload")
	default:
		writeError(w, status, "internal error")
	}
}

// dispatch decodes the kind-specific payload and runs the matching handler.
// An unknown event label is 422, not 400: the delivery was authentic and
// well-formed, there is just no handler for it.
func (s *Server) dispatch(ctx context.Context, eventType string, body []byte, env event.Envelope) (status int, action string) {
	switch eventType {
	case event.TypeProjectItem:
		ev, err := event.DecodeProjectItem(body)
		if err != nil {
			s.log.Warn().Err(err).Msg("undecodable projects_v2_item payload")
			return http.StatusBadRequest, ""
		}
		if err := s.projects.Handle(ctx, ev, env.InstallationID()); err != nil {
			s.log.Error().Err(err).Str("item", ev.Item.NodeID).Msg("project change handling failed")
			return http.StatusInternalServerError, ev.Action
		}
		return http.StatusNoContent, ev.Action

	case event.TypeIssueComment:
		ev, err := event.DecodeIssueComment(body)
		if err != nil {
			s.log.Warn().Err(err).Msg("undecodable issue_comment payload")
			return http.StatusBadRequest, ""
		}
		if err := s.comments.Handle(ctx, ev, env.InstallationID()); err != nil {
			s.log.Error().Err(err).Str("issue", ev.Issue.NodeID).Msg("comment handling failed")
			return http.StatusInternalServerError, ev.Action
		}
		return http.StatusNoContent, ev.Action

	default:
		return http.StatusUnprocessableEntity, ""
	}
}

// recordDelivery appends to the audit log. A failed write is logged but does
// not change the answer to an already-handled delivery.
func (s *Server) recordDelivery(ctx context.Context, guid, eventType, action string, status int) {
	d := &models.Delivery{
		ID:        models.NewID("dlv"),
		GUID:      guid,
		EventType: eventType,
		Action:    action,
		Status:    status,
	}
	if err := s.store.RecordDelivery(ctx, d); err != nil {
		s.log.Error().Err(err).Str("guid", guid).Msg("failed to record delivery")
	}
}
