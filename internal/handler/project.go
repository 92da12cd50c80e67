// Package handler turns decoded webhook events into notifications and
// scheduled moves.
package handler

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mkallio/boardbot/internal/config"
	"github.com/mkallio/boardbot/internal/event"
	"github.com/mkallio/boardbot/internal/gh"
	"github.com/mkallio/boardbot/internal/notify"
)

// statusFieldName is the one distinguished field whose value drives
// notifications and scheduling. The match is on the literal name.
const statusFieldName = "Status"

// ItemLookup fetches the notification view of a project item.
type ItemLookup interface {
	ItemDetail(ctx context.Context, itemID string, installationID int64) (*gh.ItemDetail, error)
}

// Notifier delivers the outbound chat message.
type Notifier interface {
	Send(ctx context.Context, n notify.Notification) error
}

// ProjectHandler decides whether a project item change is worth a
// notification.
type ProjectHandler struct {
	cfg      config.GitHubConfig
	items    ItemLookup
	notifier Notifier
	log      zerolog.Logger
}

func NewProjectHandler(cfg config.GitHubConfig, items ItemLookup, notifier Notifier, log zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		cfg:      cfg,
		items:    items,
		notifier: notifier,
		log:      log,
	}
}

// Handle notifies about an edit to the watched status field on the watched
// project. Deliveries that miss any gate are skipped without error; remote
// lookup or send failures propagate so the delivery surfaces as failed.
func (h *ProjectHandler) Handle(ctx context.Context, ev event.ProjectItemEvent, installationID int64) error {
	if ev.Action != event.ActionEdited ||
		ev.Item.ProjectNodeID != h.cfg.ProjectID ||
		ev.Changes.FieldValue.FieldNodeID != h.cfg.StatusFieldID {
		h.log.Debug().
			Str("action", ev.Action).
			Str("project", ev.Item.ProjectNodeID).
			Str("field", ev.Changes.FieldValue.FieldNodeID).
			Msg("project item change not watched, skipping")
		return nil
	}

	detail, err := h.items.ItemDetail(ctx, ev.Item.NodeID, installationID)
	if err != nil {
		return err
	}

	status, ok := statusValue(detail.FieldValues)
	if !ok {
		h.log.Debug().Str("item", ev.Item.NodeID).Msg("item has no status value, skipping")
		return nil
	}

	return h.notifier.Send(ctx, notify.Notification{
		Title:        detail.Title,
		URL:          detail.URL,
		Status:       status,
		ProjectTitle: detail.Project.Title,
		ProjectURL:   detail.Project.URL,
		Actor:        ev.Sender.Login,
	})
}

func statusValue(values []gh.FieldValue) (string, bool) {
	for _, fv := range values {
		if fv.Field == statusFieldName {
			return fv.Value, true
		}
	}
	return "", false
}
