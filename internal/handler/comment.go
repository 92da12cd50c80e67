package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkallio/boardbot/internal/command"
	"github.com/mkallio/boardbot/internal/config"
	"github.com/mkallio/boardbot/internal/event"
	"github.com/mkallio/boardbot/internal/gh"
	"github.com/mkallio/boardbot/internal/models"
)

// Outcome enumerates how a comment delivery terminated. Each outcome maps to
// a fixed set of side effects in deliver.
type Outcome int

const (
	// OutcomeSkipped: not a command, an edit, or the wrong repository.
	OutcomeSkipped Outcome = iota
	// OutcomeCancelled: the pending move was dropped.
	OutcomeCancelled
	// OutcomeScheduled: a move was written (or replaced).
	OutcomeScheduled
	// OutcomeRejected: the command could not be honored; Reason says why.
	OutcomeRejected
)

// Result is the terminal state of processing one comment.
type Result struct {
	Outcome Outcome
	Reason  string
}

// BoardClient is the slice of the GitHub API the comment handler needs.
type BoardClient interface {
	IssueProjectItems(ctx context.Context, issueID string, installationID int64) ([]gh.ProjectItem, error)
	AddReaction(ctx context.Context, subjectID, content string, installationID int64) error
	AddComment(ctx context.Context, subjectID, body string, installationID int64) error
}

// MoveStore is the slice of the store the comment handler needs.
type MoveStore interface {
	PutMove(ctx context.Context, move *models.ScheduledMove) error
	DeleteMove(ctx context.Context, itemID string) error
}

// CommentHandler parses /status commands out of new issue comments and
// maintains the scheduled-move store.
type CommentHandler struct {
	cfg    config.GitHubConfig
	boards BoardClient
	store  MoveStore
	log    zerolog.Logger
	now    func() time.Time
}

func NewCommentHandler(cfg config.GitHubConfig, boards BoardClient, store MoveStore, log zerolog.Logger) *CommentHandler {
	return &CommentHandler{
		cfg:    cfg,
		boards: boards,
		store:  store,
		log:    log,
		now:    time.Now,
	}
}

// Handle processes one issue_comment delivery end to end: decide the
// outcome, then perform the side effects that outcome requires. Store writes
// happen before any reaction, so a failed write never acknowledges the
// command.
func (h *CommentHandler) Handle(ctx context.Context, ev event.IssueCommentEvent, installationID int64) error {
	res, err := h.process(ctx, ev, installationID)
	if err != nil {
		return err
	}

	h.log.Info().
		Int("outcome", int(res.Outcome)).
		Str("user", ev.Comment.User.Login).
		Str("reason", res.Reason).
		Msg("comment processed")

	return h.deliver(ctx, ev, res, installationID)
}

func (h *CommentHandler) process(ctx context.Context, ev event.IssueCommentEvent, installationID int64) (Result, error) {
	// Only new comments are commands. Edits are ignored entirely so one
	// comment can never be processed twice.
	if ev.Action != event.ActionCreated {
		return Result{Outcome: OutcomeSkipped}, nil
	}
	if !strings.EqualFold(ev.Repository.FullName, h.cfg.Repository) {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	cmd, err := command.Parse(ev.Comment.Body, h.now())
	var perr *command.ParseError
	if errors.As(err, &perr) {
		return Result{Outcome: OutcomeRejected, Reason: perr.Reason}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if cmd.Kind == command.KindNone {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	items, err := h.boards.IssueProjectItems(ctx, ev.Issue.NodeID, installationID)
	if err != nil {
		return Result{}, err
	}
	item := itemOnProject(items, h.cfg.ProjectID)
	if item == nil {
		return Result{Outcome: OutcomeRejected, Reason: "this issue is not on the watched project"}, nil
	}

	switch cmd.Kind {
	case command.KindCancel:
		if err := h.store.DeleteMove(ctx, item.ID); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeCancelled}, nil

	case command.KindSchedule:
		if item.StatusField == nil {
			return Result{Outcome: OutcomeRejected, Reason: "the project has no Status field"}, nil
		}
		option := optionNamed(item.StatusField.Options, cmd.Status)
		if option == nil {
			return Result{
				Outcome: OutcomeRejected,
				Reason:  fmt.Sprintf("the Status field has no option named %q", cmd.Status),
			}, nil
		}

		move := &models.ScheduledMove{
			ItemID:         item.ID,
			ProjectID:      h.cfg.ProjectID,
			ScheduledDate:  cmd.Date,
			FieldID:        item.StatusField.ID,
			OptionID:       option.ID,
			OptionName:     option.Name,
			InstallationID: installationID,
			Actor:          ev.Comment.User.Login,
			IssueNodeID:    ev.Issue.NodeID,
		}
		if err := h.store.PutMove(ctx, move); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeScheduled}, nil
	}

	return Result{Outcome: OutcomeSkipped}, nil
}

// deliver maps each outcome to its required external calls.
func (h *CommentHandler) deliver(ctx context.Context, ev event.IssueCommentEvent, res Result, installationID int64) error {
	switch res.Outcome {
	case OutcomeCancelled, OutcomeScheduled:
		return h.boards.AddReaction(ctx, ev.Comment.NodeID, gh.ReactionThumbsUp, installationID)

	case OutcomeRejected:
		if err := h.boards.AddReaction(ctx, ev.Comment.NodeID, gh.ReactionConfused, installationID); err != nil {
			return err
		}
		reply := fmt.Sprintf("@%s %s", ev.Comment.User.Login, res.Reason)
		return h.boards.AddComment(ctx, ev.Issue.NodeID, reply, installationID)
	}
	return nil
}

func itemOnProject(items []gh.ProjectItem, projectID string) *gh.ProjectItem {
	for i := range items {
		if items[i].ProjectID == projectID {
			return &items[i]
		}
	}
	return nil
}

func optionNamed(options []gh.Option, name string) *gh.Option {
	for i := range options {
		if strings.EqualFold(options[i].Name, name) {
			return &options[i]
		}
	}
	return nil
}
