// Package executor applies scheduled moves once their date arrives.
package executor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkallio/boardbot/internal/config"
	"github.com/mkallio/boardbot/internal/models"
	"github.com/mkallio/boardbot/internal/storage"
)

// Mover is the one GitHub mutation the executor needs.
type Mover interface {
	UpdateItemField(ctx context.Context, projectID, itemID, fieldID, optionID string, installationID int64) error
}

// Executor polls the store for due moves and applies them. A move is deleted
// only after the field update succeeded; a failed move stays put and is
// retried on the next tick.
type Executor struct {
	store    storage.Store
	mover    Mover
	interval time.Duration
	batch    int
	log      zerolog.Logger
	now      func() time.Time
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(cfg config.ExecutorConfig, store storage.Store, mover Mover, log zerolog.Logger) *Executor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}

	return &Executor{
		store:    store,
		mover:    mover,
		interval: interval,
		batch:    batch,
		log:      log,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (e *Executor) Start(ctx context.Context) {
	e.log.Info().Dur("interval", e.interval).Msg("starting move executor")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

func (e *Executor) Stop() {
	e.log.Info().Msg("stopping move executor")
	close(e.stop)
	e.wg.Wait()
	e.log.Info().Msg("move executor stopped")
}

func (e *Executor) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.RunOnce(ctx)
		}
	}
}

// RunOnce applies every move due as of now. Exported so the CLI and tests can
// drive a single pass.
func (e *Executor) RunOnce(ctx context.Context) {
	moves, err := e.store.DueMoves(ctx, e.now(), e.batch)
	if err != nil {
		e.log.Error().Err(err).Msg("failed to fetch due moves")
		return
	}

	for _, move := range moves {
		if err := e.apply(ctx, move); err != nil {
			e.log.Error().Err(err).
				Str("item", move.ItemID).
				Str("option", move.OptionName).
				Msg("failed to apply move, will retry next tick")
		}
	}
}

func (e *Executor) apply(ctx context.Context, move models.ScheduledMove) error {
	err := e.mover.UpdateItemField(ctx, move.ProjectID, move.ItemID, move.FieldID, move.OptionID, move.InstallationID)
	if err != nil {
		return err
	}

	e.log.Info().
		Str("item", move.ItemID).
		Str("option", move.OptionName).
		Str("actor", move.Actor).
		Msg("applied scheduled move")

	return e.store.DeleteMove(ctx, move.ItemID)
}
