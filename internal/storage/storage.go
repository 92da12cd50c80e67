package storage

import (
	"context"
	"time"

	"github.com/mkallio/boardbot/internal/models"
)

// Store persists scheduled moves and the webhook delivery log. Concurrent
// writes for the same item resolve last-write-wins; the store is the only
// serialization point for racing deliveries.
type Store interface {
	// Scheduled moves
	PutMove(ctx context.Context, move *models.ScheduledMove) error
	GetMove(ctx context.Context, itemID string) (*models.ScheduledMove, error)
	DeleteMove(ctx context.Context, itemID string) error
	ListMoves(ctx context.Context) ([]models.ScheduledMove, error)
	DueMoves(ctx context.Context, asOf time.Time, limit int) ([]models.ScheduledMove, error)

	// Delivery log
	RecordDelivery(ctx context.Context, d *models.Delivery) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
