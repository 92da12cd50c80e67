package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mkallio/boardbot/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scheduled_moves (
			item_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			scheduled_date TEXT NOT NULL,
			field_id TEXT NOT NULL,
			option_id TEXT NOT NULL,
			option_name TEXT NOT NULL,
			installation_id INTEGER NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			issue_node_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			guid TEXT NOT NULL DEFAULT '',
			event_type TEXT NOT NULL,
			action TEXT NOT NULL DEFAULT '',
			status INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_moves_due ON scheduled_moves(scheduled_date)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_created ON deliveries(created_at)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Scheduled moves ---

func (s *SQLiteStore) PutMove(ctx context.Context, move *models.ScheduledMove) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_moves
			(item_id, project_id, scheduled_date, field_id, option_id, option_name, installation_id, actor, issue_node_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			project_id = excluded.project_id,
			scheduled_date = excluded.scheduled_date,
			field_id = excluded.field_id,
			option_id = excluded.option_id,
			option_name = excluded.option_name,
			installation_id = excluded.installation_id,
			actor = excluded.actor,
			issue_node_id = excluded.issue_node_id,
			updated_at = excluded.updated_at`,
		move.ItemID, move.ProjectID, move.ScheduledDate.Format(models.DateLayout),
		move.FieldID, move.OptionID, move.OptionName, move.InstallationID,
		move.Actor, move.IssueNodeID, now, now,
	)
	return err
}

func (s *SQLiteStore) GetMove(ctx context.Context, itemID string) (*models.ScheduledMove, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT item_id, project_id, scheduled_date, field_id, option_id, option_name, installation_id, actor, issue_node_id, created_at, updated_at
		FROM scheduled_moves WHERE item_id = ?`, itemID,
	)
	move, err := scanMove(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return move, nil
}

func (s *SQLiteStore) DeleteMove(ctx context.Context, itemID string) error {
	// Deleting a move that does not exist is not an error.
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_moves WHERE item_id = ?`, itemID)
	return err
}

func (s *SQLiteStore) ListMoves(ctx context.Context) ([]models.ScheduledMove, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, project_id, scheduled_date, field_id, option_id, option_name, installation_id, actor, issue_node_id, created_at, updated_at
		FROM scheduled_moves ORDER BY scheduled_date, item_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMoves(rows)
}

func (s *SQLiteStore) DueMoves(ctx context.Context, asOf time.Time, limit int) ([]models.ScheduledMove, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, project_id, scheduled_date, field_id, option_id, option_name, installation_id, actor, issue_node_id, created_at, updated_at
		FROM scheduled_moves WHERE scheduled_date <= ? ORDER BY scheduled_date, item_id LIMIT ?`,
		asOf.UTC().Format(models.DateLayout), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMoves(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMove(row rowScanner) (*models.ScheduledMove, error) {
	var move models.ScheduledMove
	var date string
	err := row.Scan(
		&move.ItemID, &move.ProjectID, &date, &move.FieldID, &move.OptionID,
		&move.OptionName, &move.InstallationID, &move.Actor, &move.IssueNodeID,
		&move.CreatedAt, &move.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	move.ScheduledDate, err = time.ParseInLocation(models.DateLayout, date, time.UTC)
	if err != nil {
		return nil, err
	}
	return &move, nil
}

func collectMoves(rows *sql.Rows) ([]models.ScheduledMove, error) {
	var moves []models.ScheduledMove
	for rows.Next() {
		move, err := scanMove(rows)
		if err != nil {
			return nil, err
		}
		moves = append(moves, *move)
	}
	return moves, rows.Err()
}

// --- Delivery log ---

func (s *SQLiteStore) RecordDelivery(ctx context.Context, d *models.Delivery) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, guid, event_type, action, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.GUID, d.EventType, d.Action, d.Status, time.Now().UTC(),
	)
	return err
}
