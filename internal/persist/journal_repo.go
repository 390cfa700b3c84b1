package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JournalEntry is one stored loader event.
type JournalEntry struct {
	ID         int64
	World      uuid.UUID
	X, Y, Z    int32
	Kind       loader.EventKind
	OccurredAt time.Time
}

// Location returns the loader location of the entry.
func (e JournalEntry) Location() loader.Location {
	return loader.Location{World: e.World, X: e.X, Y: e.Y, Z: e.Z}
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteEvents writes a batch of events in a single transaction.
func (r *JournalRepo) WriteEvents(ctx context.Context, events []loader.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ev := range events {
		if _, err := tx.Exec(ctx,
			`INSERT INTO loader_events (world_id, x, y, z, kind, occurred_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			ev.Location.World, ev.Location.X, ev.Location.Y, ev.Location.Z, string(ev.Kind), ev.At,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("journal commit: %w", err)
	}
	return nil
}

// Recent returns the newest events of a world, newest first.
func (r *JournalRepo) Recent(ctx context.Context, world uuid.UUID, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, world_id, x, y, z, kind, occurred_at
		 FROM loader_events WHERE world_id = $1
		 ORDER BY occurred_at DESC, id DESC LIMIT $2`, world, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (JournalEntry, error) {
		var e JournalEntry
		var kind string
		err := row.Scan(&e.ID, &e.World, &e.X, &e.Y, &e.Z, &kind, &e.OccurredAt)
		e.Kind = loader.EventKind(kind)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal scan: %w", err)
	}
	return entries, nil
}
