package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fablesmith/loregate/internal/catalog"
)

// SQLite is the durable Store implementation. One row per item, keyed by
// (series_id, item_type, id), with status indexed for the pending-scoped
// listing and stats queries.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the ledger database at path and runs schema
// migrations.
func Open(path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// The modernc driver takes pragmas as _pragma=name(value) pairs; WAL
	// plus a busy timeout lets concurrent transitions queue instead of
	// failing with SQLITE_BUSY.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping ledger db: %w", err)
	}

	s := &SQLite{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate ledger db: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS pending_items (
    series_id   TEXT NOT NULL,
    item_type   TEXT NOT NULL,
    id          TEXT NOT NULL,
    name        TEXT NOT NULL,
    description TEXT NOT NULL,
    confidence  REAL,
    source      TEXT NOT NULL DEFAULT '',
    details     TEXT,
    status      TEXT NOT NULL DEFAULT 'pending',
    created_at  INTEGER NOT NULL,
    finalized_at INTEGER,
    PRIMARY KEY (series_id, item_type, id)
);

CREATE INDEX IF NOT EXISTS idx_pending_items_series_status
    ON pending_items(series_id, status, item_type);
`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

const itemColumns = `series_id, item_type, id, name, description, confidence, source, details, status, created_at, finalized_at`

// Insert stores a new pending item.
func (s *SQLite) Insert(ctx context.Context, item catalog.PendingItem) error {
	if err := item.Validate(); err != nil {
		return err
	}

	details, err := catalog.MarshalDetails(item.Details)
	if err != nil {
		return err
	}
	var detailsCol any
	if details != nil {
		detailsCol = string(details)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pending_items (`+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.SeriesID, string(item.Type), item.ID, item.Name, item.Description,
		item.Confidence, item.Source, detailsCol, string(item.Status),
		item.CreatedAt.UnixNano(), finalizedCol(item.FinalizedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s/%s in series %s", catalog.ErrDuplicateID, item.Type, item.ID, item.SeriesID)
		}
		return fmt.Errorf("insert item: %w", err)
	}

	s.logger.Debug("item inserted",
		zap.String("series_id", item.SeriesID),
		zap.String("item_type", string(item.Type)),
		zap.String("id", item.ID))
	return nil
}

// Get fetches one item by identity.
func (s *SQLite) Get(ctx context.Context, seriesID string, itemType catalog.ItemType, id string) (catalog.PendingItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM pending_items
		 WHERE series_id = ? AND item_type = ? AND id = ?`,
		seriesID, string(itemType), id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.PendingItem{}, fmt.Errorf("%w: %s/%s in series %s", catalog.ErrNotFound, itemType, id, seriesID)
		}
		return catalog.PendingItem{}, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns matching items in review-queue order (oldest first).
func (s *SQLite) List(ctx context.Context, seriesID string, filter Filter) ([]catalog.PendingItem, error) {
	query := `SELECT ` + itemColumns + ` FROM pending_items WHERE series_id = ?`
	args := []any{seriesID}
	if filter.Type != nil {
		query += ` AND item_type = ?`
		args = append(args, string(*filter.Type))
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []catalog.PendingItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ApplyTransition finalizes one pending item, applying the edit patch first.
// The update is conditional on status = 'pending' so two racing transitions
// on the same identity resolve with exactly one winner; the loser observes
// ErrAlreadyFinalized.
func (s *SQLite) ApplyTransition(ctx context.Context, seriesID string, itemType catalog.ItemType, id string, newStatus catalog.Status, patch catalog.EditPatch) (catalog.PendingItem, error) {
	if !newStatus.Terminal() {
		return catalog.PendingItem{}, fmt.Errorf("%w: transition target must be terminal, got %q", catalog.ErrUnknownStatus, newStatus)
	}

	item, err := s.Get(ctx, seriesID, itemType, id)
	if err != nil {
		return catalog.PendingItem{}, err
	}
	if item.Status != catalog.StatusPending {
		return catalog.PendingItem{}, fmt.Errorf("%w: %s/%s is %s", catalog.ErrAlreadyFinalized, itemType, id, item.Status)
	}

	// Validate and apply the edit before touching the row. A failing patch
	// leaves the item pending and unmodified.
	edited, err := catalog.ApplyEdit(item, patch)
	if err != nil {
		return catalog.PendingItem{}, err
	}

	details, err := catalog.MarshalDetails(edited.Details)
	if err != nil {
		return catalog.PendingItem{}, err
	}
	var detailsCol any
	if details != nil {
		detailsCol = string(details)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE pending_items
		 SET name = ?, description = ?, details = ?, status = ?, finalized_at = ?
		 WHERE series_id = ? AND item_type = ? AND id = ? AND status = 'pending'`,
		edited.Name, edited.Description, detailsCol, string(newStatus), now.UnixNano(),
		seriesID, string(itemType), id)
	if err != nil {
		return catalog.PendingItem{}, fmt.Errorf("apply transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return catalog.PendingItem{}, fmt.Errorf("apply transition: %w", err)
	}
	if n == 0 {
		// Lost a race: the row was finalized (or removed by an administrator)
		// between the read and the conditional update.
		current, err := s.Get(ctx, seriesID, itemType, id)
		if err != nil {
			return catalog.PendingItem{}, err
		}
		return catalog.PendingItem{}, fmt.Errorf("%w: %s/%s is %s", catalog.ErrAlreadyFinalized, itemType, id, current.Status)
	}

	edited.Status = newStatus
	edited.FinalizedAt = &now

	s.logger.Info("item finalized",
		zap.String("series_id", seriesID),
		zap.String("item_type", string(itemType)),
		zap.String("id", id),
		zap.String("status", string(newStatus)),
		zap.Bool("edited", len(patch) > 0))
	return edited, nil
}

// CountPending returns live pending counts per type for a series.
func (s *SQLite) CountPending(ctx context.Context, seriesID string) (map[catalog.ItemType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_type, COUNT(*) FROM pending_items
		 WHERE series_id = ? AND status = 'pending'
		 GROUP BY item_type`,
		seriesID)
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	defer rows.Close()

	counts := make(map[catalog.ItemType]int)
	for rows.Next() {
		var (
			itemType string
			count    int
		)
		if err := rows.Scan(&itemType, &count); err != nil {
			return nil, fmt.Errorf("count pending: %w", err)
		}
		counts[catalog.ItemType(itemType)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	return counts, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanItem.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (catalog.PendingItem, error) {
	var (
		item        catalog.PendingItem
		itemType    string
		status      string
		confidence  sql.NullFloat64
		details     sql.NullString
		createdAt   int64
		finalizedAt sql.NullInt64
	)
	err := sc.Scan(&item.SeriesID, &itemType, &item.ID, &item.Name, &item.Description,
		&confidence, &item.Source, &details, &status, &createdAt, &finalizedAt)
	if err != nil {
		return catalog.PendingItem{}, err
	}

	item.Type = catalog.ItemType(itemType)
	item.Status = catalog.Status(status)
	if confidence.Valid {
		item.Confidence = &confidence.Float64
	}
	item.CreatedAt = time.Unix(0, createdAt).UTC()
	if finalizedAt.Valid {
		t := time.Unix(0, finalizedAt.Int64).UTC()
		item.FinalizedAt = &t
	}
	if details.Valid && details.String != "" {
		d, err := catalog.UnmarshalDetails(item.Type, []byte(details.String))
		if err != nil {
			return catalog.PendingItem{}, err
		}
		item.Details = d
	}
	return item, nil
}

func finalizedCol(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

// isUniqueViolation reports whether err is a SQLite primary-key conflict.
// The modernc driver surfaces these as constraint errors without a typed
// errors.Is target, so the message is matched.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
