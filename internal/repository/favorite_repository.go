package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/webexpert/event-ticketing/internal/apperr"
	"github.com/webexpert/event-ticketing/internal/model"
)

// FavoriteRepo stores (user, event) bookmarks.  The pair is the primary
// key, so a duplicate insert is rejected by the database itself.
type FavoriteRepo struct {
	db *sql.DB
}

func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// Add bookmarks eventID for userID.
func (r *FavoriteRepo) Add(ctx context.Context, userID, eventID uint64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO favorites (user_id, event_id) VALUES (?, ?)`, userID, eventID)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("event %d: %w", eventID, apperr.ErrAlreadyFavorited)
		}
		return err
	}
	return nil
}

// Remove deletes the bookmark, reporting ErrNotFavorited when there was none.
func (r *FavoriteRepo) Remove(ctx context.Context, userID, eventID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND event_id = ?`, userID, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %d: %w", eventID, apperr.ErrNotFavorited)
	}
	return nil
}

// Exists reports whether userID has bookmarked eventID.
func (r *FavoriteRepo) Exists(ctx context.Context, userID, eventID uint64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = ? AND event_id = ?)`, userID, eventID).Scan(&ok)
	return ok, err
}

// ListEvents returns the events bookmarked by userID, most recently added
// first.  Tickets are not loaded here.
func (r *FavoriteRepo) ListEvents(ctx context.Context, userID uint64) ([]*model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM favorites f
	      JOIN events e ON e.id = f.event_id
	      WHERE f.user_id = ?
	      ORDER BY f.created_at DESC, e.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
