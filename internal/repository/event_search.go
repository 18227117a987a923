package repository

import (
	"context"
	"strings"
	"time"

	"github.com/webexpert/event-ticketing/internal/model"
)

// Time filters understood by EventSearchQuery.
const (
	SearchUpcoming = "upcoming" // start_date >= now (default)
	SearchActive   = "active"   // end_date >= now
	SearchAny      = "any"      // no time filter
)

// EventSearchQuery defines filters & pagination for searching events.
type EventSearchQuery struct {
	Title              string
	Location           string
	TimeFilter         string
	Page               int
	PageSize           int
	IncludeUnpublished bool
	Now                time.Time
}

// Search returns one page of matching events ordered by start date, plus
// the total number of matches.  Title and location match
// case-insensitively on substrings.
func (r *EventRepo) Search(ctx context.Context, q EventSearchQuery) ([]*model.Event, int64, error) {
	where := []string{}
	args := []any{}

	switch strings.ToLower(q.TimeFilter) {
	case SearchAny:
	case SearchActive:
		where = append(where, "e.end_date >= ?")
		args = append(args, q.Now)
	default:
		where = append(where, "e.start_date >= ?")
		args = append(args, q.Now)
	}
	if !q.IncludeUnpublished {
		where = append(where, "e.is_published = 1")
	}
	if q.Title != "" {
		where = append(where, "LOWER(e.title) LIKE ?")
		args = append(args, "%"+likeEscape(strings.ToLower(q.Title))+"%")
	}
	if q.Location != "" {
		where = append(where, "LOWER(e.location) LIKE ?")
		args = append(args, "%"+likeEscape(strings.ToLower(q.Location))+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	dataSQL := `SELECT ` + eventColumns + ` FROM events e WHERE ` + cond + `
		ORDER BY e.start_date, e.id
		LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, dataSQL, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]*model.Event, 0, limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likeEscape neutralises LIKE wildcards in user input.
func likeEscape(s string) string { return likeReplacer.Replace(s) }
