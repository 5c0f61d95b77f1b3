// Package store provides the SQLite-backed persistence collaborator for
// sessions and query logs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docuchat/server/models"
)

// ErrSessionNotFound is returned when a session id does not exist for
// the requesting user.
var ErrSessionNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_started ON sessions(user_id, started_at);

CREATE TABLE IF NOT EXISTS query_logs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id       TEXT NOT NULL,
	session_id    TEXT NOT NULL REFERENCES sessions(id),
	question      TEXT NOT NULL,
	response      TEXT NOT NULL,
	response_time REAL NOT NULL,
	timestamp     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_query_logs_session ON query_logs(session_id);
`

// Store is the SQLite-backed session and query-log store.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and bootstraps the
// schema. WAL mode keeps concurrent readers off the writers' backs.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession starts a new session for userID.
func (s *Store) CreateSession(ctx context.Context, userID string) (models.Session, error) {
	session := models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, started_at) VALUES (?, ?, ?)",
		session.ID, session.UserID, session.StartedAt,
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("inserting session: %w", err)
	}
	return session, nil
}

// FindRecentSession returns the most recent session for userID that
// started at or after since, or nil when there is none.
func (s *Store) FindRecentSession(ctx context.Context, userID string, since time.Time) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, started_at FROM sessions WHERE user_id = ? AND started_at >= ? ORDER BY started_at DESC LIMIT 1",
		userID, since.UTC(),
	)
	var session models.Session
	if err := row.Scan(&session.ID, &session.UserID, &session.StartedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying recent session: %w", err)
	}
	return &session, nil
}

// AppendQueryLog durably records one completed question.
func (s *Store) AppendQueryLog(ctx context.Context, entry models.QueryLog) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO query_logs (user_id, session_id, question, response, response_time, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		entry.UserID, entry.SessionID, entry.Question, entry.Response, entry.ResponseTime, entry.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting query log: %w", err)
	}
	return nil
}

// Sort orders accepted by ListSessions.
const (
	SortDateDesc    = "date_desc"
	SortDateAsc     = "date_asc"
	SortQueriesDesc = "queries_desc"
	SortQueriesAsc  = "queries_asc"
)

// ValidSort reports whether sortBy names a supported session ordering.
func ValidSort(sortBy string) bool {
	switch sortBy {
	case SortDateDesc, SortDateAsc, SortQueriesDesc, SortQueriesAsc:
		return true
	}
	return false
}

// SessionFilter narrows and orders a session listing. Nil fields mean
// no constraint; a zero Limit means the default of 50.
type SessionFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	MinQueries *int
	SortBy     string
	Limit      int
}

// ListSessions returns the user's sessions matching the filter, each
// with its queries and aggregate response-time statistics.
func (s *Store) ListSessions(ctx context.Context, userID string, filter SessionFilter) ([]models.SessionSummary, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT s.id, s.started_at,
		       COUNT(q.id), AVG(q.response_time), SUM(q.response_time)
		FROM sessions s
		LEFT JOIN query_logs q ON q.session_id = s.id
		WHERE s.user_id = ?`
	args := []any{userID}
	if filter.DateFrom != nil {
		query += " AND s.started_at >= ?"
		args = append(args, filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		query += " AND s.started_at <= ?"
		args = append(args, filter.DateTo.UTC())
	}
	query += " GROUP BY s.id, s.started_at"
	if filter.MinQueries != nil {
		query += " HAVING COUNT(q.id) >= ?"
		args = append(args, *filter.MinQueries)
	}
	switch filter.SortBy {
	case SortDateAsc:
		query += " ORDER BY s.started_at ASC"
	case SortQueriesDesc:
		query += " ORDER BY COUNT(q.id) DESC"
	case SortQueriesAsc:
		query += " ORDER BY COUNT(q.id) ASC"
	default:
		query += " ORDER BY s.started_at DESC"
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var summaries []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var avg, total sql.NullFloat64
		if err := rows.Scan(&sum.ID, &sum.StartedAt, &sum.QueryCount, &avg, &total); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		if avg.Valid {
			sum.AvgResponseTime = &avg.Float64
		}
		if total.Valid {
			sum.TotalResponseTime = &total.Float64
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range summaries {
		queries, err := s.sessionQueries(ctx, summaries[i].ID)
		if err != nil {
			return nil, err
		}
		summaries[i].Queries = queries
	}
	return summaries, nil
}

// SessionsSummary aggregates a user's sessions and query logs into one
// statistics row, optionally restricted to sessions started inside the
// given date range.
func (s *Store) SessionsSummary(ctx context.Context, userID string, dateFrom, dateTo *time.Time) (models.SessionsStats, error) {
	var stats models.SessionsStats

	sessionsQuery := "SELECT COUNT(*) FROM sessions WHERE user_id = ?"
	args := []any{userID}
	if dateFrom != nil {
		sessionsQuery += " AND started_at >= ?"
		args = append(args, dateFrom.UTC())
	}
	if dateTo != nil {
		sessionsQuery += " AND started_at <= ?"
		args = append(args, dateTo.UTC())
	}
	if err := s.db.QueryRowContext(ctx, sessionsQuery, args...).Scan(&stats.TotalSessions); err != nil {
		return models.SessionsStats{}, fmt.Errorf("counting sessions: %w", err)
	}

	logsQuery := `
		SELECT COUNT(q.id), AVG(q.response_time), MIN(q.response_time),
		       MAX(q.response_time), SUM(q.response_time)
		FROM query_logs q
		JOIN sessions s ON q.session_id = s.id
		WHERE s.user_id = ?`
	args = []any{userID}
	if dateFrom != nil {
		logsQuery += " AND s.started_at >= ?"
		args = append(args, dateFrom.UTC())
	}
	if dateTo != nil {
		logsQuery += " AND s.started_at <= ?"
		args = append(args, dateTo.UTC())
	}

	var avg, minRT, maxRT, total sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, logsQuery, args...).Scan(&stats.TotalQueries, &avg, &minRT, &maxRT, &total); err != nil {
		return models.SessionsStats{}, fmt.Errorf("aggregating query logs: %w", err)
	}
	if avg.Valid {
		stats.AvgResponseTime = &avg.Float64
	}
	if minRT.Valid {
		stats.MinResponseTime = &minRT.Float64
	}
	if maxRT.Valid {
		stats.MaxResponseTime = &maxRT.Float64
	}
	if total.Valid {
		stats.TotalResponseTime = &total.Float64
	}
	if stats.TotalSessions > 0 && stats.TotalQueries > 0 {
		stats.AvgQueriesPerSession = float64(stats.TotalQueries) / float64(stats.TotalSessions)
	}
	return stats, nil
}

// GetSession returns one session with its queries and statistics, or
// ErrSessionNotFound when the id does not belong to userID.
func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (*models.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.started_at,
		       COUNT(q.id), AVG(q.response_time), SUM(q.response_time)
		FROM sessions s
		LEFT JOIN query_logs q ON q.session_id = s.id
		WHERE s.id = ? AND s.user_id = ?
		GROUP BY s.id, s.started_at`,
		sessionID, userID,
	)
	var sum models.SessionSummary
	var avg, total sql.NullFloat64
	if err := row.Scan(&sum.ID, &sum.StartedAt, &sum.QueryCount, &avg, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	if avg.Valid {
		sum.AvgResponseTime = &avg.Float64
	}
	if total.Valid {
		sum.TotalResponseTime = &total.Float64
	}

	queries, err := s.sessionQueries(ctx, sum.ID)
	if err != nil {
		return nil, err
	}
	sum.Queries = queries
	return &sum, nil
}

// DeleteSession removes a session and its query logs.
func (s *Store) DeleteSession(ctx context.Context, userID, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id = ? AND user_id = ?",
		sessionID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}

	// Query logs first, the foreign key points at sessions.
	if _, err := tx.ExecContext(ctx, "DELETE FROM query_logs WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("deleting query logs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return tx.Commit()
}

func (s *Store) sessionQueries(ctx context.Context, sessionID string) ([]models.QuerySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT question, response, response_time, timestamp FROM query_logs WHERE session_id = ? ORDER BY timestamp",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session logs: %w", err)
	}
	defer rows.Close()

	var queries []models.QuerySummary
	for rows.Next() {
		var q models.QuerySummary
		if err := rows.Scan(&q.Question, &q.Response, &q.ResponseTime, &q.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning query log row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}
