package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding feedback records and the session
// counter.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "edbot.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

const feedbackColumns = "id, session_id, user_question, bot_answer, helpful, detected_intent, consumed, created_at"

// UpsertFeedback creates a new feedback record, or updates an existing one
// when p.ID refers to a stored record. Updates only touch the provided
// fields; omitted fields keep their stored values. Returns the record as
// stored.
func (s *Store) UpsertFeedback(p UpsertParams) (FeedbackRecord, error) {
	if p.ID != nil {
		if _, err := s.GetFeedback(*p.ID); err == nil {
			return s.updateFeedback(*p.ID, p)
		} else if err != ErrNotFound {
			return FeedbackRecord{}, err
		}
	}
	return s.insertFeedback(p)
}

func (s *Store) insertFeedback(p UpsertParams) (FeedbackRecord, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO feedback (session_id, user_question, bot_answer, helpful, detected_intent, consumed, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		nullInt(p.SessionID), strVal(p.UserQuestion), strVal(p.BotAnswer),
		nullBool(p.Helpful), strVal(p.DetectedIntent), now.Format(time.RFC3339),
	)
	if err != nil {
		return FeedbackRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return FeedbackRecord{}, err
	}
	return s.GetFeedback(id)
}

func (s *Store) updateFeedback(id int64, p UpsertParams) (FeedbackRecord, error) {
	var sets []string
	var args []any
	if p.SessionID != nil {
		sets = append(sets, "session_id = ?")
		args = append(args, *p.SessionID)
	}
	if p.UserQuestion != nil {
		sets = append(sets, "user_question = ?")
		args = append(args, *p.UserQuestion)
	}
	if p.BotAnswer != nil {
		sets = append(sets, "bot_answer = ?")
		args = append(args, *p.BotAnswer)
	}
	if p.Helpful != nil {
		sets = append(sets, "helpful = ?")
		args = append(args, *p.Helpful)
	}
	if p.DetectedIntent != nil {
		sets = append(sets, "detected_intent = ?")
		args = append(args, *p.DetectedIntent)
	}
	if len(sets) > 0 {
		args = append(args, id)
		query := "UPDATE feedback SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := s.db.Exec(query, args...); err != nil {
			return FeedbackRecord{}, err
		}
	}
	return s.GetFeedback(id)
}

// GetFeedback returns the feedback record with the given id.
func (s *Store) GetFeedback(id int64) (FeedbackRecord, error) {
	row := s.db.QueryRow("SELECT "+feedbackColumns+" FROM feedback WHERE id = ?", id)
	return scanFeedback(row)
}

// AllFeedback returns every stored feedback record in insertion order.
func (s *Store) AllFeedback() ([]FeedbackRecord, error) {
	return s.queryFeedback("SELECT " + feedbackColumns + " FROM feedback ORDER BY id ASC")
}

// RecentNegatives returns the most recent records rated not-helpful, newest
// first, capped at limit.
func (s *Store) RecentNegatives(limit int) ([]FeedbackRecord, error) {
	return s.queryFeedback(
		"SELECT "+feedbackColumns+" FROM feedback WHERE helpful = 0 ORDER BY id DESC LIMIT ?", limit)
}

// LastUnconsumedNegative returns the most recent record for the session rated
// not-helpful and not yet consumed, or ErrNotFound.
func (s *Store) LastUnconsumedNegative(sessionID int64) (FeedbackRecord, error) {
	row := s.db.QueryRow(
		"SELECT "+feedbackColumns+" FROM feedback WHERE session_id = ? AND helpful = 0 AND consumed = 0 ORDER BY id DESC LIMIT 1",
		sessionID)
	return scanFeedback(row)
}

// MostRecent returns the most recent record for the session regardless of
// rating, or ErrNotFound.
func (s *Store) MostRecent(sessionID int64) (FeedbackRecord, error) {
	row := s.db.QueryRow(
		"SELECT "+feedbackColumns+" FROM feedback WHERE session_id = ? ORDER BY id DESC LIMIT 1",
		sessionID)
	return scanFeedback(row)
}

// MarkConsumed sets consumed on the record. The update is conditional on the
// record still being unconsumed; the returned claimed flag is true only for
// the caller that actually flipped it. Concurrent recovery attempts race on
// this flag, so at most one wins.
func (s *Store) MarkConsumed(id int64) (claimed bool, err error) {
	res, err := s.db.Exec("UPDATE feedback SET consumed = 1 WHERE id = ? AND consumed = 0", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NextSessionID allocates the next session id. Allocation happens inside a
// transaction against a dedicated counter row, seeded from max(session_id)+1
// so ids stay ahead of anything already recorded. Sequential calls return
// strictly increasing ids.
func (s *Store) NextSessionID() (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning session allocation: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRow("SELECT next_id FROM session_counter WHERE id = 1").Scan(&next); err != nil {
		return 0, fmt.Errorf("reading session counter: %w", err)
	}

	var maxSession sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(session_id) FROM feedback").Scan(&maxSession); err != nil {
		return 0, fmt.Errorf("reading max session id: %w", err)
	}
	if maxSession.Valid && maxSession.Int64+1 > next {
		next = maxSession.Int64 + 1
	}

	if _, err := tx.Exec("UPDATE session_counter SET next_id = ? WHERE id = 1", next+1); err != nil {
		return 0, fmt.Errorf("advancing session counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing session allocation: %w", err)
	}
	return next, nil
}

func (s *Store) queryFeedback(query string, args ...any) ([]FeedbackRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FeedbackRecord
	for rows.Next() {
		rec, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (FeedbackRecord, error) {
	var rec FeedbackRecord
	var sessionID sql.NullInt64
	var helpful sql.NullBool
	var createdAt string
	err := row.Scan(&rec.ID, &sessionID, &rec.UserQuestion, &rec.BotAnswer,
		&helpful, &rec.DetectedIntent, &rec.Consumed, &createdAt)
	if err == sql.ErrNoRows {
		return FeedbackRecord{}, ErrNotFound
	}
	if err != nil {
		return FeedbackRecord{}, err
	}
	if sessionID.Valid {
		rec.SessionID = &sessionID.Int64
	}
	if helpful.Valid {
		rec.Helpful = &helpful.Bool
	}
	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return FeedbackRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = t
	return rec, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func strVal(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
