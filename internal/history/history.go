// Package history persists run reports in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// Summary is the listing row for one stored run.
type Summary struct {
	ID       string            `json:"id" yaml:"id"`
	Runtime  string            `json:"runtime" yaml:"runtime"`
	Device   int               `json:"device" yaml:"device"`
	Started  time.Time         `json:"started" yaml:"started"`
	Duration time.Duration     `json:"duration_ns" yaml:"duration_ns"`
	Totals   memcpytest.Totals `json:"totals" yaml:"totals"`
}

// Query narrows List. Zero values match everything.
type Query struct {
	Runtime    string
	FailedOnly bool
	Limit      int
}

type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	runtime TEXT NOT NULL,
	device INTEGER NOT NULL DEFAULT 0,
	started TEXT NOT NULL,
	duration_ns INTEGER NOT NULL DEFAULT 0,
	pass INTEGER NOT NULL DEFAULT 0,
	fail INTEGER NOT NULL DEFAULT 0,
	skip INTEGER NOT NULL DEFAULT 0,
	report BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started DESC);`

// Open opens or creates the database at path. ":memory:" keeps a private
// in-process database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		dsn = path + sep + "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores rep, replacing any earlier report with the same id.
func (s *Store) Save(ctx context.Context, rep *memcpytest.Report) error {
	if _, err := uuid.Parse(rep.ID); err != nil {
		return fmt.Errorf("save run: invalid id %q: %w", rep.ID, err)
	}
	blob, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, runtime, device, started, duration_ns, pass, fail, skip, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Runtime, rep.Device, rep.Started.UTC().Format(time.RFC3339Nano), int64(rep.Duration),
		rep.Totals.Pass, rep.Totals.Fail, rep.Totals.Skip, blob)
	if err != nil {
		return fmt.Errorf("save run %s: %w", rep.ID, err)
	}
	return nil
}

// List returns summaries newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Summary, error) {
	query := "SELECT id, runtime, device, started, duration_ns, pass, fail, skip FROM runs WHERE 1=1"
	var args []any
	if q.Runtime != "" {
		query += " AND runtime = ?"
		args = append(args, q.Runtime)
	}
	if q.FailedOnly {
		query += " AND fail > 0"
	}
	query += " ORDER BY started DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum      Summary
			started  string
			duration int64
		)
		if err := rows.Scan(&sum.ID, &sum.Runtime, &sum.Device, &started, &duration,
			&sum.Totals.Pass, &sum.Totals.Fail, &sum.Totals.Skip); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		sum.Started, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("list runs: bad timestamp for %s: %w", sum.ID, err)
		}
		sum.Duration = time.Duration(duration)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads a report by full id or by a unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (*memcpytest.Report, error) {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	var blob []byte
	err = s.db.QueryRowContext(ctx, "SELECT report FROM runs WHERE id = ?", full).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var rep memcpytest.Report
	if err := json.Unmarshal(blob, &rep); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", full, err)
	}
	return &rep, nil
}

// Delete removes a run by full id or unique prefix.
func (s *Store) Delete(ctx context.Context, id string) error {
	full, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", full)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *Store) resolve(ctx context.Context, id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if _, err := uuid.Parse(id); err == nil {
		return id, nil
	}
	if strings.ContainsAny(id, "%_") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM runs WHERE id LIKE ? LIMIT 2", id+"%")
	if err != nil {
		return "", fmt.Errorf("resolve run %s: %w", id, err)
	}
	defer rows.Close()
	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}
