// Package metrics records training scalars in an SQLite database, one row per
// tag and step, grouped by run.
package metrics

import "context"
import "database/sql"
import "fmt"
import "math"
import "os"
import "path/filepath"
import "time"

import "github.com/google/uuid"
import _ "modernc.org/sqlite"

// LossTag is the tag of the per-epoch mean training loss.
const LossTag = "Loss/train"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS scalars (
	run_id TEXT NOT NULL REFERENCES runs(id),
	tag TEXT NOT NULL,
	step INTEGER NOT NULL,
	value REAL,
	wall_time INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS scalars_run_tag ON scalars(run_id, tag, step);
`

// Scalar is one recorded value.
type Scalar struct {
	Run   string
	Tag   string
	Step  int
	Value float64
	Wall  time.Time
}

// Log appends scalars of one run.
type Log struct {
	db  *sql.DB
	run string
}

// Open opens or creates the database at path and starts a new run.
func Open(ctx context.Context, path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("metrics: create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metrics: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: schema: %w", err)
	}
	l := &Log{db: db, run: uuid.NewString()}
	if _, err := db.ExecContext(ctx, "INSERT INTO runs (id, started) VALUES (?, ?)", l.run, time.Now().UnixNano()); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: start run: %w", err)
	}
	return l, nil
}

// RunID identifies the run of this Log.
func (l *Log) RunID() string {
	return l.run
}

// AddScalar records value for tag at step. NaN is stored as NULL.
func (l *Log) AddScalar(ctx context.Context, tag string, step int, value float64) error {
	v := sql.NullFloat64{Float64: value, Valid: !math.IsNaN(value)}
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO scalars (run_id, tag, step, value, wall_time) VALUES (?, ?, ?, ?, ?)",
		l.run, tag, step, v, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("metrics: add %s@%d: %w", tag, step, err)
	}
	return nil
}

// Scalars returns the values of tag over all runs, ordered by run start
// and step.
func (l *Log) Scalars(ctx context.Context, tag string) ([]Scalar, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT s.run_id, s.tag, s.step, s.value, s.wall_time
		FROM scalars s JOIN runs r ON r.id = s.run_id
		WHERE s.tag = ?
		ORDER BY r.started, s.step, s.rowid`, tag)
	if err != nil {
		return nil, fmt.Errorf("metrics: query %s: %w", tag, err)
	}
	defer rows.Close()
	var out []Scalar
	for rows.Next() {
		var s Scalar
		var v sql.NullFloat64
		var wall int64
		if err := rows.Scan(&s.Run, &s.Tag, &s.Step, &v, &wall); err != nil {
			return nil, fmt.Errorf("metrics: scan: %w", err)
		}
		s.Value = math.NaN()
		if v.Valid {
			s.Value = v.Float64
		}
		s.Wall = time.Unix(0, wall)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
