package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS columns (
	idx  INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
	step INTEGER PRIMARY KEY,
	time REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS energies (
	step  INTEGER NOT NULL,
	idx   INTEGER NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (step, idx)
);`

// SQLiteSink stores the energy history in long format, one row per step
// and column, so that a single term can be queried without the rest.
type SQLiteSink struct {
	db *sql.DB
	n  int
}

func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func (s *SQLiteSink) WriteHeader(columns []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, c := range columns {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO columns (idx, name) VALUES (?, ?)`, i, c); err != nil {
			return fmt.Errorf("insert column %q: %w", c, err)
		}
	}
	s.n = len(columns)
	return tx.Commit()
}

func (s *SQLiteSink) WriteRecord(step int, t float64, values []float64) error {
	if len(values) != s.n {
		return fmt.Errorf("sqlite sink: %d values for %d columns", len(values), s.n)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO frames (step, time) VALUES (?, ?)`, step, t); err != nil {
		return fmt.Errorf("insert step %d: %w", step, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO energies (step, idx, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range values {
		if _, err := stmt.Exec(step, i, v); err != nil {
			return fmt.Errorf("insert step %d column %d: %w", step, i, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ReadSQLite(path string) (*Series, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	s := &Series{}
	rows, err := db.Query(`SELECT name FROM columns ORDER BY idx`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		s.Columns = append(s.Columns, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.Query(`SELECT f.step, f.time, e.idx, e.value
		FROM frames f JOIN energies e ON e.step = f.step
		ORDER BY f.step, e.idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			step, idx int
			t, v      float64
		)
		if err := rows.Scan(&step, &t, &idx, &v); err != nil {
			return nil, err
		}
		if n := len(s.Steps); n == 0 || s.Steps[n-1] != step {
			s.append(step, t, make([]float64, len(s.Columns)))
		}
		if idx < 0 || idx >= len(s.Columns) {
			return nil, fmt.Errorf("storage: column index %d out of %d", idx, len(s.Columns))
		}
		s.Rows[len(s.Rows)-1][idx] = v
	}
	return s, rows.Err()
}
