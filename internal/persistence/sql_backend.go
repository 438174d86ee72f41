package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"coordinator/internal/logging"

	_ "modernc.org/sqlite"
)

// SQLBackend stores every collection in a single table of a single-file
// embedded SQL database. It uses modernc.org/sqlite, a cgo-free driver;
// see DESIGN.md for why the cgo alternative (mattn/go-sqlite3) is not
// also imported.
type SQLBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	data       TEXT NOT NULL,
	stored_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, key)
);
CREATE INDEX IF NOT EXISTS idx_kv_store_stored_at ON kv_store(stored_at);
`

// NewSQLBackend opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLBackend(path string) (*SQLBackend, error) {
	timer := logging.StartTimer(logging.CategoryPersistence, "NewSQLBackend")
	defer timer.Stop()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one conn avoids SQLITE_BUSY races
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: apply schema: %w", err)
	}
	return &SQLBackend{db: db}, nil
}

func (b *SQLBackend) Store(collection, key string, value map[string]interface{}) error {
	stamped := withStoredAt(value, time.Now())
	data, err := json.Marshal(stamped)
	if err != nil {
		return fmt.Errorf("persistence: marshal value for %s/%s: %w", collection, key, err)
	}
	_, err = b.db.Exec(
		`INSERT INTO kv_store (collection, key, data, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET data = excluded.data, stored_at = excluded.stored_at`,
		collection, key, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("persistence: upsert %s/%s: %w", collection, key, err)
	}
	return nil
}

func (b *SQLBackend) Retrieve(collection, key string) (map[string]interface{}, bool, error) {
	var data string
	err := b.db.QueryRow(`SELECT data FROM kv_store WHERE collection = ? AND key = ?`, collection, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persistence: retrieve %s/%s: %w", collection, key, err)
	}
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false, fmt.Errorf("persistence: unmarshal %s/%s: %w", collection, key, err)
	}
	return v, true, nil
}

// Query fetches up to 2x limit rows ordered by stored_at DESC, then
// applies filter in-memory and caps at limit, so a narrow filter
// doesn't starve the result set against a wide but recent row window.
func (b *SQLBackend) Query(collection string, filter Filter, limit int) ([]Entry, error) {
	fetch := limit * 2
	query := `SELECT key, data, stored_at FROM kv_store WHERE collection = ? ORDER BY stored_at DESC`
	args := []interface{}{collection}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, fetch)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: query %s: %w", collection, err)
	}
	defer rows.Close()

	out := make([]Entry, 0)
	for rows.Next() {
		var key, data string
		var storedAt time.Time
		if err := rows.Scan(&key, &data, &storedAt); err != nil {
			return nil, fmt.Errorf("persistence: scan row in %s: %w", collection, err)
		}
		var v map[string]interface{}
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal row %s/%s: %w", collection, key, err)
		}
		e := Entry{Key: key, Value: v, StoredAt: storedAt}
		if filter != nil && !filter(e) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

func (b *SQLBackend) Delete(collection, key string) error {
	_, err := b.db.Exec(`DELETE FROM kv_store WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("persistence: delete %s/%s: %w", collection, key, err)
	}
	return nil
}

func (b *SQLBackend) ClearOlderThan(collection string, days int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	res, err := b.db.Exec(`DELETE FROM kv_store WHERE collection = ? AND stored_at < ?`, collection, cutoff)
	if err != nil {
		return 0, fmt.Errorf("persistence: clear old rows in %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// CalculateMedianTaskDuration computes the median over
// task_outcomes.actual_hours for successful, nonzero-duration outcomes,
// consumed by Memory.GetGlobalMedianDuration. Outcomes are stored as
// kv_store rows whose data blob carries success/actual_hours;
// modernc.org/sqlite has no native MEDIAN aggregate, so this extracts the
// JSON field in SQL and completes the median in Go over the sorted set,
// still in a single query round-trip.
func (b *SQLBackend) CalculateMedianTaskDuration() (float64, error) {
	rows, err := b.db.Query(
		`SELECT json_extract(data, '$.actual_hours') FROM kv_store
		 WHERE collection = 'task_outcomes'
		   AND json_extract(data, '$.success') = 1
		   AND json_extract(data, '$.actual_hours') > 0
		 ORDER BY json_extract(data, '$.actual_hours')`,
	)
	if err != nil {
		return 0, fmt.Errorf("persistence: median query: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, nil
	}
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], nil
	}
	return (values[mid-1] + values[mid]) / 2, nil
}

func (b *SQLBackend) Close() error { return b.db.Close() }
