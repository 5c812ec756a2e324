// Package calllog persists a local record of tool invocations made through
// mcplug, so `mcplug call` output can be replayed or audited after the
// fact. Grounded in the teacher's history package (history/history.go),
// which stored chat conversations in a SQLite database opened with
// github.com/mattn/go-sqlite3; the schema and connection-lifecycle idiom
// are kept, repurposed here from chat messages to call records.
package calllog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDatabasePath is where the call log lives when no override is
// given, alongside mcplug's other on-disk state.
var DefaultDatabasePath = filepath.Join(os.Getenv("HOME"), ".mcplug", "calls.db")

// Record is one logged tool invocation.
type Record struct {
	ID         string
	Server     string
	Tool       string
	ArgsJSON   string
	ResultText string
	IsError    bool
	DurationMS int64
	CreatedAt  time.Time
}

// initDB ensures the database and its table exist, returning a connection.
func initDB(dataSourceName string) (*sql.DB, error) {
	dbDir := filepath.Dir(dataSourceName)
	if _, err := os.Stat(dbDir); os.IsNotExist(err) {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS calls (
		id TEXT PRIMARY KEY,
		server TEXT NOT NULL,
		tool TEXT NOT NULL,
		args_json TEXT NOT NULL,
		result_text TEXT NOT NULL,
		is_error INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Append records one call into the database at dbPath, assigning it a
// fresh ID and the current timestamp.
func Append(dbPath string, server, tool string, args map[string]interface{}, resultText string, isError bool, duration time.Duration) error {
	db, err := initDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}

	_, err = db.Exec(
		`INSERT INTO calls (id, server, tool, args_json, result_text, is_error, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		id.String(), server, tool, string(argsJSON), resultText, boolToInt(isError), duration.Milliseconds(), time.Now(),
	)
	return err
}

// Recent returns up to limit of the most recently logged calls, newest
// first.
func Recent(dbPath string, limit int) ([]Record, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := initDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT id, server, tool, args_json, result_text, is_error, duration_ms, created_at FROM calls ORDER BY created_at DESC LIMIT ?;`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var isErr int
		if err := rows.Scan(&r.ID, &r.Server, &r.Tool, &r.ArgsJSON, &r.ResultText, &isErr, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.IsError = isErr != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r Record) String() string {
	status := "ok"
	if r.IsError {
		status = "error"
	}
	return fmt.Sprintf("%s  %s.%s  [%s]  %dms", r.CreatedAt.Format(time.RFC3339), r.Server, r.Tool, status, r.DurationMS)
}
