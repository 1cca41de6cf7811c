package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/propbot/pkg/id"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) Append(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.ID == "" {
		e.ID = id.At(e.Timestamp)
	}
	_, err := j.db.Exec(`
		INSERT INTO entries
		(id, timestamp, symbol, action, status, size, price, stop, spread_pips, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC(), e.Symbol, string(e.Action), string(e.Status),
		e.Size, e.Price, e.Stop, e.SpreadPips, e.Comment,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
