package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='entries'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "entries", name)
}

func TestSQLiteAppend(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, j.Append(Entry{
		Timestamp:  ts,
		Symbol:     "EURUSD",
		Action:     ActionSell,
		Status:     StatusRejected,
		Size:       1.25,
		Price:      1.0842,
		Stop:       1.0901,
		SpreadPips: 0.8,
		Comment:    "10016 invalid stops",
	}))
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		id, symbol, action, status, comment string
		size, price, stop, spread           float64
		gotTS                               time.Time
	)
	err = db.QueryRow(`
		SELECT id, timestamp, symbol, action, status, size, price, stop, spread_pips, comment
		FROM entries`).Scan(&id, &gotTS, &symbol, &action, &status, &size, &price, &stop, &spread, &comment)
	require.NoError(t, err)

	assert.Len(t, id, 26)
	assert.True(t, ts.Equal(gotTS))
	assert.Equal(t, "EURUSD", symbol)
	assert.Equal(t, "SELL", action)
	assert.Equal(t, "REJECTED", status)
	assert.InDelta(t, 1.25, size, 1e-12)
	assert.InDelta(t, 1.0842, price, 1e-12)
	assert.InDelta(t, 1.0901, stop, 1e-12)
	assert.InDelta(t, 0.8, spread, 1e-12)
	assert.Equal(t, "10016 invalid stops", comment)
}

func TestSQLiteDuplicateID(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	e := Entry{ID: "X1", Symbol: "EURUSD", Action: ActionTrail, Status: StatusUpdated}
	require.NoError(t, j.Append(e))
	assert.Error(t, j.Append(e))
}
