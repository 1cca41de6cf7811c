package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, j *SQLite) {
	t.Helper()

	at := func(d, h int) time.Time { return time.Date(2024, 1, d, h, 0, 0, 0, time.UTC) }
	entries := []Entry{
		{Timestamp: at(1, 23), Symbol: "EURUSD", Action: ActionBuy, Status: StatusFilled},
		{Timestamp: at(2, 0), Symbol: "GBPUSD", Action: ActionSkip, Status: StatusBlocked},
		{Timestamp: at(2, 9), Symbol: "EURUSD", Action: ActionTrail, Status: StatusUpdated},
		{Timestamp: at(2, 15), Symbol: "EURUSD", Action: ActionExit, Status: StatusClosed},
		{Timestamp: at(3, 0), Symbol: "AAPL", Action: ActionBuy, Status: StatusRejected},
	}
	for _, e := range entries {
		require.NoError(t, j.Append(e))
	}
}

func TestSQLiteDay(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })
	seed(t, j)

	got, err := j.Day(time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "GBPUSD", got[0].Symbol)
	assert.Equal(t, ActionTrail, got[1].Action)
	assert.Equal(t, StatusClosed, got[2].Status)
	assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))

	none, err := j.Day(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteBetweenHalfOpen(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })
	seed(t, j)

	got, err := j.Between(
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize([]Entry{
		{Action: ActionBuy, Status: StatusFilled},
		{Action: ActionBuy, Status: StatusRejected},
		{Action: ActionKill, Status: StatusKillFail},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByAction[ActionBuy])
	assert.Equal(t, 1, s.ByStatus[StatusKillFail])
	assert.Zero(t, s.ByAction[ActionExit])
}
