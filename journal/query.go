package journal

import (
	"time"
)

// Between returns entries with timestamp in [start, end), oldest first.
func (j *SQLite) Between(start, end time.Time) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, timestamp, symbol, action, status, size, price, stop, spread_pips, comment
		FROM entries
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, id ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e              Entry
			action, status string
		)
		if err := rows.Scan(
			&e.ID,
			&e.Timestamp,
			&e.Symbol,
			&action,
			&status,
			&e.Size,
			&e.Price,
			&e.Stop,
			&e.SpreadPips,
			&e.Comment,
		); err != nil {
			return nil, err
		}
		e.Action, e.Status = Action(action), Status(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Day returns the entries of the calendar day containing t in t's location.
func (j *SQLite) Day(t time.Time) ([]Entry, error) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return j.Between(start, start.AddDate(0, 0, 1))
}

// Summary counts entries per action and status.
type Summary struct {
	Total    int
	ByAction map[Action]int
	ByStatus map[Status]int
}

func Summarize(entries []Entry) Summary {
	s := Summary{ByAction: map[Action]int{}, ByStatus: map[Status]int{}}
	for _, e := range entries {
		s.Total++
		s.ByAction[e.Action]++
		s.ByStatus[e.Status]++
	}
	return s
}
