package journal

const Schema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	status TEXT NOT NULL,
	size REAL NOT NULL,
	price REAL NOT NULL,
	stop REAL NOT NULL,
	spread_pips REAL NOT NULL,
	comment TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_timestamp ON entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_entries_symbol ON entries(symbol);
`
