package journal

const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	symbol TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	starting_capital REAL NOT NULL,
	result REAL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at);

CREATE TABLE IF NOT EXISTS session_state (
	session_id TEXT PRIMARY KEY REFERENCES sessions(id),
	cursor INTEGER NOT NULL,
	cash REAL NOT NULL,
	position_qty REAL NOT NULL,
	position_avg_price REAL NOT NULL,
	timeframe TEXT NOT NULL,
	completed INTEGER NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	side TEXT NOT NULL,
	price REAL NOT NULL,
	qty REAL NOT NULL,
	cursor INTEGER NOT NULL,
	executed_at DATETIME NOT NULL,
	realized_pl REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, trade_id);
`
