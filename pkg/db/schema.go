// Package db maintains the per-model SQLite cache (user_data.db): media
// and post bookkeeping for dedup, table rendering, and incremental
// rescans, plus merging of multiple cache files into one.
package db

const schema = `
CREATE TABLE IF NOT EXISTS models (
	model_id   INTEGER PRIMARY KEY,
	username   TEXT NOT NULL,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS posts (
	post_id    INTEGER PRIMARY KEY,
	model_id   INTEGER,
	text       TEXT,
	price      REAL DEFAULT 0,
	paid       INTEGER DEFAULT 0,
	archived   INTEGER DEFAULT 0,
	pinned     INTEGER DEFAULT 0,
	created_at TEXT,
	posted_at  TEXT
);

CREATE TABLE IF NOT EXISTS messages (
	post_id    INTEGER PRIMARY KEY,
	model_id   INTEGER,
	text       TEXT,
	price      REAL DEFAULT 0,
	paid       INTEGER DEFAULT 0,
	opened     INTEGER DEFAULT 0,
	created_at TEXT,
	posted_at  TEXT
);

CREATE TABLE IF NOT EXISTS stories (
	post_id    INTEGER PRIMARY KEY,
	model_id   INTEGER,
	text       TEXT,
	price      REAL DEFAULT 0,
	created_at TEXT,
	posted_at  TEXT
);

CREATE TABLE IF NOT EXISTS medias (
	media_id   INTEGER NOT NULL,
	post_id    INTEGER NOT NULL,
	model_id   INTEGER,
	api_type   TEXT,
	media_type TEXT,
	link       TEXT,
	directory  TEXT,
	filename   TEXT,
	size       INTEGER,
	hash       TEXT,
	duration   REAL DEFAULT 0,
	preview    INTEGER DEFAULT 0,
	linked     INTEGER DEFAULT 0,
	downloaded INTEGER DEFAULT 0,
	unlocked   INTEGER DEFAULT 1,
	created_at TEXT,
	posted_at  TEXT,
	PRIMARY KEY (media_id, post_id)
);

CREATE INDEX IF NOT EXISTS idx_medias_downloaded ON medias (downloaded);
CREATE INDEX IF NOT EXISTS idx_medias_post ON medias (post_id);

CREATE TABLE IF NOT EXISTS scan_state (
	model_id   INTEGER NOT NULL,
	area       TEXT NOT NULL,
	last_scan  TEXT,
	PRIMARY KEY (model_id, area)
);
`
