package store

// Date columns hold YYYY-MM-DD text so range scans follow key order.

const postgresSchema = `
CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT,
	date TEXT NOT NULL,
	slot TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS reservations_user_date_idx ON reservations (user_id, date);

CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_stats (
	user_id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	career TEXT NOT NULL DEFAULT '',
	age TEXT NOT NULL DEFAULT '',
	weight TEXT NOT NULL DEFAULT '',
	height TEXT NOT NULL DEFAULT '',
	workouts_completed TEXT NOT NULL DEFAULT '',
	avg_workout_time TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS slot_overrides (
	date TEXT PRIMARY KEY,
	slots TEXT[] NOT NULL
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reservations (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	email TEXT,
	date TEXT NOT NULL,
	slot TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS reservations_user_date_idx ON reservations (user_id, date);

CREATE TABLE IF NOT EXISTS user_profiles (
	user_id TEXT PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS user_stats (
	user_id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	career TEXT NOT NULL DEFAULT '',
	age TEXT NOT NULL DEFAULT '',
	weight TEXT NOT NULL DEFAULT '',
	height TEXT NOT NULL DEFAULT '',
	workouts_completed TEXT NOT NULL DEFAULT '',
	avg_workout_time TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS slot_overrides (
	date TEXT PRIMARY KEY,
	slots TEXT NOT NULL
);
`
