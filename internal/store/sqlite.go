package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"gym-booking-service/internal/datekey"
)

// fixed width so text order matches time order
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) FindByUserAndDate(ctx context.Context, userID string, date datekey.Key) (*Reservation, error) {
	q := `SELECT id, user_id, display_name, email, date, slot, created_at
	      FROM reservations WHERE user_id = ? AND date = ?
	      ORDER BY created_at LIMIT 1`
	r, err := scanReservation(s.db.QueryRowContext(ctx, q, userID, string(date)).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reservation for %s on %s: %w", userID, date, err)
	}
	return &r, nil
}

func (s *SQLiteStore) FindByUserAndDateRange(ctx context.Context, userID string, start, end datekey.Key) ([]Reservation, error) {
	q := `SELECT id, user_id, display_name, email, date, slot, created_at
	      FROM reservations
	      WHERE user_id = ? AND date >= ? AND date <= ?
	      ORDER BY date, created_at`
	rows, err := s.db.QueryContext(ctx, q, userID, string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		r, err := scanReservation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, r Reservation) (Reservation, error) {
	if r.ID == "" {
		r.ID = ReservationID(r.UserID, r.Date, r.Slot)
	}
	r.CreatedAt = s.now().UTC()

	q := `INSERT INTO reservations (id, user_id, display_name, email, date, slot, created_at)
	      VALUES (?, ?, ?, ?, ?, ?, ?)`
	var email any
	if r.Email != nil {
		email = *r.Email
	}
	_, err := s.db.ExecContext(ctx, q, r.ID, r.UserID, r.DisplayName, email,
		string(r.Date), r.Slot, r.CreatedAt.Format(timeFormat))
	if err != nil {
		if isUniqueViolation(err) {
			return Reservation{}, fmt.Errorf("%w: %s", ErrConflict, r.ID)
		}
		return Reservation{}, fmt.Errorf("create reservation %s: %w", r.ID, err)
	}
	return r, nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	q := `SELECT user_id, first_name, last_name FROM user_profiles WHERE user_id = ?`
	var p Profile
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&p.UserID, &p.FirstName, &p.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, p Profile) error {
	q := `INSERT INTO user_profiles (user_id, first_name, last_name) VALUES (?, ?, ?)
	      ON CONFLICT(user_id) DO UPDATE SET first_name=excluded.first_name, last_name=excluded.last_name`
	if _, err := s.db.ExecContext(ctx, q, p.UserID, p.FirstName, p.LastName); err != nil {
		return fmt.Errorf("save profile %s: %w", p.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) GetStats(ctx context.Context, userID string) (Stats, error) {
	q := `SELECT name, career, age, weight, height, workouts_completed, avg_workout_time, updated_at
	      FROM user_stats WHERE user_id = ?`
	var st Stats
	var updated string
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&st.Name, &st.Career, &st.Age, &st.Weight,
		&st.Height, &st.WorkoutsCompleted, &st.AvgWorkoutTime, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, ErrNotFound
	}
	if err != nil {
		return Stats{}, fmt.Errorf("get stats %s: %w", userID, err)
	}
	st.UpdatedAt, err = time.Parse(timeFormat, updated)
	if err != nil {
		return Stats{}, fmt.Errorf("get stats %s: bad updated_at: %w", userID, err)
	}
	return st, nil
}

func (s *SQLiteStore) SaveStats(ctx context.Context, userID string, st Stats) (Stats, error) {
	st.UpdatedAt = s.now().UTC()
	q := `INSERT INTO user_stats
	      (user_id, name, career, age, weight, height, workouts_completed, avg_workout_time, updated_at)
	      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	      ON CONFLICT(user_id) DO UPDATE SET
	        name=excluded.name, career=excluded.career, age=excluded.age,
	        weight=excluded.weight, height=excluded.height,
	        workouts_completed=excluded.workouts_completed,
	        avg_workout_time=excluded.avg_workout_time, updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q, userID, st.Name, st.Career, st.Age, st.Weight, st.Height,
		st.WorkoutsCompleted, st.AvgWorkoutTime, st.UpdatedAt.Format(timeFormat))
	if err != nil {
		return Stats{}, fmt.Errorf("save stats %s: %w", userID, err)
	}
	return st, nil
}

func (s *SQLiteStore) ListOverrides(ctx context.Context) (map[datekey.Key][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date, slots FROM slot_overrides ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list slot overrides: %w", err)
	}
	defer rows.Close()

	out := map[datekey.Key][]string{}
	for rows.Next() {
		var d, raw string
		if err := rows.Scan(&d, &raw); err != nil {
			return nil, err
		}
		var labels []string
		if err := json.Unmarshal([]byte(raw), &labels); err != nil {
			return nil, fmt.Errorf("slot override %s: %w", d, err)
		}
		out[datekey.Key(d)] = labels
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutOverride(ctx context.Context, date datekey.Key, labels []string) error {
	raw, err := json.Marshal(labels)
	if err != nil {
		return err
	}
	q := `INSERT INTO slot_overrides (date, slots) VALUES (?, ?)
	      ON CONFLICT(date) DO UPDATE SET slots=excluded.slots`
	if _, err := s.db.ExecContext(ctx, q, string(date), string(raw)); err != nil {
		return fmt.Errorf("put slot override %s: %w", date, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteOverride(ctx context.Context, date datekey.Key) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slot_overrides WHERE date = ?`, string(date))
	if err != nil {
		return fmt.Errorf("delete slot override %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReservation(scan func(dest ...any) error) (Reservation, error) {
	var r Reservation
	var date, created string
	var email sql.NullString
	if err := scan(&r.ID, &r.UserID, &r.DisplayName, &email, &date, &r.Slot, &created); err != nil {
		return Reservation{}, err
	}
	r.Date = datekey.Key(date)
	if email.Valid {
		e := email.String
		r.Email = &e
	}
	t, err := time.Parse(timeFormat, created)
	if err != nil {
		return Reservation{}, fmt.Errorf("reservation %s: bad created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
