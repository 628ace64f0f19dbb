package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gym-booking-service/internal/datekey"
)

const pgUniqueViolation = "23505"

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// OpenPostgres connects to dbURL, checks the connection and applies the schema.
func OpenPostgres(ctx context.Context, dbURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PostgresStore{DB: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.DB.Close()
	return nil
}

func (s *PostgresStore) FindByUserAndDate(ctx context.Context, userID string, date datekey.Key) (*Reservation, error) {
	q := `SELECT id,user_id,display_name,email,date,slot,created_at
	      FROM reservations WHERE user_id=$1 AND date=$2
	      ORDER BY created_at LIMIT 1`
	var r Reservation
	var d string
	err := s.DB.QueryRow(ctx, q, userID, string(date)).Scan(
		&r.ID, &r.UserID, &r.DisplayName, &r.Email, &d, &r.Slot, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find reservation for %s on %s: %w", userID, date, err)
	}
	r.Date = datekey.Key(d)
	return &r, nil
}

func (s *PostgresStore) FindByUserAndDateRange(ctx context.Context, userID string, start, end datekey.Key) ([]Reservation, error) {
	q := `SELECT id,user_id,display_name,email,date,slot,created_at
	      FROM reservations
	      WHERE user_id=$1 AND date >= $2 AND date <= $3
	      ORDER BY date, created_at`
	rows, err := s.DB.Query(ctx, q, userID, string(start), string(end))
	if err != nil {
		return nil, fmt.Errorf("list reservations for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var r Reservation
		var d string
		if err := rows.Scan(&r.ID, &r.UserID, &r.DisplayName, &r.Email, &d, &r.Slot, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Date = datekey.Key(d)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, r Reservation) (Reservation, error) {
	if r.ID == "" {
		r.ID = ReservationID(r.UserID, r.Date, r.Slot)
	}
	q := `INSERT INTO reservations (id, user_id, display_name, email, date, slot, created_at)
	      VALUES ($1,$2,$3,$4,$5,$6,now())
	      RETURNING created_at`
	err := s.DB.QueryRow(ctx, q, r.ID, r.UserID, r.DisplayName, r.Email, string(r.Date), r.Slot).Scan(&r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Reservation{}, fmt.Errorf("%w: %s", ErrConflict, r.ID)
		}
		return Reservation{}, fmt.Errorf("create reservation %s: %w", r.ID, err)
	}
	return r, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	q := `SELECT user_id, first_name, last_name FROM user_profiles WHERE user_id=$1`
	var p Profile
	err := s.DB.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.FirstName, &p.LastName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p Profile) error {
	q := `INSERT INTO user_profiles (user_id, first_name, last_name) VALUES ($1,$2,$3)
	      ON CONFLICT (user_id) DO UPDATE SET first_name=EXCLUDED.first_name, last_name=EXCLUDED.last_name`
	if _, err := s.DB.Exec(ctx, q, p.UserID, p.FirstName, p.LastName); err != nil {
		return fmt.Errorf("save profile %s: %w", p.UserID, err)
	}
	return nil
}

func (s *PostgresStore) GetStats(ctx context.Context, userID string) (Stats, error) {
	q := `SELECT name,career,age,weight,height,workouts_completed,avg_workout_time,updated_at
	      FROM user_stats WHERE user_id=$1`
	var st Stats
	err := s.DB.QueryRow(ctx, q, userID).Scan(&st.Name, &st.Career, &st.Age, &st.Weight,
		&st.Height, &st.WorkoutsCompleted, &st.AvgWorkoutTime, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Stats{}, ErrNotFound
	}
	if err != nil {
		return Stats{}, fmt.Errorf("get stats %s: %w", userID, err)
	}
	return st, nil
}

func (s *PostgresStore) SaveStats(ctx context.Context, userID string, st Stats) (Stats, error) {
	st.UpdatedAt = time.Now().UTC()
	q := `INSERT INTO user_stats
	      (user_id,name,career,age,weight,height,workouts_completed,avg_workout_time,updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	      ON CONFLICT (user_id) DO UPDATE SET
	        name=EXCLUDED.name, career=EXCLUDED.career, age=EXCLUDED.age,
	        weight=EXCLUDED.weight, height=EXCLUDED.height,
	        workouts_completed=EXCLUDED.workouts_completed,
	        avg_workout_time=EXCLUDED.avg_workout_time, updated_at=EXCLUDED.updated_at`
	_, err := s.DB.Exec(ctx, q, userID, st.Name, st.Career, st.Age, st.Weight, st.Height,
		st.WorkoutsCompleted, st.AvgWorkoutTime, st.UpdatedAt)
	if err != nil {
		return Stats{}, fmt.Errorf("save stats %s: %w", userID, err)
	}
	return st, nil
}

func (s *PostgresStore) ListOverrides(ctx context.Context) (map[datekey.Key][]string, error) {
	rows, err := s.DB.Query(ctx, `SELECT date, slots FROM slot_overrides ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list slot overrides: %w", err)
	}
	defer rows.Close()

	out := map[datekey.Key][]string{}
	for rows.Next() {
		var d string
		var labels []string
		if err := rows.Scan(&d, &labels); err != nil {
			return nil, err
		}
		out[datekey.Key(d)] = labels
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutOverride(ctx context.Context, date datekey.Key, labels []string) error {
	q := `INSERT INTO slot_overrides (date, slots) VALUES ($1,$2)
	      ON CONFLICT (date) DO UPDATE SET slots=EXCLUDED.slots`
	if _, err := s.DB.Exec(ctx, q, string(date), labels); err != nil {
		return fmt.Errorf("put slot override %s: %w", date, err)
	}
	return nil
}

func (s *PostgresStore) DeleteOverride(ctx context.Context, date datekey.Key) error {
	res, err := s.DB.Exec(ctx, `DELETE FROM slot_overrides WHERE date=$1`, string(date))
	if err != nil {
		return fmt.Errorf("delete slot override %s: %w", date, err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
