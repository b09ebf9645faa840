// Package store provides storage backends for MovieBot.
//
// This file implements a PostgreSQL-backed store for bookings and session state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/MovieBot/MovieBot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	slog.Debug("Postgres database opened")

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")
	// Run migrations to ensure bookings tables exist
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveSessionState stores or updates flow state for a session.
func (s *PostgresStore) SaveSessionState(state models.SessionState) error {
	query := `
		INSERT INTO booking_sessions (session_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, flow_type)
		DO UPDATE SET current_state = EXCLUDED.current_state,
		              state_data = EXCLUDED.state_data,
		              updated_at = EXCLUDED.updated_at`

	var stateDataJSON []byte
	if len(state.StateData) > 0 {
		jsonBytes, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("PostgresStore SaveSessionState JSON marshal failed", "error", err, "sessionID", state.SessionID)
			return err
		}
		stateDataJSON = jsonBytes
	}

	_, err := s.db.Exec(query, state.SessionID, state.FlowType, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSessionState failed", "error", err, "sessionID", state.SessionID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("PostgresStore SaveSessionState succeeded", "sessionID", state.SessionID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetSessionState retrieves flow state for a session.
func (s *PostgresStore) GetSessionState(sessionID, flowType string) (*models.SessionState, error) {
	query := `SELECT session_id, flow_type, current_state, state_data, created_at, updated_at
			  FROM booking_sessions WHERE session_id = $1 AND flow_type = $2`

	var state models.SessionState
	var stateDataJSON sql.NullString

	err := s.db.QueryRow(query, sessionID, flowType).Scan(
		&state.SessionID, &state.FlowType, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSessionState not found", "sessionID", sessionID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSessionState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return nil, err
	}

	if stateDataJSON.Valid && stateDataJSON.String != "" {
		state.StateData = make(map[string]string)
		if err := json.Unmarshal([]byte(stateDataJSON.String), &state.StateData); err != nil {
			slog.Error("PostgresStore GetSessionState JSON unmarshal failed", "error", err, "sessionID", sessionID)
			// Continue with empty map rather than failing
			state.StateData = make(map[string]string)
		}
	}

	slog.Debug("PostgresStore GetSessionState found", "sessionID", sessionID, "flowType", flowType, "state", state.CurrentState)
	return &state, nil
}

// DeleteSessionState removes flow state for a session.
func (s *PostgresStore) DeleteSessionState(sessionID, flowType string) error {
	query := `DELETE FROM booking_sessions WHERE session_id = $1 AND flow_type = $2`

	_, err := s.db.Exec(query, sessionID, flowType)
	if err != nil {
		slog.Error("PostgresStore DeleteSessionState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}
	slog.Debug("PostgresStore DeleteSessionState succeeded", "sessionID", sessionID, "flowType", flowType)
	return nil
}

// AddBooking writes a booking record.
func (s *PostgresStore) AddBooking(record models.BookingRecord) error {
	if err := record.Validate(); err != nil {
		slog.Error("PostgresStore AddBooking invalid record", "error", err, "bookingID", record.BookingID)
		return err
	}
	_, err := s.db.Exec(`INSERT INTO bookings (booking_id, movie_name, theater, showtime, seat, created_at, user_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.BookingID, record.MovieName, record.Theater, record.Showtime,
		record.Seat, record.CreatedAt, record.UserSessionID)
	if err != nil {
		slog.Error("PostgresStore AddBooking failed", "error", err, "bookingID", record.BookingID)
		return fmt.Errorf("failed to insert booking %s: %w", record.BookingID, err)
	}
	slog.Debug("PostgresStore AddBooking succeeded", "bookingID", record.BookingID, "movie", record.MovieName, "seat", record.Seat)
	return nil
}

// GetBookingsByMovie returns all bookings for an exact movie name.
func (s *PostgresStore) GetBookingsByMovie(movieName string) ([]models.BookingRecord, error) {
	rows, err := s.db.Query(`SELECT booking_id, movie_name, theater, showtime, seat, created_at, user_session_id
		FROM bookings WHERE movie_name = $1 ORDER BY created_at`, movieName)
	if err != nil {
		slog.Error("PostgresStore GetBookingsByMovie query failed", "error", err, "movie", movieName)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.BookingRecord
	for rows.Next() {
		var r models.BookingRecord
		if err := rows.Scan(&r.BookingID, &r.MovieName, &r.Theater, &r.Showtime, &r.Seat, &r.CreatedAt, &r.UserSessionID); err != nil {
			slog.Error("PostgresStore GetBookingsByMovie scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetBookingsByMovie rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate booking rows: %w", err)
	}
	slog.Debug("PostgresStore GetBookingsByMovie succeeded", "movie", movieName, "count", len(bookings))
	return bookings, nil
}

// GetBookedSeats returns seats taken for a movie/theater/showtime combination.
func (s *PostgresStore) GetBookedSeats(movie, theater, showtime string) ([]string, error) {
	rows, err := s.db.Query(`SELECT seat FROM bookings WHERE movie_name = $1 AND theater = $2 AND showtime = $3`,
		movie, theater, showtime)
	if err != nil {
		slog.Error("PostgresStore GetBookedSeats query failed", "error", err, "movie", movie)
		return nil, fmt.Errorf("failed to query booked seats: %w", err)
	}
	defer rows.Close()

	var seats []string
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			slog.Error("PostgresStore GetBookedSeats scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan seat row: %w", err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetBookedSeats rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate seat rows: %w", err)
	}
	slog.Debug("PostgresStore GetBookedSeats succeeded", "movie", movie, "count", len(seats))
	return seats, nil
}

// ClearBookings deletes all records in the bookings table (for tests).
func (s *PostgresStore) ClearBookings() error {
	_, err := s.db.Exec("DELETE FROM bookings")
	if err != nil {
		slog.Error("PostgresStore ClearBookings failed", "error", err)
		return err
	}
	slog.Debug("PostgresStore ClearBookings succeeded")
	return nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close Postgres database", "error", err)
	} else {
		slog.Debug("Postgres database connection closed successfully")
	}
	return err
}
