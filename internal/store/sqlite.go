// Package store provides storage backends for MovieBot.
//
// This file implements an SQLite-backed store for bookings and session state.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/MovieBot/MovieBot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	slog.Debug("SQLite database opened")

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure tables exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveSessionState stores or updates flow state for a session.
func (s *SQLiteStore) SaveSessionState(state models.SessionState) error {
	query := `
		INSERT OR REPLACE INTO booking_sessions (session_id, flow_type, current_state, state_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	// Convert state_data map to JSON string for SQLite
	var stateDataJSON string
	if len(state.StateData) > 0 {
		jsonBytes, err := json.Marshal(state.StateData)
		if err != nil {
			slog.Error("SQLiteStore SaveSessionState JSON marshal failed", "error", err, "sessionID", state.SessionID)
			return err
		}
		stateDataJSON = string(jsonBytes)
	}

	_, err := s.db.Exec(query, state.SessionID, state.FlowType, state.CurrentState,
		stateDataJSON, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSessionState failed", "error", err, "sessionID", state.SessionID, "flowType", state.FlowType)
		return err
	}
	slog.Debug("SQLiteStore SaveSessionState succeeded", "sessionID", state.SessionID, "flowType", state.FlowType, "state", state.CurrentState)
	return nil
}

// GetSessionState retrieves flow state for a session.
func (s *SQLiteStore) GetSessionState(sessionID, flowType string) (*models.SessionState, error) {
	query := `SELECT session_id, flow_type, current_state, state_data, created_at, updated_at
			  FROM booking_sessions WHERE session_id = ? AND flow_type = ?`

	var state models.SessionState
	var stateDataJSON string

	err := s.db.QueryRow(query, sessionID, flowType).Scan(
		&state.SessionID, &state.FlowType, &state.CurrentState,
		&stateDataJSON, &state.CreatedAt, &state.UpdatedAt)

	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSessionState not found", "sessionID", sessionID, "flowType", flowType)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSessionState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return nil, err
	}

	// Convert JSON back to map[string]string
	if stateDataJSON != "" {
		state.StateData = make(map[string]string)
		if err := json.Unmarshal([]byte(stateDataJSON), &state.StateData); err != nil {
			slog.Error("SQLiteStore GetSessionState JSON unmarshal failed", "error", err, "sessionID", sessionID)
			// Continue with empty map rather than failing
			state.StateData = make(map[string]string)
		}
	}

	slog.Debug("SQLiteStore GetSessionState found", "sessionID", sessionID, "flowType", flowType, "state", state.CurrentState)
	return &state, nil
}

// DeleteSessionState removes flow state for a session.
func (s *SQLiteStore) DeleteSessionState(sessionID, flowType string) error {
	query := `DELETE FROM booking_sessions WHERE session_id = ? AND flow_type = ?`

	_, err := s.db.Exec(query, sessionID, flowType)
	if err != nil {
		slog.Error("SQLiteStore DeleteSessionState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}
	slog.Debug("SQLiteStore DeleteSessionState succeeded", "sessionID", sessionID, "flowType", flowType)
	return nil
}

// AddBooking writes a booking record.
func (s *SQLiteStore) AddBooking(record models.BookingRecord) error {
	if err := record.Validate(); err != nil {
		slog.Error("SQLiteStore AddBooking invalid record", "error", err, "bookingID", record.BookingID)
		return err
	}
	_, err := s.db.Exec(`INSERT INTO bookings (booking_id, movie_name, theater, showtime, seat, created_at, user_session_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.BookingID, record.MovieName, record.Theater, record.Showtime,
		record.Seat, record.CreatedAt, record.UserSessionID)
	if err != nil {
		slog.Error("SQLiteStore AddBooking failed", "error", err, "bookingID", record.BookingID)
		return fmt.Errorf("failed to insert booking %s: %w", record.BookingID, err)
	}
	slog.Debug("SQLiteStore AddBooking succeeded", "bookingID", record.BookingID, "movie", record.MovieName, "seat", record.Seat)
	return nil
}

// GetBookingsByMovie returns all bookings for an exact movie name.
func (s *SQLiteStore) GetBookingsByMovie(movieName string) ([]models.BookingRecord, error) {
	rows, err := s.db.Query(`SELECT booking_id, movie_name, theater, showtime, seat, created_at, user_session_id
		FROM bookings WHERE movie_name = ? ORDER BY created_at`, movieName)
	if err != nil {
		slog.Error("SQLiteStore GetBookingsByMovie query failed", "error", err, "movie", movieName)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.BookingRecord
	for rows.Next() {
		var r models.BookingRecord
		if err := rows.Scan(&r.BookingID, &r.MovieName, &r.Theater, &r.Showtime, &r.Seat, &r.CreatedAt, &r.UserSessionID); err != nil {
			slog.Error("SQLiteStore GetBookingsByMovie scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		bookings = append(bookings, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetBookingsByMovie rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate booking rows: %w", err)
	}
	slog.Debug("SQLiteStore GetBookingsByMovie succeeded", "movie", movieName, "count", len(bookings))
	return bookings, nil
}

// GetBookedSeats returns seats taken for a movie/theater/showtime combination.
func (s *SQLiteStore) GetBookedSeats(movie, theater, showtime string) ([]string, error) {
	rows, err := s.db.Query(`SELECT seat FROM bookings WHERE movie_name = ? AND theater = ? AND showtime = ?`,
		movie, theater, showtime)
	if err != nil {
		slog.Error("SQLiteStore GetBookedSeats query failed", "error", err, "movie", movie)
		return nil, fmt.Errorf("failed to query booked seats: %w", err)
	}
	defer rows.Close()

	var seats []string
	for rows.Next() {
		var seat string
		if err := rows.Scan(&seat); err != nil {
			slog.Error("SQLiteStore GetBookedSeats scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan seat row: %w", err)
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetBookedSeats rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate seat rows: %w", err)
	}
	slog.Debug("SQLiteStore GetBookedSeats succeeded", "movie", movie, "count", len(seats))
	return seats, nil
}

// ClearBookings deletes all records in the bookings table (for tests).
func (s *SQLiteStore) ClearBookings() error {
	_, err := s.db.Exec("DELETE FROM bookings")
	if err != nil {
		slog.Error("SQLiteStore ClearBookings failed", "error", err)
		return err
	}
	slog.Debug("SQLiteStore ClearBookings succeeded")
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	} else {
		slog.Debug("SQLite database connection closed successfully")
	}
	return err
}
