// Package store provides storage backends for MovieBot.
//
// It persists booking records and per-session flow state, with an in-memory
// store for tests and development and SQLite/PostgreSQL backends for
// deployment.
package store

import (
	"strings"
	"sync"

	"github.com/MovieBot/MovieBot/internal/models"
)

// Store is the persistence boundary for bookings and session flow state.
type Store interface {
	// SaveSessionState stores or updates flow state for a session.
	SaveSessionState(state models.SessionState) error
	// GetSessionState retrieves flow state for a session; (nil, nil) when absent.
	GetSessionState(sessionID, flowType string) (*models.SessionState, error)
	// DeleteSessionState removes flow state for a session.
	DeleteSessionState(sessionID, flowType string) error

	// AddBooking writes an immutable booking record.
	AddBooking(record models.BookingRecord) error
	// GetBookingsByMovie returns all bookings for an exact movie name.
	GetBookingsByMovie(movieName string) ([]models.BookingRecord, error)
	// GetBookedSeats returns the seats taken for an exact
	// movie/theater/showtime combination.
	GetBookedSeats(movie, theater, showtime string) ([]string, error)

	// Close releases the backend resources.
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	Driver string
	DSN    string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithSQLiteDSN configures a SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.Driver = "sqlite3"
		o.DSN = dsn
	}
}

// WithPostgresDSN configures a PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.Driver = "postgres"
		o.DSN = dsn
	}
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite3" so callers can
// pick the matching option. File paths are assumed to be SQLite.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// New builds a Store from the given options. With no DSN configured it
// returns an in-memory store.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch cfg.Driver {
	case "postgres":
		return NewPostgresStore(opts...)
	case "sqlite3":
		return NewSQLiteStore(opts...)
	default:
		return NewInMemoryStore(), nil
	}
}

// InMemoryStore keeps bookings and session state in process memory. Used in
// tests and when no database DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionState
	bookings []models.BookingRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.SessionState)}
}

func sessionKey(sessionID, flowType string) string {
	return sessionID + "\x00" + flowType
}

// SaveSessionState stores or updates flow state for a session.
func (s *InMemoryStore) SaveSessionState(state models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(state.SessionID, state.FlowType)] = state
	return nil
}

// GetSessionState retrieves flow state for a session; (nil, nil) when absent.
func (s *InMemoryStore) GetSessionState(sessionID, flowType string) (*models.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.sessions[sessionKey(sessionID, flowType)]
	if !ok {
		return nil, nil
	}
	// Copy the map so callers cannot mutate stored state.
	copied := state
	copied.StateData = make(map[string]string, len(state.StateData))
	for k, v := range state.StateData {
		copied.StateData[k] = v
	}
	return &copied, nil
}

// DeleteSessionState removes flow state for a session.
func (s *InMemoryStore) DeleteSessionState(sessionID, flowType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(sessionID, flowType))
	return nil
}

// AddBooking writes a booking record.
func (s *InMemoryStore) AddBooking(record models.BookingRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, record)
	return nil
}

// GetBookingsByMovie returns all bookings for an exact movie name.
func (s *InMemoryStore) GetBookingsByMovie(movieName string) ([]models.BookingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []models.BookingRecord
	for _, r := range s.bookings {
		if r.MovieName == movieName {
			records = append(records, r)
		}
	}
	return records, nil
}

// GetBookedSeats returns seats taken for an exact movie/theater/showtime.
func (s *InMemoryStore) GetBookedSeats(movie, theater, showtime string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var seats []string
	for _, r := range s.bookings {
		if r.MovieName == movie && r.Theater == theater && r.Showtime == showtime && r.Seat != "" {
			seats = append(seats, r.Seat)
		}
	}
	return seats, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
