package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MovieBot/MovieBot/internal/models"
	"github.com/MovieBot/MovieBot/internal/store"
	"github.com/google/uuid"
)

// Notifier sends outbound alert messages. Satisfied by notify.Client.
type Notifier interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// BookingPersister validates completeness, generates booking identifiers and
// writes finished bookings to the store.
type BookingPersister struct {
	store       store.Store
	notifier    Notifier
	alertNumber string
}

// NewBookingPersister creates a persister over the given store. The notifier
// and alert number are optional; when both are set, every persisted booking
// triggers a best-effort SMS to the booking desk.
func NewBookingPersister(st store.Store, notifier Notifier, alertNumber string) *BookingPersister {
	return &BookingPersister{store: st, notifier: notifier, alertNumber: alertNumber}
}

// Persist writes the session's booking state as a new record. It refuses,
// without side effect, when movie or seat is empty. Theater and showtime
// default to "Unknown". The session's user identifier is generated on first
// use and cached on the session.
func (p *BookingPersister) Persist(ctx context.Context, session *models.SessionContext) (*models.BookingRecord, error) {
	state := &session.State
	if state.Movie == "" || state.Seat == "" {
		slog.Debug("BookingPersister Persist refused incomplete state", "sessionID", session.SessionID, "missing", state.MissingFields())
		return nil, models.ErrIncompleteBooking
	}
	if p.store == nil {
		slog.Error("BookingPersister Persist: store not configured", "sessionID", session.SessionID)
		return nil, models.ErrStoreUnavailable
	}

	if session.UserID == "" {
		session.UserID = uuid.NewString()
		slog.Debug("BookingPersister generated user id", "sessionID", session.SessionID, "userID", session.UserID)
	}

	theater := state.Theater
	if theater == "" {
		theater = models.UnknownField
	}
	showtime := state.Showtime
	if showtime == "" {
		showtime = models.UnknownField
	}

	record := models.BookingRecord{
		BookingID:     uuid.NewString(),
		MovieName:     state.Movie,
		Theater:       theater,
		Showtime:      showtime,
		Seat:          state.Seat,
		CreatedAt:     time.Now().UTC(),
		UserSessionID: session.UserID,
	}

	if err := p.store.AddBooking(record); err != nil {
		slog.Error("BookingPersister Persist failed", "error", err, "bookingID", record.BookingID, "sessionID", session.SessionID)
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}
	slog.Info("BookingPersister Persist succeeded", "bookingID", record.BookingID, "movie", record.MovieName, "seat", record.Seat)

	p.alertBookingDesk(ctx, record)
	return &record, nil
}

// alertBookingDesk sends a best-effort SMS about the new booking. Failures
// are logged and never surfaced to the user.
func (p *BookingPersister) alertBookingDesk(ctx context.Context, record models.BookingRecord) {
	if p.notifier == nil || p.alertNumber == "" {
		return
	}
	body := fmt.Sprintf("New booking %s: %s at %s, %s, %s",
		record.BookingID, record.MovieName, record.Theater, record.Showtime, record.Seat)
	if err := p.notifier.SendMessage(ctx, p.alertNumber, body); err != nil {
		slog.Error("BookingPersister alert failed", "error", err, "bookingID", record.BookingID)
		return
	}
	slog.Debug("BookingPersister alert sent", "bookingID", record.BookingID, "to", p.alertNumber)
}

// BookingsByMovie returns all persisted bookings for an exact movie name.
func (p *BookingPersister) BookingsByMovie(movieName string) ([]models.BookingRecord, error) {
	if p.store == nil {
		return nil, models.ErrStoreUnavailable
	}
	return p.store.GetBookingsByMovie(movieName)
}

// BookedSeats returns the seats already taken for an exact
// movie/theater/showtime combination.
func (p *BookingPersister) BookedSeats(movie, theater, showtime string) ([]string, error) {
	if p.store == nil {
		return nil, models.ErrStoreUnavailable
	}
	return p.store.GetBookedSeats(movie, theater, showtime)
}
