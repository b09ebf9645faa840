package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MovieBot/MovieBot/internal/catalog"
	"github.com/MovieBot/MovieBot/internal/models"
)

// BookingFlow drives one chat turn through extraction, the
// collecting/confirmed state machine, the completion service and booking
// persistence.
type BookingFlow struct {
	stateManager StateManager
	extractor    *Extractor
	orchestrator *Orchestrator
	persister    *BookingPersister
}

// NewBookingFlow wires the flow components together.
func NewBookingFlow(sm StateManager, cat *catalog.Catalog, client CompletionClient, persister *BookingPersister) *BookingFlow {
	return &BookingFlow{
		stateManager: sm,
		extractor:    NewExtractor(cat),
		orchestrator: NewOrchestrator(cat, client),
		persister:    persister,
	}
}

// ProcessMessage handles one incoming user message for a session and returns
// the markup-formatted reply. External failures degrade to user-visible
// messages; the session stays usable.
func (f *BookingFlow) ProcessMessage(ctx context.Context, sessionID, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", models.ErrEmptyMessage
	}

	session, err := f.stateManager.LoadSession(ctx, sessionID)
	if err != nil {
		slog.Error("BookingFlow ProcessMessage load failed", "error", err, "sessionID", sessionID)
		return "", err
	}

	var reply string
	if seat, ok := ExtractSeatClick(message); ok {
		// Direct seat-pick events skip the ordinary extraction rules but
		// otherwise flow like a normal message.
		f.extractor.ApplySeatClick(&session.State, seat)
		session.History.Append(models.RoleUser, message)
		reply = f.orchestrator.Respond(ctx, session, message)
		session.History.Append(models.RoleAssistant, reply)
	} else if IsConfirmationTrigger(message) {
		// Confirmation triggers are control messages; they are not appended
		// to the conversation history.
		reply = f.confirm(ctx, session)
	} else {
		f.extractor.Extract(&session.State, message)
		session.History.Append(models.RoleUser, message)
		reply = f.orchestrator.Respond(ctx, session, message)
		session.History.Append(models.RoleAssistant, reply)
	}

	if err := f.stateManager.SaveSession(ctx, session); err != nil {
		// The reply is still delivered; the next message starts from the
		// previously saved state.
		slog.Error("BookingFlow ProcessMessage save failed", "error", err, "sessionID", sessionID)
	}
	return reply, nil
}

// confirm runs the CONFIRMED branch of the state machine: backfill, the
// completeness check, and the persist attempt. CONFIRMED always exits within
// the same request.
func (f *BookingFlow) confirm(ctx context.Context, session *models.SessionContext) string {
	state := &session.State
	state.Confirmed = true

	f.extractor.Backfill(state, &session.History)

	if missing := state.MissingFields(); len(missing) > 0 {
		state.Confirmed = false
		slog.Debug("BookingFlow confirm incomplete", "sessionID", session.SessionID, "missing", missing)
		return fmt.Sprintf("Booking info incomplete. Missing: %s.", strings.Join(missing, ", "))
	}

	record, err := f.persister.Persist(ctx, session)
	if err != nil {
		// State is left confirmed with fields intact so the next "yes"
		// re-attempts the persist.
		slog.Error("BookingFlow confirm persist failed", "error", err, "sessionID", session.SessionID)
		return "Sorry, booking failed. Please try again."
	}

	reply := fmt.Sprintf("<b>Booking Confirmed!</b><br>Movie: %s<br>Theater: %s<br>Showtime: %s<br>Seat: %s<br>Your tickets are booked! 🎉",
		record.MovieName, record.Theater, record.Showtime, record.Seat)
	session.History.Append(models.RoleAssistant, reply)
	state.Reset()
	return reply
}

// BookingsSummary renders the persisted bookings for the session's current
// movie as a markup listing. Store failures degrade to an inline error line.
func (f *BookingFlow) BookingsSummary(ctx context.Context, sessionID string) (string, error) {
	session, err := f.stateManager.LoadSession(ctx, sessionID)
	if err != nil {
		slog.Error("BookingFlow BookingsSummary load failed", "error", err, "sessionID", sessionID)
		return "", err
	}

	movie := session.State.Movie
	if movie == "" {
		return "No movie selected.", nil
	}

	records, err := f.persister.BookingsByMovie(movie)
	if err != nil {
		slog.Error("BookingFlow BookingsSummary query failed", "error", err, "movie", movie)
		return fmt.Sprintf("⚠️ Could not load bookings for <b>%s</b>.", movie), nil
	}
	if len(records) == 0 {
		return fmt.Sprintf("No bookings found for <b>%s</b>.", movie), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Bookings for %s:</b><br><ul>", movie)
	for _, r := range records {
		fmt.Fprintf(&sb, "<li>Theater: %s, Showtime: %s, Seat: %s</li>", r.Theater, r.Showtime, r.Seat)
	}
	sb.WriteString("</ul>")
	return sb.String(), nil
}

// BookedSeats returns the seats already taken for an exact
// movie/theater/showtime combination.
func (f *BookingFlow) BookedSeats(movie, theater, showtime string) ([]string, error) {
	return f.persister.BookedSeats(movie, theater, showtime)
}
