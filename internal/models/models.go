// Package models defines the core data structures for MovieBot.
//
// It includes the movie catalog entry, per-session booking state, conversation
// history, and persisted booking records, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Conversation roles used in history turns and model payloads.
const (
	// RoleUser marks a turn authored by the participant.
	RoleUser = "user"
	// RoleAssistant marks a turn authored by the bot.
	RoleAssistant = "assistant"
)

// FlowTypeBooking identifies the booking flow in persisted session state.
const FlowTypeBooking = "booking"

// Machine states for the booking flow. StateConfirmed is transient: it is
// entered on a confirmation trigger and always exited within the same request.
const (
	StateCollecting = "COLLECTING"
	StateConfirmed  = "CONFIRMED"
)

// Data keys under which session pieces are stored in SessionState.StateData.
const (
	// DataKeyBookingState holds the BookingState JSON blob.
	DataKeyBookingState = "bookingState"
	// DataKeyConversationHistory holds the ConversationHistory JSON blob.
	DataKeyConversationHistory = "conversationHistory"
	// DataKeyUserID holds the cached user session identifier attached to
	// persisted bookings.
	DataKeyUserID = "userID"
)

// UnknownField is the placeholder persisted for theater/showtime when the
// user never picked one.
const UnknownField = "Unknown"

// Error variables for better error handling and testability
var (
	ErrIncompleteBooking        = errors.New("booking is missing movie or seat")
	ErrCompletionUnavailable    = errors.New("completion client not configured")
	ErrEmptyMessage             = errors.New("message cannot be empty")
	ErrStoreUnavailable         = errors.New("store not configured")
	ErrSessionIDRequired        = errors.New("session id cannot be empty")
	ErrNoSuchMovie              = errors.New("movie not found in catalog")
	ErrCatalogEmpty             = errors.New("catalog contains no movies")
	ErrInvalidCatalogEntry      = errors.New("catalog entry missing title")
	ErrBookingRecordIncomplete  = errors.New("booking record missing movie or seat")
	ErrBookingIdentifierMissing = errors.New("booking record missing booking id")
)

// Movie is an immutable catalog entry. Theaters and showtimes keep the order
// they were loaded in; matching relies on that order.
type Movie struct {
	Title     string   `json:"title"`
	Theaters  []string `json:"theaters"`
	Showtimes []string `json:"showtimes"`
}

// BookingState is the mutable, per-session record of in-progress ticket
// selections. Confirmed is only meaningful transiently between "user
// confirmed" and "persisted or reported incomplete".
type BookingState struct {
	Movie     string `json:"movie,omitempty"`
	Theater   string `json:"theater,omitempty"`
	Showtime  string `json:"showtime,omitempty"`
	Seat      string `json:"seat,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

// Reset clears the state back to the empty, unconfirmed default. Called after
// a successful persist so the session can start a fresh booking.
func (s *BookingState) Reset() {
	*s = BookingState{}
}

// IsEmpty reports whether no field has been collected yet.
func (s *BookingState) IsEmpty() bool {
	return s.Movie == "" && s.Theater == "" && s.Showtime == "" && s.Seat == "" && !s.Confirmed
}

// MissingFields returns the names of required fields that are still empty.
// Theater and showtime are intentionally not required for completion; they
// default to UnknownField at persist time.
func (s *BookingState) MissingFields() []string {
	var missing []string
	if s.Movie == "" {
		missing = append(missing, "movie")
	}
	if s.Seat == "" {
		missing = append(missing, "seat")
	}
	return missing
}

// Summary renders the non-empty fields as a human-readable, comma-joined
// description for the model's context block. Returns "" when nothing is set.
func (s *BookingState) Summary() string {
	var parts []string
	if s.Movie != "" {
		parts = append(parts, "Movie: "+s.Movie)
	}
	if s.Theater != "" {
		parts = append(parts, "Theater: "+s.Theater)
	}
	if s.Showtime != "" {
		parts = append(parts, "Showtime: "+s.Showtime)
	}
	if s.Seat != "" {
		parts = append(parts, "Seat: "+s.Seat)
	}
	if s.Confirmed {
		parts = append(parts, "User has confirmed these details.")
	}
	return strings.Join(parts, ", ")
}

// ConversationMessage represents a single turn in the conversation history.
type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationHistory is the append-only sequence of turns for one session.
// The full history is retained for field backfill; only a trailing window is
// sent to the completion service.
type ConversationHistory struct {
	Messages []ConversationMessage `json:"messages"`
}

// Append adds a turn with the current timestamp.
func (h *ConversationHistory) Append(role, content string) {
	h.Messages = append(h.Messages, ConversationMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// SessionContext bundles everything the core owns for one session. It is
// passed explicitly into every operation; the core never reaches into ambient
// global storage.
type SessionContext struct {
	SessionID string              `json:"session_id"`
	UserID    string              `json:"user_id,omitempty"`
	State     BookingState        `json:"state"`
	History   ConversationHistory `json:"history"`
}

// SessionState is the persisted flow-state row backing a SessionContext.
type SessionState struct {
	SessionID    string            `json:"session_id"`
	FlowType     string            `json:"flow_type"`
	CurrentState string            `json:"current_state"`
	StateData    map[string]string `json:"state_data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// BookingRecord is a persisted booking. Immutable once written; ownership
// transfers to the store on write.
type BookingRecord struct {
	BookingID     string    `json:"booking_id"`
	MovieName     string    `json:"movie_name"`
	Theater       string    `json:"theater"`
	Showtime      string    `json:"showtime"`
	Seat          string    `json:"seat"`
	CreatedAt     time.Time `json:"created_at"`
	UserSessionID string    `json:"user_session_id"`
}

// Validate checks the invariants the store relies on.
func (r *BookingRecord) Validate() error {
	if r.BookingID == "" {
		return ErrBookingIdentifierMissing
	}
	if r.MovieName == "" || r.Seat == "" {
		return ErrBookingRecordIncomplete
	}
	return nil
}

// ChatRequest is the payload for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the single markup-formatted reply per chat turn.
type ChatResponse struct {
	Response string `json:"response"`
}

// BookedSeatsRequest is the payload for POST /seats/booked.
type BookedSeatsRequest struct {
	Movie    string `json:"movie"`
	Theater  string `json:"theater"`
	Showtime string `json:"showtime"`
}

// BookedSeatsResponse lists the seats already taken for an exact
// movie/theater/showtime combination. Error is set inline when the lookup
// degraded instead of failing.
type BookedSeatsResponse struct {
	BookedSeats []string `json:"bookedSeats"`
	Error       string   `json:"error,omitempty"`
}
