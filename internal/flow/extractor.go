package flow

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/MovieBot/MovieBot/internal/catalog"
	"github.com/MovieBot/MovieBot/internal/models"
)

// SeatClickPrefix tags a direct seat-pick event from the seat map UI.
const SeatClickPrefix = "SEAT_CLICKED:"

// confirmationPhrases end the collection phase. Matching is exact after
// lower-casing and trimming, never a substring search.
var confirmationPhrases = map[string]bool{
	"yes":             true,
	"confirm":         true,
	"confirm booking": true,
	"book":            true,
	"yes book":        true,
}

// editKeywords clear a prior confirmation without touching other fields.
var editKeywords = []string{"change", "edit", "no"}

var (
	seatPattern = regexp.MustCompile(`seat[_\s]?(\d+)`)

	// Backfill patterns match the line prefixes the orchestrator renders in
	// assistant messages. The rendered prefixes and these patterns are a
	// stable internal wire format; changing one side requires changing the
	// other.
	moviePattern    = regexp.MustCompile(`Movie:\s*([^\n]+)`)
	theaterPattern  = regexp.MustCompile(`Theater:\s*([^\n]+)`)
	showtimePattern = regexp.MustCompile(`Showtime:\s*([^\n]+)`)
)

// Extractor populates booking-state fields from user text and conversation
// history. Pure with respect to the catalog and deterministic.
type Extractor struct {
	catalog *catalog.Catalog
}

// NewExtractor creates an extractor over the given catalog.
func NewExtractor(c *catalog.Catalog) *Extractor {
	return &Extractor{catalog: c}
}

// ExtractSeatClick reports whether the message is a direct seat-pick event
// and returns the carried seat token.
func ExtractSeatClick(message string) (string, bool) {
	if !strings.HasPrefix(message, SeatClickPrefix) {
		return "", false
	}
	seat := strings.TrimSpace(strings.TrimPrefix(message, SeatClickPrefix))
	if seat == "" {
		return "", false
	}
	return seat, true
}

// IsConfirmationTrigger reports whether the message is one of the fixed
// confirmation phrases. The match is case-insensitive and exact after
// trimming; "yes please" does not trigger.
func IsConfirmationTrigger(message string) bool {
	return confirmationPhrases[strings.ToLower(strings.TrimSpace(message))]
}

// ApplySeatClick records an explicit seat choice. A new explicit choice
// always invalidates a prior confirmation.
func (e *Extractor) ApplySeatClick(state *models.BookingState, seat string) {
	state.Seat = seat
	state.Confirmed = false
	slog.Debug("Extractor seat click applied", "seat", seat)
}

// Extract applies the ordered extraction rules to the state for one user
// message. Fields with no match are simply left unset.
func (e *Extractor) Extract(state *models.BookingState, message string) {
	lowered := strings.ToLower(message)

	// Edit/negation signal clears only the confirmation.
	for _, kw := range editKeywords {
		if strings.Contains(lowered, kw) {
			state.Confirmed = false
			break
		}
	}

	// Theater/showtime matching below uses the movie as stored before this
	// message's movie match, not the one matched in this same pass.
	priorMovie := state.Movie

	if movie, ok := e.catalog.MatchTitle(lowered); ok {
		state.Movie = movie.Title
		state.Confirmed = false
		slog.Debug("Extractor movie matched", "movie", movie.Title)
	}

	if movie, ok := e.catalog.Find(priorMovie); ok {
		for _, theater := range movie.Theaters {
			if strings.Contains(lowered, strings.ToLower(theater)) {
				state.Theater = theater
				break
			}
		}
		for _, showtime := range movie.Showtimes {
			if strings.Contains(lowered, strings.ToLower(showtime)) {
				state.Showtime = showtime
				break
			}
		}
	}

	if state.Seat == "" {
		if m := seatPattern.FindStringSubmatch(lowered); m != nil {
			state.Seat = "seat_" + m[1]
			state.Confirmed = false
			slog.Debug("Extractor seat pattern matched", "seat", state.Seat)
		}
	}
}

// Backfill recovers previously stated but unset fields by scanning rendered
// assistant messages newest-to-oldest. Invoked only on a confirmation
// trigger.
func (e *Extractor) Backfill(state *models.BookingState, history *models.ConversationHistory) {
	if state.Movie == "" {
		for i := len(history.Messages) - 1; i >= 0; i-- {
			msg := history.Messages[i]
			if msg.Role != models.RoleAssistant {
				continue
			}
			if m := moviePattern.FindStringSubmatch(msg.Content); m != nil {
				state.Movie = trimMarkup(m[1])
				slog.Debug("Extractor backfilled movie", "movie", state.Movie)
				break
			}
		}
	}

	for i := len(history.Messages) - 1; i >= 0; i-- {
		if state.Theater != "" && state.Showtime != "" {
			break
		}
		msg := history.Messages[i]
		if msg.Role != models.RoleAssistant {
			continue
		}
		if state.Theater == "" {
			if m := theaterPattern.FindStringSubmatch(msg.Content); m != nil {
				state.Theater = trimMarkup(m[1])
				slog.Debug("Extractor backfilled theater", "theater", state.Theater)
			}
		}
		if state.Showtime == "" {
			if m := showtimePattern.FindStringSubmatch(msg.Content); m != nil {
				state.Showtime = trimMarkup(m[1])
				slog.Debug("Extractor backfilled showtime", "showtime", state.Showtime)
			}
		}
	}
}

// trimMarkup cuts a backfilled value at the first markup tag and trims the
// surrounding whitespace.
func trimMarkup(value string) string {
	if idx := strings.Index(value, "<"); idx >= 0 {
		value = value[:idx]
	}
	return strings.TrimSpace(value)
}
