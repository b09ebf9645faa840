package flow

import (
	"testing"

	"github.com/MovieBot/MovieBot/internal/catalog"
	"github.com/MovieBot/MovieBot/internal/models"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return c
}

func TestIsConfirmationTrigger(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"yes", true},
		{"Yes", true},
		{"  CONFIRM  ", true},
		{"confirm booking", true},
		{"book", true},
		{"yes book", true},
		{"yes please", false},
		{"I said yes to my friend", false},
		{"booking", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsConfirmationTrigger(c.message); got != c.want {
			t.Errorf("IsConfirmationTrigger(%q) = %v, want %v", c.message, got, c.want)
		}
	}
}

func TestExtractSeatClick(t *testing.T) {
	if seat, ok := ExtractSeatClick("SEAT_CLICKED:seat_12"); !ok || seat != "seat_12" {
		t.Errorf("expected seat_12, got %q (ok=%v)", seat, ok)
	}
	if _, ok := ExtractSeatClick("SEAT_CLICKED:"); ok {
		t.Error("empty payload must not count as a seat click")
	}
	if _, ok := ExtractSeatClick("I clicked a seat"); ok {
		t.Error("ordinary text must not count as a seat click")
	}
}

func TestApplySeatClickClearsConfirmation(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	state := models.BookingState{Seat: "seat_1", Confirmed: true}
	e.ApplySeatClick(&state, "seat_9")
	if state.Seat != "seat_9" {
		t.Errorf("expected seat_9, got %q", state.Seat)
	}
	if state.Confirmed {
		t.Error("explicit seat choice must clear confirmation")
	}
}

func TestExtractSeatPattern(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	state := models.BookingState{}
	e.Extract(&state, "I want seat 7")
	if state.Seat != "seat_7" {
		t.Errorf(`"I want seat 7": expected seat_7, got %q`, state.Seat)
	}

	state = models.BookingState{}
	e.Extract(&state, "seat_9 please")
	if state.Seat != "seat_9" {
		t.Errorf(`"seat_9 please": expected seat_9, got %q`, state.Seat)
	}

	state = models.BookingState{}
	e.Extract(&state, "which seat should I pick?")
	if state.Seat != "" {
		t.Errorf("seat with no digits must leave seat unset, got %q", state.Seat)
	}

	// An already-chosen seat is not overwritten by the pattern rule.
	state = models.BookingState{Seat: "seat_3"}
	e.Extract(&state, "what about seat 8?")
	if state.Seat != "seat_3" {
		t.Errorf("seat pattern must not overwrite an existing seat, got %q", state.Seat)
	}
}

func TestExtractMovieMatchClearsConfirmation(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	state := models.BookingState{Confirmed: true}
	e.Extract(&state, "I'd like to watch Oppenheimer")
	if state.Movie != "Oppenheimer" {
		t.Errorf("expected Oppenheimer, got %q", state.Movie)
	}
	if state.Confirmed {
		t.Error("movie change must clear confirmation")
	}
}

func TestExtractEditKeywordClearsOnlyConfirmation(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	state := models.BookingState{Movie: "Dune", Seat: "seat_4", Confirmed: true}
	e.Extract(&state, "actually I want to edit that")
	if state.Confirmed {
		t.Error("edit keyword must clear confirmation")
	}
	if state.Movie != "Dune" || state.Seat != "seat_4" {
		t.Errorf("edit keyword must not clear other fields: %+v", state)
	}
}

func TestExtractTheaterShowtimeUsesStoredMovie(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	// Theater/showtime match against the movie recorded before this pass.
	state := models.BookingState{Movie: "Dune"}
	e.Extract(&state, "Rialto Classic at 6:45 PM works")
	if state.Theater != "Rialto Classic" {
		t.Errorf("expected Rialto Classic, got %q", state.Theater)
	}
	if state.Showtime != "6:45 PM" {
		t.Errorf("expected 6:45 PM, got %q", state.Showtime)
	}

	// A message that switches movies matches theaters against the old movie,
	// not the one matched in this same pass.
	state = models.BookingState{Movie: "Dune"}
	e.Extract(&state, "make it Oppenheimer at Rialto Classic")
	if state.Movie != "Oppenheimer" {
		t.Errorf("expected movie switch to Oppenheimer, got %q", state.Movie)
	}
	if state.Theater != "Rialto Classic" {
		t.Errorf("theater must match against the previously stored movie, got %q", state.Theater)
	}

	// With no movie stored yet, theater mentions are ignored.
	state = models.BookingState{}
	e.Extract(&state, "Regal Downtown sounds good")
	if state.Theater != "" {
		t.Errorf("theater must stay unset without a stored movie, got %q", state.Theater)
	}
}

func TestExtractNoMatchLeavesStateUnchanged(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	state := models.BookingState{Movie: "Dune", Theater: "Grand Cinema"}
	before := state
	e.Extract(&state, "tell me something about the weather")
	if state != before {
		t.Errorf("ambiguous message must leave state unchanged: before %+v, after %+v", before, state)
	}
}

func TestCatalogOrderBreaksMatchTies(t *testing.T) {
	// Dataset order determines the winner when two titles both
	// substring-match. "Dune Part Two" precedes "Dune" in the catalog, so a
	// message naming the longer title matches it; a message with only "dune"
	// falls through to the shorter entry.
	e := NewExtractor(testCatalog(t))

	state := models.BookingState{}
	e.Extract(&state, "two tickets for dune part two please")
	if state.Movie != "Dune Part Two" {
		t.Errorf("expected Dune Part Two, got %q", state.Movie)
	}

	state = models.BookingState{}
	e.Extract(&state, "two tickets for dune please")
	if state.Movie != "Dune" {
		t.Errorf("expected Dune, got %q", state.Movie)
	}
}

func TestBackfillFromAssistantTurns(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	history := &models.ConversationHistory{}
	history.Append(models.RoleAssistant, "Movie: <b>Oppenheimer</b><br>Theater: Regal Downtown")
	history.Append(models.RoleUser, "actually let's change it")
	history.Append(models.RoleAssistant, "Movie: Dune<br>Theater: Rialto Classic<br>Showtime: 6:45 PM")

	state := models.BookingState{}
	e.Backfill(&state, history)
	if state.Movie != "Dune" {
		t.Errorf("backfill must take the newest assistant turn, got %q", state.Movie)
	}
	if state.Theater != "Rialto Classic" {
		t.Errorf("expected backfilled theater, got %q", state.Theater)
	}
	if state.Showtime != "6:45 PM" {
		t.Errorf("expected backfilled showtime, got %q", state.Showtime)
	}
}

func TestBackfillCutsAtMarkup(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	history := &models.ConversationHistory{}
	history.Append(models.RoleAssistant, "Movie: Dune<br>Seat: seat_2")

	state := models.BookingState{}
	e.Backfill(&state, history)
	if state.Movie != "Dune" {
		t.Errorf("backfilled value must stop at the first markup tag, got %q", state.Movie)
	}
}

func TestBackfillIgnoresUserTurnsAndFilledFields(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	history := &models.ConversationHistory{}
	history.Append(models.RoleUser, "Movie: Oppenheimer")
	history.Append(models.RoleAssistant, "Theater: Grand Cinema")

	state := models.BookingState{Movie: "Dune", Theater: "Rialto Classic"}
	e.Backfill(&state, history)
	if state.Movie != "Dune" {
		t.Errorf("user turns must not feed backfill, got %q", state.Movie)
	}
	if state.Theater != "Rialto Classic" {
		t.Errorf("filled fields must not be overwritten by backfill, got %q", state.Theater)
	}
}
