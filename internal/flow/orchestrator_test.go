package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/MovieBot/MovieBot/internal/models"
)

// mockCompletionClient implements CompletionClient for testing.
type mockCompletionClient struct {
	reply     string
	err       error
	calls     int
	gotSystem []string
	gotTurns  []models.ConversationMessage
}

func (m *mockCompletionClient) Complete(ctx context.Context, system []string, turns []models.ConversationMessage) (string, error) {
	m.calls++
	m.gotSystem = system
	m.gotTurns = turns
	return m.reply, m.err
}

func TestSystemContextIncludesCatalogAndState(t *testing.T) {
	o := NewOrchestrator(testCatalog(t), &mockCompletionClient{})

	state := models.BookingState{}
	system := o.SystemContext(&state)
	if len(system) != 1 {
		t.Fatalf("expected 1 system block for empty state, got %d", len(system))
	}
	if !strings.Contains(system[0], "Dune Part Two") {
		t.Error("system block must embed the catalog dump")
	}

	state = models.BookingState{Movie: "Dune", Seat: "seat_3"}
	system = o.SystemContext(&state)
	if len(system) != 2 {
		t.Fatalf("expected 2 system blocks, got %d", len(system))
	}
	if !strings.Contains(system[1], "Movie: Dune") || !strings.Contains(system[1], "Seat: seat_3") {
		t.Errorf("state block missing fields: %q", system[1])
	}
}

func TestRecentTurnsWindowAndLeadingUser(t *testing.T) {
	o := NewOrchestrator(testCatalog(t), &mockCompletionClient{})

	// Empty history synthesizes a leading user turn from the raw input.
	turns := o.RecentTurns(&models.ConversationHistory{}, "book me a movie")
	if len(turns) != 1 || turns[0].Role != models.RoleUser || turns[0].Content != "book me a movie" {
		t.Errorf("expected synthesized leading user turn, got %+v", turns)
	}

	// Empty history and empty input fall back to a literal greeting.
	turns = o.RecentTurns(&models.ConversationHistory{}, "")
	if len(turns) != 1 || turns[0].Content != "Hello" {
		t.Errorf("expected Hello fallback, got %+v", turns)
	}

	// An assistant-first window gets a user turn prepended.
	history := &models.ConversationHistory{}
	history.Append(models.RoleAssistant, "Welcome to MovieBot!")
	turns = o.RecentTurns(history, "hi")
	if len(turns) != 2 || turns[0].Role != models.RoleUser {
		t.Errorf("expected leading user turn before assistant greeting, got %+v", turns)
	}

	// Only the trailing window is submitted.
	history = &models.ConversationHistory{}
	for i := 0; i < 15; i++ {
		history.Append(models.RoleUser, fmt.Sprintf("user %d", i))
		history.Append(models.RoleAssistant, fmt.Sprintf("assistant %d", i))
	}
	turns = o.RecentTurns(history, "latest")
	if len(turns) != historyWindow {
		t.Fatalf("expected %d turns, got %d", historyWindow, len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[0].Content != "user 10" {
		t.Errorf("window must keep the most recent turns, got %+v", turns[0])
	}
}

func TestRespondRendersMarkup(t *testing.T) {
	mock := &mockCompletionClient{reply: "**Great choice!**\nWhich showtime?"}
	o := NewOrchestrator(testCatalog(t), mock)
	session := &models.SessionContext{SessionID: "sess-1"}

	reply := o.Respond(context.Background(), session, "Dune please")
	want := "<b>Great choice!</b><br>Which showtime?"
	if reply != want {
		t.Errorf("expected %q, got %q", want, reply)
	}
	if mock.calls != 1 {
		t.Errorf("expected exactly one completion call, got %d", mock.calls)
	}
}

func TestRespondDegradesOnFailure(t *testing.T) {
	mock := &mockCompletionClient{err: errors.New("upstream timeout")}
	o := NewOrchestrator(testCatalog(t), mock)
	session := &models.SessionContext{SessionID: "sess-1"}

	reply := o.Respond(context.Background(), session, "hi")
	if !strings.Contains(reply, "upstream timeout") {
		t.Errorf("degraded reply must include the error detail, got %q", reply)
	}
}

func TestRespondWithoutClient(t *testing.T) {
	o := NewOrchestrator(testCatalog(t), nil)
	session := &models.SessionContext{SessionID: "sess-1"}

	reply := o.Respond(context.Background(), session, "hi")
	if !strings.Contains(reply, "⚠️") {
		t.Errorf("expected inline error without a client, got %q", reply)
	}
}

func TestRenderMarkup(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"**bold**", "<b>bold</b>"},
		{"a\nb", "a<br>b"},
		{"**Movie:** Dune\n**Seat:** seat_3", "<b>Movie:</b> Dune<br><b>Seat:</b> seat_3"},
	}
	for _, c := range cases {
		if got := RenderMarkup(c.in); got != c.want {
			t.Errorf("RenderMarkup(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
