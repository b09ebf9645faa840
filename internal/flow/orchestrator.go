package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/MovieBot/MovieBot/internal/catalog"
	"github.com/MovieBot/MovieBot/internal/models"
)

// historyWindow is how many trailing turns are submitted to the completion
// service. The full history stays in storage for backfill.
const historyWindow = 10

// bookingScript is the fixed instructional text for the completion service.
// The summary line prefixes (Movie:, Theater:, Showtime:, Seat:) are the wire
// format the extractor's backfill patterns scan for.
const bookingScript = `You are MovieBot, a friendly assistant that books movie tickets. Walk the user through these five steps in order:
1. Ask which movie they want to see and confirm it is in the catalog below.
2. Ask which theater they prefer, offering only the theaters listed for that movie.
3. Ask which showtime works, offering only the showtimes listed for that movie.
4. Ask them to pick a seat (seats are named seat_1 through seat_40).
5. Summarize the booking and ask them to confirm.

When you summarize, put each detail on its own line using exactly these prefixes:
Movie: <title>
Theater: <theater>
Showtime: <showtime>
Seat: <seat>

Then ask the user to reply "yes" or "confirm" to finish. Be concise and friendly. Use only this catalog data, never invent movies, theaters or showtimes:
`

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Orchestrator assembles completion-service requests and folds replies back
// into renderable markup.
type Orchestrator struct {
	catalog *catalog.Catalog
	client  CompletionClient
}

// NewOrchestrator creates an orchestrator over the given catalog and
// completion client. A nil client is tolerated; every reply then degrades to
// an inline error message.
func NewOrchestrator(c *catalog.Catalog, client CompletionClient) *Orchestrator {
	return &Orchestrator{catalog: c, client: client}
}

// SystemContext builds the system blocks: the booking script with the full
// catalog dump, plus a separate block describing the current booking state
// when any field is set.
func (o *Orchestrator) SystemContext(state *models.BookingState) []string {
	system := []string{bookingScript + o.catalog.Dump()}
	if summary := state.Summary(); summary != "" {
		system = append(system, "Current booking details: "+summary)
	}
	return system
}

// RecentTurns returns the trailing history window filtered to user and
// assistant roles, with a synthesized leading user turn when the window is
// empty or starts with an assistant turn. Some completion backends reject an
// assistant-first sequence.
func (o *Orchestrator) RecentTurns(history *models.ConversationHistory, rawInput string) []models.ConversationMessage {
	messages := history.Messages
	if len(messages) > historyWindow {
		messages = messages[len(messages)-historyWindow:]
	}

	var turns []models.ConversationMessage
	for _, msg := range messages {
		if msg.Role == models.RoleUser || msg.Role == models.RoleAssistant {
			turns = append(turns, msg)
		}
	}

	if len(turns) == 0 || turns[0].Role != models.RoleUser {
		lead := rawInput
		if lead == "" {
			lead = "Hello"
		}
		turns = append([]models.ConversationMessage{{Role: models.RoleUser, Content: lead}}, turns...)
	}
	return turns
}

// Respond invokes the completion service for the session and returns the
// reply as markup. Any transport or service failure degrades to an inline
// error message; the conversation never hard-fails on this path.
func (o *Orchestrator) Respond(ctx context.Context, session *models.SessionContext, rawInput string) string {
	if o.client == nil {
		slog.Error("Orchestrator Respond: no completion client configured", "sessionID", session.SessionID)
		return fmt.Sprintf("⚠️ Sorry, I can't reply right now: %v", models.ErrCompletionUnavailable)
	}

	system := o.SystemContext(&session.State)
	turns := o.RecentTurns(&session.History, rawInput)

	reply, err := o.client.Complete(ctx, system, turns)
	if err != nil {
		slog.Error("Orchestrator Respond: completion failed", "error", err, "sessionID", session.SessionID)
		return fmt.Sprintf("⚠️ Sorry, I can't reply right now: %v", err)
	}

	slog.Debug("Orchestrator Respond succeeded", "sessionID", session.SessionID, "reply_length", len(reply))
	return RenderMarkup(reply)
}

// RenderMarkup applies the minimal markdown-to-markup transform: bold
// delimiters become bold tags and newlines become line breaks.
func RenderMarkup(text string) string {
	text = boldPattern.ReplaceAllString(text, "<b>$1</b>")
	return strings.ReplaceAll(text, "\n", "<br>")
}
