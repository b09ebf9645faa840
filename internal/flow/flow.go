// Package flow implements the booking conversation: extraction of booking
// fields from user text, the collecting/confirmed state machine, prompt
// assembly for the completion service, and persistence of finished bookings.
package flow

import (
	"context"

	"github.com/MovieBot/MovieBot/internal/models"
)

// CompletionClient is the black-box text-completion backend. The first turn
// submitted must carry the user role.
type CompletionClient interface {
	Complete(ctx context.Context, system []string, turns []models.ConversationMessage) (string, error)
}

// StateManager owns loading and saving per-session booking state.
type StateManager interface {
	// LoadSession returns the session context, creating an empty one when the
	// session has no stored state yet.
	LoadSession(ctx context.Context, sessionID string) (*models.SessionContext, error)
	// SaveSession persists the session context.
	SaveSession(ctx context.Context, session *models.SessionContext) error
	// ResetSession removes all stored state for the session.
	ResetSession(ctx context.Context, sessionID string) error
}
