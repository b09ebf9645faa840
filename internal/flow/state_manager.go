package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MovieBot/MovieBot/internal/models"
	"github.com/MovieBot/MovieBot/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend. The
// booking state and conversation history are serialized as JSON blobs inside
// the session's state data map.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// LoadSession retrieves the session context, returning an empty context when
// the session has no stored state yet.
func (sm *StoreBasedStateManager) LoadSession(ctx context.Context, sessionID string) (*models.SessionContext, error) {
	if sessionID == "" {
		return nil, models.ErrSessionIDRequired
	}
	slog.Debug("StateManager LoadSession", "sessionID", sessionID)

	sessionState, err := sm.store.GetSessionState(sessionID, models.FlowTypeBooking)
	if err != nil {
		slog.Error("StateManager LoadSession error", "error", err, "sessionID", sessionID)
		return nil, err
	}

	session := &models.SessionContext{SessionID: sessionID}
	if sessionState == nil {
		slog.Debug("StateManager LoadSession new session", "sessionID", sessionID)
		return session, nil
	}

	if blob, ok := sessionState.StateData[models.DataKeyBookingState]; ok && blob != "" {
		if err := json.Unmarshal([]byte(blob), &session.State); err != nil {
			slog.Error("StateManager LoadSession booking state unmarshal failed", "error", err, "sessionID", sessionID)
			return nil, fmt.Errorf("failed to decode booking state: %w", err)
		}
	}
	if blob, ok := sessionState.StateData[models.DataKeyConversationHistory]; ok && blob != "" {
		if err := json.Unmarshal([]byte(blob), &session.History); err != nil {
			slog.Error("StateManager LoadSession history unmarshal failed", "error", err, "sessionID", sessionID)
			return nil, fmt.Errorf("failed to decode conversation history: %w", err)
		}
	}
	session.UserID = sessionState.StateData[models.DataKeyUserID]

	slog.Debug("StateManager LoadSession found", "sessionID", sessionID, "state", sessionState.CurrentState, "turns", len(session.History.Messages))
	return session, nil
}

// SaveSession persists the session context, preserving the original creation
// timestamp when the session already exists.
func (sm *StoreBasedStateManager) SaveSession(ctx context.Context, session *models.SessionContext) error {
	if session == nil || session.SessionID == "" {
		return models.ErrSessionIDRequired
	}
	slog.Debug("StateManager SaveSession", "sessionID", session.SessionID)

	stateBlob, err := json.Marshal(session.State)
	if err != nil {
		slog.Error("StateManager SaveSession booking state marshal failed", "error", err, "sessionID", session.SessionID)
		return fmt.Errorf("failed to encode booking state: %w", err)
	}
	historyBlob, err := json.Marshal(session.History)
	if err != nil {
		slog.Error("StateManager SaveSession history marshal failed", "error", err, "sessionID", session.SessionID)
		return fmt.Errorf("failed to encode conversation history: %w", err)
	}

	existing, err := sm.store.GetSessionState(session.SessionID, models.FlowTypeBooking)
	if err != nil {
		slog.Error("StateManager SaveSession get error", "error", err, "sessionID", session.SessionID)
		return err
	}

	now := time.Now().UTC()
	createdAt := now
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	currentState := models.StateCollecting
	if session.State.Confirmed {
		currentState = models.StateConfirmed
	}

	sessionState := models.SessionState{
		SessionID:    session.SessionID,
		FlowType:     models.FlowTypeBooking,
		CurrentState: currentState,
		StateData: map[string]string{
			models.DataKeyBookingState:        string(stateBlob),
			models.DataKeyConversationHistory: string(historyBlob),
		},
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	if session.UserID != "" {
		sessionState.StateData[models.DataKeyUserID] = session.UserID
	}

	if err := sm.store.SaveSessionState(sessionState); err != nil {
		slog.Error("StateManager SaveSession save error", "error", err, "sessionID", session.SessionID)
		return err
	}
	slog.Debug("StateManager SaveSession succeeded", "sessionID", session.SessionID, "state", currentState)
	return nil
}

// ResetSession removes all stored state for the session.
func (sm *StoreBasedStateManager) ResetSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return models.ErrSessionIDRequired
	}
	slog.Debug("StateManager ResetSession", "sessionID", sessionID)

	if err := sm.store.DeleteSessionState(sessionID, models.FlowTypeBooking); err != nil {
		slog.Error("StateManager ResetSession error", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Info("StateManager ResetSession succeeded", "sessionID", sessionID)
	return nil
}
