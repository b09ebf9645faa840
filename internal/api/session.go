package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/MovieBot/MovieBot/internal/util"
)

// SessionCookieName identifies the browser session carrying the booking
// conversation.
const SessionCookieName = "moviebot_session"

// sessionRegistry hands out one mutex per session so concurrent requests for
// the same session are serialized while different sessions proceed in
// parallel.
type sessionRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *sessionRegistry) lock(sessionID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		r.locks[sessionID] = m
	}
	return m
}

// ensureSession returns the request's session identifier, minting a fresh
// token and setting the cookie when the request carries none.
func ensureSession(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := util.GenerateSessionToken()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Debug("Server.ensureSession: new session created", "sessionID", sessionID)
	return sessionID
}
