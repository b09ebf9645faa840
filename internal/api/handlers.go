// Package api provides HTTP handlers for MovieBot endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MovieBot/MovieBot/internal/models"
)

// chatHandler handles POST /chat: one conversation turn for the session.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	sessionID := ensureSession(w, r)

	// Requests for one session are serialized; the flow assumes a single
	// writer per session.
	lock := s.sessions.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	reply, err := s.flow.ProcessMessage(ctx, sessionID, req.Message)
	if err != nil {
		if errors.Is(err, models.ErrEmptyMessage) {
			slog.Warn("Server.chatHandler: empty message", "sessionID", sessionID)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing message"))
			return
		}
		slog.Error("Server.chatHandler: failed to process message", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	slog.Debug("Server.chatHandler: reply generated", "sessionID", sessionID, "reply_length", len(reply))
	writeJSONResponse(w, http.StatusOK, models.ChatResponse{Response: reply})
}

// bookedSeatsHandler handles POST /seats/booked: the seats already taken for
// an exact movie/theater/showtime combination. Lookup failures degrade to an
// empty list with an inline error indicator.
func (s *Server) bookedSeatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.bookedSeatsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.bookedSeatsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.BookedSeatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.bookedSeatsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Movie == "" || req.Theater == "" || req.Showtime == "" {
		slog.Warn("Server.bookedSeatsHandler: missing data", "movie", req.Movie, "theater", req.Theater, "showtime", req.Showtime)
		writeJSONResponse(w, http.StatusOK, models.BookedSeatsResponse{BookedSeats: []string{}, Error: "Missing data"})
		return
	}

	seats, err := s.flow.BookedSeats(req.Movie, req.Theater, req.Showtime)
	if err != nil {
		slog.Error("Server.bookedSeatsHandler: lookup failed", "error", err, "movie", req.Movie)
		writeJSONResponse(w, http.StatusOK, models.BookedSeatsResponse{BookedSeats: []string{}, Error: "Failed to load booked seats"})
		return
	}
	if seats == nil {
		seats = []string{}
	}

	slog.Debug("Server.bookedSeatsHandler: seats found", "movie", req.Movie, "count", len(seats))
	writeJSONResponse(w, http.StatusOK, models.BookedSeatsResponse{BookedSeats: seats})
}

// bookingsHandler handles GET /bookings: a markup listing of the bookings for
// the session's current movie.
func (s *Server) bookingsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.bookingsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.bookingsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sessionID := ensureSession(w, r)
	lock := s.sessions.lock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	summary, err := s.flow.BookingsSummary(ctx, sessionID)
	if err != nil {
		slog.Error("Server.bookingsHandler: failed to build summary", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load bookings"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.ChatResponse{Response: summary})
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
