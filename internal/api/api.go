// Package api provides HTTP handlers and the main API server logic for MovieBot.
//
// It exposes the chat endpoint driving the booking conversation plus the
// seat-availability and booking-listing queries that bypass the model.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/MovieBot/MovieBot/internal/catalog"
	"github.com/MovieBot/MovieBot/internal/flow"
	"github.com/MovieBot/MovieBot/internal/genai"
	"github.com/MovieBot/MovieBot/internal/notify"
	"github.com/MovieBot/MovieBot/internal/store"
)

// Default server configuration constants
const (
	// DefaultAddr is the default API listen address
	DefaultAddr = ":8080"
	// DefaultRequestTimeout bounds one chat turn including the completion call
	DefaultRequestTimeout = 30 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr           string
	AlertNumber    string
	RequestTimeout time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the API listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithAlertNumber sets the booking-desk phone number for SMS alerts.
func WithAlertNumber(number string) Option {
	return func(o *Opts) { o.AlertNumber = number }
}

// WithRequestTimeout bounds the handling of one chat turn.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Opts) { o.RequestTimeout = d }
}

// Server handles the MovieBot HTTP API.
type Server struct {
	flow     *flow.BookingFlow
	sessions *sessionRegistry
	timeout  time.Duration
}

// NewServer creates a server around an assembled booking flow.
func NewServer(bookingFlow *flow.BookingFlow, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Server{
		flow:     bookingFlow,
		sessions: newSessionRegistry(),
		timeout:  timeout,
	}
}

// Handler returns the routing mux for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/seats/booked", s.bookedSeatsHandler)
	mux.HandleFunc("/bookings", s.bookingsHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run assembles the modules from their options and serves the API. It blocks
// until the listener fails.
func Run(storeOpts []store.Option, catalogOpts []catalog.Option, genaiOpts []genai.Option, notifyOpts []notify.Option, apiOpts []Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		slog.Error("Server.Run: failed to initialize store", "error", err)
		return err
	}
	defer st.Close()

	cat, err := catalog.Load(catalogOpts...)
	if err != nil {
		slog.Error("Server.Run: failed to load catalog", "error", err)
		return err
	}

	// A missing completion client degrades every chat reply to an inline
	// error instead of refusing to start.
	var completion flow.CompletionClient
	if gaClient, err := genai.NewClient(genaiOpts...); err != nil {
		slog.Warn("Server.Run: GenAI client unavailable, chat replies will degrade", "error", err)
	} else {
		completion = gaClient
	}

	// Booking-desk alerts are optional as well.
	var notifier flow.Notifier
	if cfg.AlertNumber != "" {
		if nc, err := notify.NewClient(notifyOpts...); err != nil {
			slog.Warn("Server.Run: Twilio client unavailable, booking alerts disabled", "error", err)
		} else {
			notifier = nc
		}
	}

	stateManager := flow.NewStoreBasedStateManager(st)
	persister := flow.NewBookingPersister(st, notifier, cfg.AlertNumber)
	bookingFlow := flow.NewBookingFlow(stateManager, cat, completion, persister)

	server := NewServer(bookingFlow, apiOpts...)
	slog.Info("MovieBot API running", "addr", addr)
	return http.ListenAndServe(addr, server.Handler())
}
