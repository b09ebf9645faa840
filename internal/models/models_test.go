package models

import (
	"strings"
	"testing"
	"time"
)

func TestBookingStateMissingFields(t *testing.T) {
	s := BookingState{}
	missing := s.MissingFields()
	if len(missing) != 2 || missing[0] != "movie" || missing[1] != "seat" {
		t.Errorf("expected [movie seat], got %v", missing)
	}

	s = BookingState{Movie: "Dune", Seat: "seat_3"}
	if got := s.MissingFields(); len(got) != 0 {
		t.Errorf("theater/showtime must not be required, got missing %v", got)
	}

	s = BookingState{Seat: "seat_5"}
	missing = s.MissingFields()
	if len(missing) != 1 || missing[0] != "movie" {
		t.Errorf("expected exactly [movie], got %v", missing)
	}
}

func TestBookingStateSummary(t *testing.T) {
	s := BookingState{}
	if got := s.Summary(); got != "" {
		t.Errorf("empty state should summarize to empty string, got %q", got)
	}

	s = BookingState{Movie: "Dune", Seat: "seat_3", Confirmed: true}
	got := s.Summary()
	if !strings.Contains(got, "Movie: Dune") || !strings.Contains(got, "Seat: seat_3") {
		t.Errorf("summary missing fields: %q", got)
	}
	if !strings.Contains(got, "User has confirmed these details.") {
		t.Errorf("summary missing confirmation note: %q", got)
	}
	if strings.Contains(got, "Theater:") || strings.Contains(got, "Showtime:") {
		t.Errorf("summary must omit empty fields: %q", got)
	}
}

func TestBookingStateReset(t *testing.T) {
	s := BookingState{Movie: "Dune", Theater: "Grand Cinema", Showtime: "8:00 PM", Seat: "seat_1", Confirmed: true}
	s.Reset()
	if !s.IsEmpty() {
		t.Errorf("expected empty state after reset, got %+v", s)
	}
}

func TestConversationHistoryAppend(t *testing.T) {
	var h ConversationHistory
	h.Append(RoleUser, "hello")
	h.Append(RoleAssistant, "hi there")
	if len(h.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(h.Messages))
	}
	if h.Messages[0].Role != RoleUser || h.Messages[1].Role != RoleAssistant {
		t.Errorf("roles not preserved: %+v", h.Messages)
	}
	if h.Messages[0].Timestamp.IsZero() {
		t.Error("expected timestamp to be set on append")
	}
}

func TestBookingRecordValidate(t *testing.T) {
	r := BookingRecord{MovieName: "Dune", Seat: "seat_3", CreatedAt: time.Now()}
	if err := r.Validate(); err != ErrBookingIdentifierMissing {
		t.Errorf("expected missing booking id error, got %v", err)
	}

	r.BookingID = "b-1"
	if err := r.Validate(); err != nil {
		t.Errorf("expected valid record, got %v", err)
	}

	r.Seat = ""
	if err := r.Validate(); err != ErrBookingRecordIncomplete {
		t.Errorf("expected incomplete record error, got %v", err)
	}
}
