package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/seat-reservation/internal/clock"
	"github.com/cinebook/seat-reservation/internal/engine"
	"github.com/cinebook/seat-reservation/internal/model"
	"github.com/cinebook/seat-reservation/internal/repository"
)

var t0 = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

// stubSeats serves a canned snapshot.
type stubSeats struct {
	seats []model.Seat
	rows  []string
	err   error
}

func (s *stubSeats) Snapshot(_ context.Context, _ uint64) ([]model.Seat, []string, error) {
	return s.seats, s.rows, s.err
}

// stubHolds records its last call and serves canned results.
type stubHolds struct {
	hold       *model.Hold
	holdErr    error
	results    []engine.ReleaseResult
	releaseErr error
	holds      []model.Hold

	gotSeatIDs []uint64
	gotHolder  string
	gotTTL     time.Duration
}

func (s *stubHolds) Hold(_ context.Context, _ uint64, seatIDs []uint64, holderID string, ttl time.Duration) (*model.Hold, error) {
	s.gotSeatIDs, s.gotHolder, s.gotTTL = seatIDs, holderID, ttl
	return s.hold, s.holdErr
}

func (s *stubHolds) Release(_ context.Context, _ uint64, seatIDs []uint64, holderID string) ([]engine.ReleaseResult, error) {
	s.gotSeatIDs, s.gotHolder = seatIDs, holderID
	return s.results, s.releaseErr
}

func (s *stubHolds) HoldsOf(_ context.Context, _ uint64, holderID string) ([]model.Hold, error) {
	s.gotHolder = holderID
	return s.holds, nil
}

// stubBookings serves a canned booking.
type stubBookings struct {
	booking *model.Booking
	err     error
}

func (s *stubBookings) Confirm(_ context.Context, _ uint64, _ []uint64, _ string, _ string) (*model.Booking, error) {
	return s.booking, s.err
}

func newTestHandler(seats *stubSeats, holds *stubHolds, bookings *stubBookings) *ReservationHandler {
	if seats == nil {
		seats = &stubSeats{}
	}
	if holds == nil {
		holds = &stubHolds{}
	}
	if bookings == nil {
		bookings = &stubBookings{}
	}
	limits := HoldLimits{DefaultMinutes: 10, MinMinutes: 5, MaxMinutes: 10}
	return NewReservationHandler(seats, holds, bookings, clock.NewFixed(t0), limits, nil, "")
}

// invoke runs an echo handler directly against a recorded request.
func invoke(t *testing.T, fn echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if err := fn(c); err != nil {
		t.Fatalf("handler returned %v", err)
	}
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestGetSeatMap(t *testing.T) {
	t.Parallel()

	t.Run("marks the caller's own held seats", func(t *testing.T) {
		t.Parallel()
		exp := t0.Add(7 * time.Minute)
		lapsed := t0.Add(-time.Minute)
		seats := &stubSeats{
			rows: []string{"A"},
			seats: []model.Seat{
				{ID: 1, ShowID: 5, RowLabel: "A", SeatNumber: 1, Status: model.SeatHeld, HeldBy: "alice", HoldExpiresAt: &exp},
				{ID: 2, ShowID: 5, RowLabel: "A", SeatNumber: 2, Status: model.SeatHeld, HeldBy: "bob", HoldExpiresAt: &exp},
				{ID: 3, ShowID: 5, RowLabel: "A", SeatNumber: 3, Status: model.SeatHeld, HeldBy: "carol", HoldExpiresAt: &lapsed},
				{ID: 4, ShowID: 5, RowLabel: "A", SeatNumber: 4, Status: model.SeatBooked},
			},
		}
		h := newTestHandler(seats, nil, nil)
		rec := invoke(t, h.GetSeatMap, http.MethodGet, "/shows/5/seats?holderId=alice", "", map[string]string{"showId": "5"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp SeatMapResponse
		decode(t, rec, &resp)
		if resp.ShowID != 5 || len(resp.Seats) != 4 {
			t.Fatalf("resp = %+v, want 4 seats of show 5", resp)
		}
		mine := resp.Seats[0]
		if !mine.HeldByCurrentUser || mine.HoldExpiresAt == nil || mine.RemainingSeconds == nil {
			t.Fatalf("own seat = %+v, want held-by-me with expiry and countdown", mine)
		}
		if *mine.RemainingSeconds != 420 {
			t.Errorf("remainingSeconds = %d, want 420", *mine.RemainingSeconds)
		}
		if other := resp.Seats[1]; other.HeldByCurrentUser || other.HoldExpiresAt != nil {
			t.Errorf("someone else's seat leaked hold details: %+v", other)
		}
		if stale := resp.Seats[2]; stale.Status != model.SeatAvailable {
			t.Errorf("lapsed held seat presented as %s, want AVAILABLE", stale.Status)
		}
		if booked := resp.Seats[3]; booked.Status != model.SeatBooked {
			t.Errorf("booked seat presented as %s", booked.Status)
		}
	})

	t.Run("404 on unknown show", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(&stubSeats{err: repository.ErrShowNotFound}, nil, nil)
		rec := invoke(t, h.GetSeatMap, http.MethodGet, "/shows/99/seats", "", map[string]string{"showId": "99"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("400 on malformed show id", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(nil, nil, nil)
		rec := invoke(t, h.GetSeatMap, http.MethodGet, "/shows/abc/seats", "", map[string]string{"showId": "abc"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHoldSeats(t *testing.T) {
	t.Parallel()

	t.Run("201 with hold details", func(t *testing.T) {
		t.Parallel()
		exp := t0.Add(10 * time.Minute)
		holds := &stubHolds{hold: &model.Hold{ID: "hold-1", ShowID: 5, HolderID: "alice", SeatIDs: []uint64{1, 2}, ExpiresAt: exp}}
		h := newTestHandler(nil, holds, nil)
		body := `{"seatIds":[1,2],"holderId":"alice"}`
		rec := invoke(t, h.HoldSeats, http.MethodPost, "/shows/5/seats/hold", body, map[string]string{"showId": "5"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s, want 201", rec.Code, rec.Body.String())
		}
		var resp HoldSeatsResponse
		decode(t, rec, &resp)
		if resp.HoldID != "hold-1" || len(resp.SeatIDs) != 2 {
			t.Errorf("resp = %+v", resp)
		}
		if holds.gotTTL != 10*time.Minute {
			t.Errorf("ttl = %v, want the 10m default", holds.gotTTL)
		}
	})

	t.Run("409 names every conflicting seat", func(t *testing.T) {
		t.Parallel()
		holds := &stubHolds{holdErr: &engine.SeatsUnavailableError{SeatIDs: []uint64{2, 3}}}
		h := newTestHandler(nil, holds, nil)
		body := `{"seatIds":[1,2,3],"holderId":"alice"}`
		rec := invoke(t, h.HoldSeats, http.MethodPost, "/shows/5/seats/hold", body, map[string]string{"showId": "5"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var resp struct {
			Error   string   `json:"error"`
			SeatIDs []uint64 `json:"seatIds"`
		}
		decode(t, rec, &resp)
		if resp.Error != "SeatsUnavailable" || len(resp.SeatIDs) != 2 {
			t.Errorf("resp = %+v, want SeatsUnavailable naming seats 2 and 3", resp)
		}
	})

	t.Run("400 on out-of-range holdMinutes", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(nil, &stubHolds{}, nil)
		for _, body := range []string{
			`{"seatIds":[1],"holderId":"alice","holdMinutes":2}`,
			`{"seatIds":[1],"holderId":"alice","holdMinutes":30}`,
		} {
			rec := invoke(t, h.HoldSeats, http.MethodPost, "/shows/5/seats/hold", body, map[string]string{"showId": "5"})
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: status = %d, want 400", body, rec.Code)
			}
		}
	})

	t.Run("400 without a holder", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(nil, &stubHolds{}, nil)
		rec := invoke(t, h.HoldSeats, http.MethodPost, "/shows/5/seats/hold", `{"seatIds":[1]}`, map[string]string{"showId": "5"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestReleaseSeats(t *testing.T) {
	t.Parallel()
	holds := &stubHolds{results: []engine.ReleaseResult{
		{SeatID: 1, Outcome: engine.ReleaseReleased, Status: model.SeatAvailable},
		{SeatID: 2, Outcome: engine.ReleaseNotYours, Status: model.SeatHeld},
		{SeatID: 3, Outcome: engine.ReleaseNotHeld, Status: model.SeatBooked},
	}}
	h := newTestHandler(nil, holds, nil)
	body := `{"seatIds":[1,2,3],"holderId":"alice"}`
	rec := invoke(t, h.ReleaseSeats, http.MethodPost, "/shows/5/seats/release", body, map[string]string{"showId": "5"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		ShowID uint64                `json:"showId"`
		Seats  []SeatReleaseResponse `json:"seats"`
	}
	decode(t, rec, &resp)
	if len(resp.Seats) != 3 {
		t.Fatalf("seats = %+v, want 3 per-seat results", resp.Seats)
	}
	want := map[uint64]string{1: "released", 2: "not_yours", 3: "not_held"}
	for _, s := range resp.Seats {
		if s.Result != want[s.SeatID] {
			t.Errorf("seat %d result = %s, want %s", s.SeatID, s.Result, want[s.SeatID])
		}
	}
}

func TestConfirmBooking(t *testing.T) {
	t.Parallel()

	t.Run("201 with the booking", func(t *testing.T) {
		t.Parallel()
		bookings := &stubBookings{booking: &model.Booking{
			ID: "bk-1", ShowID: 5, HolderID: "alice", SeatIDs: []uint64{1, 2}, PaymentRef: "pay-7", CreatedAt: t0,
		}}
		h := newTestHandler(nil, nil, bookings)
		body := `{"showId":5,"seatIds":[1,2],"holderId":"alice","paymentRef":"pay-7"}`
		rec := invoke(t, h.ConfirmBooking, http.MethodPost, "/bookings/confirm", body, nil)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s, want 201", rec.Code, rec.Body.String())
		}
		var resp ConfirmBookingResponse
		decode(t, rec, &resp)
		if resp.BookingID != "bk-1" || resp.Status != "CONFIRMED" || resp.PaymentRef != "pay-7" {
			t.Errorf("resp = %+v", resp)
		}
	})

	t.Run("409 on expired or contested hold", func(t *testing.T) {
		t.Parallel()
		bookings := &stubBookings{err: &engine.ConfirmConflictError{SeatIDs: []uint64{2}}}
		h := newTestHandler(nil, nil, bookings)
		body := `{"showId":5,"seatIds":[1,2],"holderId":"alice"}`
		rec := invoke(t, h.ConfirmBooking, http.MethodPost, "/bookings/confirm", body, nil)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		var resp struct {
			Error   string   `json:"error"`
			SeatIDs []uint64 `json:"seatIds"`
		}
		decode(t, rec, &resp)
		if resp.Error != "HoldExpiredOrConflict" || len(resp.SeatIDs) != 1 || resp.SeatIDs[0] != 2 {
			t.Errorf("resp = %+v, want HoldExpiredOrConflict naming seat 2", resp)
		}
	})

	t.Run("400 without a show id", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(nil, nil, &stubBookings{})
		rec := invoke(t, h.ConfirmBooking, http.MethodPost, "/bookings/confirm", `{"seatIds":[1],"holderId":"alice"}`, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestGetHolds(t *testing.T) {
	t.Parallel()

	t.Run("returns the holder's active holds", func(t *testing.T) {
		t.Parallel()
		exp := t0.Add(9 * time.Minute)
		holds := &stubHolds{holds: []model.Hold{
			{ID: "hold-1", ShowID: 5, HolderID: "alice", SeatIDs: []uint64{1, 2}, ExpiresAt: exp, CreatedAt: t0},
		}}
		h := newTestHandler(nil, holds, nil)
		rec := invoke(t, h.GetHolds, http.MethodGet, "/shows/5/holds?holderId=alice", "", map[string]string{"showId": "5"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp struct {
			ShowID uint64         `json:"showId"`
			Holds  []HoldResponse `json:"holds"`
		}
		decode(t, rec, &resp)
		if len(resp.Holds) != 1 || resp.Holds[0].HoldID != "hold-1" {
			t.Fatalf("resp = %+v, want hold-1", resp)
		}
		if holds.gotHolder != "alice" {
			t.Errorf("holder passed through = %q, want alice", holds.gotHolder)
		}
	})

	t.Run("400 without a holder", func(t *testing.T) {
		t.Parallel()
		h := newTestHandler(nil, &stubHolds{}, nil)
		rec := invoke(t, h.GetHolds, http.MethodGet, "/shows/5/holds", "", map[string]string{"showId": "5"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}
