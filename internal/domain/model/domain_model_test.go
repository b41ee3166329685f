//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"marketplace-spotlight/internal/domain"
)

var testPricing = NewPricing(25, 100_000_000)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DayKeyFormat, s)
	if err != nil {
		t.Fatalf("bad day literal %q: %v", s, err)
	}
	return d
}

// --- SpotlightRequest Tests ---

func TestNewSpotlightRequest(t *testing.T) {
	now := day(t, "2026-03-01")

	t.Run("should create a pending request with the priced terms", func(t *testing.T) {
		req, err := NewSpotlightRequest("req-1", "proj-1", "user-1",
			day(t, "2026-03-05"), day(t, "2026-03-07"), "", "hello", testPricing, now)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if req.Status != RequestStatusPending {
			t.Errorf("expected status pending, got %s", req.Status)
		}
		if req.DurationDays != 3 {
			t.Errorf("expected 3 days, got %d", req.DurationDays)
		}
		if !req.Terms.Due() {
			t.Error("expected payment to be due on a fresh request")
		}
		if want := int64(3) * 25 * 100_000_000; req.Terms.AmountMinorUnits != want {
			t.Errorf("expected price %d, got %d", want, req.Terms.AmountMinorUnits)
		}
	})

	t.Run("should allow a single-day booking", func(t *testing.T) {
		req, err := NewSpotlightRequest("req-1", "proj-1", "user-1",
			day(t, "2026-03-05"), day(t, "2026-03-05"), "", "", testPricing, now)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if req.DurationDays != 1 {
			t.Errorf("expected 1 day, got %d", req.DurationDays)
		}
	})

	t.Run("should reject a range longer than the cap", func(t *testing.T) {
		_, err := NewSpotlightRequest("req-1", "proj-1", "user-1",
			day(t, "2026-03-05"), day(t, "2026-03-10"), "", "", testPricing, now)
		if !errors.Is(err, domain.ErrDurationOutOfRange) {
			t.Fatalf("expected ErrDurationOutOfRange, got %v", err)
		}
	})

	t.Run("should reject an inverted range", func(t *testing.T) {
		_, err := NewSpotlightRequest("req-1", "proj-1", "user-1",
			day(t, "2026-03-07"), day(t, "2026-03-05"), "", "", testPricing, now)
		if !errors.Is(err, domain.ErrDurationOutOfRange) {
			t.Fatalf("expected ErrDurationOutOfRange, got %v", err)
		}
	})

	t.Run("should reject a start on or before today", func(t *testing.T) {
		for _, start := range []string{"2026-03-01", "2026-02-28"} {
			_, err := NewSpotlightRequest("req-1", "proj-1", "user-1",
				day(t, start), day(t, "2026-03-05"), "", "", testPricing, now)
			if !errors.Is(err, domain.ErrStartDateTooSoon) {
				t.Fatalf("start %s: expected ErrStartDateTooSoon, got %v", start, err)
			}
		}
	})

	t.Run("should reject missing identifiers", func(t *testing.T) {
		_, err := NewSpotlightRequest("", "proj-1", "user-1",
			day(t, "2026-03-05"), day(t, "2026-03-07"), "", "", testPricing, now)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestRequestStatusIsTerminal(t *testing.T) {
	terminal := []RequestStatus{RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled, RequestStatusExpired}
	open := []RequestStatus{RequestStatusPending, RequestStatusApproved, RequestStatusPaid, RequestStatusActive}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestRequestHold(t *testing.T) {
	base := SpotlightRequest{Terms: RequiresPayment(100)}

	cases := []struct {
		name   string
		status RequestStatus
		terms  PaymentTerms
		want   CalendarHold
	}{
		{"pending is a soft hold", RequestStatusPending, base.Terms, HoldSoft},
		{"approved with payment due is a soft hold", RequestStatusApproved, base.Terms, HoldSoft},
		{"approved free promo is a firm hold", RequestStatusApproved, FreePromotion(), HoldFirm},
		{"paid is a firm hold", RequestStatusPaid, base.Terms, HoldFirm},
		{"active is a firm hold", RequestStatusActive, base.Terms, HoldFirm},
		{"expired releases the days", RequestStatusExpired, base.Terms, HoldNone},
		{"completed releases the days", RequestStatusCompleted, base.Terms, HoldNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := SpotlightRequest{Status: tc.status, Terms: tc.terms}
			if got := r.Hold(); got != tc.want {
				t.Errorf("expected hold %v, got %v", tc.want, got)
			}
		})
	}
}

func TestRequestOverlaps(t *testing.T) {
	r := SpotlightRequest{StartDate: day(t, "2026-03-05"), EndDate: day(t, "2026-03-07")}

	if !r.Overlaps(day(t, "2026-03-07"), day(t, "2026-03-09")) {
		t.Error("ranges sharing a boundary day should overlap")
	}
	if !r.Overlaps(day(t, "2026-03-04"), day(t, "2026-03-05")) {
		t.Error("ranges sharing the start day should overlap")
	}
	if r.Overlaps(day(t, "2026-03-08"), day(t, "2026-03-09")) {
		t.Error("adjacent but disjoint ranges should not overlap")
	}
	if r.Overlaps(day(t, "2026-03-01"), day(t, "2026-03-04")) {
		t.Error("earlier disjoint range should not overlap")
	}
}

func TestPaymentWindow(t *testing.T) {
	approvedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 24 * time.Hour
	req := SpotlightRequest{
		Status:     RequestStatusApproved,
		Terms:      RequiresPayment(100),
		ApprovedAt: &approvedAt,
	}

	if req.PaymentExpired(approvedAt.Add(window), window) {
		t.Error("request should not expire exactly at the deadline")
	}
	if !req.PaymentExpired(approvedAt.Add(window+time.Second), window) {
		t.Error("request should expire once the window has elapsed")
	}

	t.Run("free promo never expires", func(t *testing.T) {
		free := req
		free.Terms = FreePromotion()
		if free.PaymentExpired(approvedAt.Add(48*time.Hour), window) {
			t.Error("free promo should not be subject to the payment window")
		}
	})

	t.Run("paid request never expires", func(t *testing.T) {
		paid := req
		paid.Status = RequestStatusPaid
		if paid.PaymentExpired(approvedAt.Add(48*time.Hour), window) {
			t.Error("paid request should not expire")
		}
	})
}

func TestActivationAndCompletionDue(t *testing.T) {
	start := day(t, "2026-03-05")
	end := day(t, "2026-03-07")
	req := SpotlightRequest{Status: RequestStatusPaid, StartDate: start, EndDate: end}

	if req.ActivationDue(start) {
		t.Error("activation should not fire at midnight exactly")
	}
	if !req.ActivationDue(start.Add(time.Minute)) {
		t.Error("activation should fire at 00:01 on the start date")
	}

	req.Status = RequestStatusActive
	if req.CompletionDue(end.Add(23 * time.Hour)) {
		t.Error("completion should not fire during the final day")
	}
	if !req.CompletionDue(end.Add(24 * time.Hour)) {
		t.Error("completion should fire 24h after the end date")
	}

	req.Status = RequestStatusPaid
	if req.CompletionDue(end.Add(48 * time.Hour)) {
		t.Error("only active placements complete")
	}
}

// --- Pricing Tests ---

func TestPricing(t *testing.T) {
	p := NewPricing(25, 100_000_000)

	t.Run("price is linear in duration", func(t *testing.T) {
		for days := 1; days <= MaxDurationDays; days++ {
			want := int64(days) * 25 * 100_000_000
			if got := p.PriceFor(days); got != want {
				t.Errorf("days=%d: expected %d, got %d", days, want, got)
			}
		}
	})

	t.Run("fingerprint offset is stable and in range", func(t *testing.T) {
		a := FingerprintOffset("req-a")
		if a != FingerprintOffset("req-a") {
			t.Error("offset must be deterministic for the same id")
		}
		ids := []string{"req-a", "req-b", "req-c", "550e8400-e29b-41d4-a716-446655440000"}
		for _, id := range ids {
			off := FingerprintOffset(id)
			if off < 1 || off > 9999 {
				t.Errorf("offset for %s out of range: %d", id, off)
			}
		}
	})

	t.Run("expected amount combines price and fingerprint", func(t *testing.T) {
		want := p.PriceFor(3) + FingerprintOffset("req-a")
		if got := p.ExpectedAmount("req-a", 3); got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	})
}

// --- Availability Tests ---

func TestBuildAvailability(t *testing.T) {
	mk := func(status RequestStatus, terms PaymentTerms, start, end string) *SpotlightRequest {
		return &SpotlightRequest{
			Status:    status,
			Terms:     terms,
			StartDate: day(t, start),
			EndDate:   day(t, end),
		}
	}

	a := BuildAvailability([]*SpotlightRequest{
		mk(RequestStatusPaid, RequiresPayment(100), "2026-03-05", "2026-03-06"),
		mk(RequestStatusPending, RequiresPayment(100), "2026-03-10", "2026-03-11"),
		mk(RequestStatusExpired, RequiresPayment(100), "2026-03-15", "2026-03-16"),
		mk(RequestStatusApproved, FreePromotion(), "2026-03-20", "2026-03-20"),
	})

	if got := a.Booked.Days(); len(got) != 3 {
		t.Fatalf("expected 3 booked days, got %v", got)
	}
	if !a.Booked.Has(day(t, "2026-03-05")) || !a.Booked.Has(day(t, "2026-03-06")) {
		t.Error("paid range should be booked")
	}
	if !a.Booked.Has(day(t, "2026-03-20")) {
		t.Error("approved free promo should be booked")
	}
	if !a.Pending.Has(day(t, "2026-03-10")) || !a.Pending.Has(day(t, "2026-03-11")) {
		t.Error("pending range should be pending")
	}
	if a.Booked.Has(day(t, "2026-03-15")) || a.Pending.Has(day(t, "2026-03-15")) {
		t.Error("expired requests must not occupy the calendar")
	}
}

func TestCheckSelectable(t *testing.T) {
	now := day(t, "2026-03-01")
	a := BuildAvailability([]*SpotlightRequest{
		{Status: RequestStatusPaid, Terms: RequiresPayment(100), StartDate: day(t, "2026-03-05"), EndDate: day(t, "2026-03-06")},
	})

	t.Run("free range is selectable", func(t *testing.T) {
		if err := a.CheckSelectable(day(t, "2026-03-07"), day(t, "2026-03-08"), now); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("range crossing a booked day is rejected", func(t *testing.T) {
		err := a.CheckSelectable(day(t, "2026-03-04"), day(t, "2026-03-05"), now)
		if !errors.Is(err, domain.ErrDateUnavailable) {
			t.Fatalf("expected ErrDateUnavailable, got %v", err)
		}
	})

	t.Run("too-long range is rejected before calendar checks", func(t *testing.T) {
		err := a.CheckSelectable(day(t, "2026-03-10"), day(t, "2026-03-16"), now)
		if !errors.Is(err, domain.ErrDurationOutOfRange) {
			t.Fatalf("expected ErrDurationOutOfRange, got %v", err)
		}
	})

	t.Run("same-day start is rejected", func(t *testing.T) {
		err := a.CheckSelectable(day(t, "2026-03-01"), day(t, "2026-03-02"), now)
		if !errors.Is(err, domain.ErrStartDateTooSoon) {
			t.Fatalf("expected ErrStartDateTooSoon, got %v", err)
		}
	})
}

// --- Day helpers ---

func TestDayHelpers(t *testing.T) {
	noon := time.Date(2026, 3, 5, 13, 45, 12, 0, time.UTC)
	if got := Day(noon); !got.Equal(day(t, "2026-03-05")) {
		t.Errorf("expected midnight truncation, got %v", got)
	}
	if got := DurationDays(day(t, "2026-03-05"), day(t, "2026-03-05")); got != 1 {
		t.Errorf("expected inclusive count 1, got %d", got)
	}
	if got := DurationDays(day(t, "2026-03-05"), day(t, "2026-03-09")); got != 5 {
		t.Errorf("expected inclusive count 5, got %d", got)
	}
}
