package model

import (
	"time"

	"marketplace-spotlight/internal/domain"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusPaid      RequestStatus = "paid"
	RequestStatusActive    RequestStatus = "active"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
	RequestStatusExpired   RequestStatus = "expired"
)

// IsTerminal reports whether no further transition may leave this status.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusRejected, RequestStatusCompleted, RequestStatusCancelled, RequestStatusExpired:
		return true
	}
	return false
}

// CalendarHold classifies how a request occupies the calendar.
type CalendarHold int

const (
	HoldNone CalendarHold = iota // terminal; days are free again
	HoldSoft                     // blocks new selections, admin can still override
	HoldFirm                     // confirmed hold on the calendar
)

// SpotlightRequest is one attempt to book the homepage spotlight slot.
// StartDate and EndDate are inclusive UTC calendar days (midnight-truncated).
type SpotlightRequest struct {
	ID           string
	ProjectID    string
	RequesterID  string
	Status       RequestStatus
	StartDate    time.Time
	EndDate      time.Time
	DurationDays int
	Terms        PaymentTerms
	HeroImageURL string
	Message      string
	AdminNotes   string
	ApprovedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSpotlightRequest validates the candidate range and builds a pending request.
func NewSpotlightRequest(id, projectID, requesterID string, start, end time.Time, heroImageURL, message string, pricing Pricing, now time.Time) (*SpotlightRequest, error) {
	if id == "" || projectID == "" || requesterID == "" {
		return nil, domain.ErrInvalidArgument
	}
	start = Day(start)
	end = Day(end)
	days := DurationDays(start, end)
	if days < 1 || days > MaxDurationDays {
		return nil, domain.ErrDurationOutOfRange
	}
	if !start.After(Day(now)) {
		return nil, domain.ErrStartDateTooSoon
	}
	return &SpotlightRequest{
		ID:           id,
		ProjectID:    projectID,
		RequesterID:  requesterID,
		Status:       RequestStatusPending,
		StartDate:    start,
		EndDate:      end,
		DurationDays: days,
		Terms:        RequiresPayment(pricing.PriceFor(days)),
		HeroImageURL: heroImageURL,
		Message:      message,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// MaxDurationDays caps a single booking.
const MaxDurationDays = 5

// Hold reports how this request currently occupies the calendar.
func (r *SpotlightRequest) Hold() CalendarHold {
	switch r.Status {
	case RequestStatusPaid, RequestStatusActive:
		return HoldFirm
	case RequestStatusApproved:
		if r.Terms.Free() {
			return HoldFirm
		}
		return HoldSoft
	case RequestStatusPending:
		return HoldSoft
	}
	return HoldNone
}

// Overlaps reports whether the two inclusive date ranges intersect.
func (r *SpotlightRequest) Overlaps(start, end time.Time) bool {
	return !r.EndDate.Before(Day(start)) && !Day(end).Before(r.StartDate)
}

// PaymentDeadline is the instant an approved, unpaid request expires.
func (r *SpotlightRequest) PaymentDeadline(window time.Duration) time.Time {
	if r.ApprovedAt == nil {
		return time.Time{}
	}
	return r.ApprovedAt.Add(window)
}

// PaymentExpired reports whether the payment window has elapsed unpaid.
func (r *SpotlightRequest) PaymentExpired(now time.Time, window time.Duration) bool {
	return r.Status == RequestStatusApproved && r.Terms.Due() &&
		r.ApprovedAt != nil && now.After(r.PaymentDeadline(window))
}

// ActivationDue reports whether a paid request has reached its scheduled start.
// Activation happens at 00:01 UTC on the start date.
func (r *SpotlightRequest) ActivationDue(now time.Time) bool {
	return r.Status == RequestStatusPaid && !now.Before(r.StartDate.Add(time.Minute))
}

// CompletionDue reports whether an active placement has run past its end date.
func (r *SpotlightRequest) CompletionDue(now time.Time) bool {
	return r.Status == RequestStatusActive && !now.Before(r.EndDate.Add(24*time.Hour))
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DurationDays counts the inclusive calendar days between start and end.
func DurationDays(start, end time.Time) int {
	return int(Day(end).Sub(Day(start))/(24*time.Hour)) + 1
}
