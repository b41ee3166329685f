package model

import (
	"sort"
	"time"

	"marketplace-spotlight/internal/domain"
)

// DayKeyFormat renders a calendar day as its wire representation.
const DayKeyFormat = "2006-01-02"

// DaySet is a set of calendar days keyed by their ISO date string.
type DaySet map[string]struct{}

func (s DaySet) Add(day time.Time) { s[Day(day).Format(DayKeyFormat)] = struct{}{} }

func (s DaySet) Has(day time.Time) bool {
	_, ok := s[Day(day).Format(DayKeyFormat)]
	return ok
}

// Days returns the sorted ISO date keys.
func (s DaySet) Days() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Availability is the derived calendar state: bookedDays carry a confirmed
// hold, pendingDays a soft hold that still blocks new selections. Both are
// computed on demand from the request set, never cached as separate state.
type Availability struct {
	Booked  DaySet
	Pending DaySet
}

// BuildAvailability folds the current request set into the two day-sets.
// Terminal requests contribute nothing.
func BuildAvailability(requests []*SpotlightRequest) Availability {
	a := Availability{Booked: DaySet{}, Pending: DaySet{}}
	for _, r := range requests {
		var target DaySet
		switch r.Hold() {
		case HoldFirm:
			target = a.Booked
		case HoldSoft:
			target = a.Pending
		default:
			continue
		}
		for d := r.StartDate; !d.After(r.EndDate); d = d.AddDate(0, 0, 1) {
			target.Add(d)
		}
	}
	return a
}

// CheckSelectable validates a candidate range against the derived calendar.
// This is the advisory check; committing transitions re-derive it inside a
// transaction before applying state.
func (a Availability) CheckSelectable(start, end, now time.Time) error {
	start, end = Day(start), Day(end)
	days := DurationDays(start, end)
	if days < 1 || days > MaxDurationDays {
		return domain.ErrDurationOutOfRange
	}
	if !start.After(Day(now)) {
		return domain.ErrStartDateTooSoon
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if a.Booked.Has(d) || a.Pending.Has(d) {
			return domain.ErrDateUnavailable
		}
	}
	return nil
}
