package calendar

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Office hours in the firm's local timezone. Appointments must start at
// or after opening and finish by closing.
const (
	openHour  = 9
	closeHour = 17
)

const slotLabelLayout = "Monday, January 02, 2006 at 03:04 PM MST"

// BusyInterval is a half-open [Start, End) window during which the
// calendar is unavailable. Times are UTC.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeBusyClient answers availability queries for a calendar.
type FreeBusyClient interface {
	FreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]BusyInterval, error)
}

// Slot is a bookable appointment window.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

// SlotCheck reports whether a proposed time works, and offers
// alternatives when it does not.
type SlotCheck struct {
	Available    bool   `json:"available"`
	Reason       string `json:"reason,omitempty"`
	Requested    *Slot  `json:"requested,omitempty"`
	Alternatives []Slot `json:"alternatives"`
}

// Service computes open appointment slots against office hours and
// calendar busy intervals.
type Service struct {
	fb  FreeBusyClient
	loc *time.Location
	now func() time.Time
	log *zap.Logger
}

func NewService(fb FreeBusyClient, loc *time.Location, log *zap.Logger) *Service {
	return &Service{fb: fb, loc: loc, now: time.Now, log: log.Named("slots")}
}

// NextAvailableSlots returns up to count open slots of slotMinutes each,
// scanning forward from now through horizonDays of weekdays.
func (s *Service) NextAvailableSlots(ctx context.Context, calendarID string, count, slotMinutes, horizonDays int) ([]Slot, error) {
	if count <= 0 {
		count = 3
	}
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	if horizonDays <= 0 {
		horizonDays = 21
	}

	now := s.now().In(s.loc)
	windowEnd := now.AddDate(0, 0, horizonDays)
	busy, err := s.fb.FreeBusy(ctx, calendarID, now, windowEnd)
	if err != nil {
		return nil, err
	}

	slots := s.freeSlots(now, windowEnd, slotMinutes, busy, count)
	return slots, nil
}

// CheckSlot validates a proposed start time against office hours and the
// calendar, returning alternatives when the slot does not work. The
// proposed time is parsed as RFC 3339; a bare offset-less value is taken
// to be in the firm's timezone.
func (s *Service) CheckSlot(ctx context.Context, calendarID, proposed string, slotMinutes, alternativeCount int) (*SlotCheck, error) {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	if alternativeCount <= 0 {
		alternativeCount = 3
	}

	start, err := parseProposed(proposed, s.loc)
	if err != nil {
		return nil, fmt.Errorf("parse proposed time %q: %w", proposed, err)
	}
	start = start.In(s.loc)
	end := start.Add(time.Duration(slotMinutes) * time.Minute)

	now := s.now().In(s.loc)
	windowEnd := now.AddDate(0, 0, 21)
	busy, err := s.fb.FreeBusy(ctx, calendarID, now, windowEnd)
	if err != nil {
		return nil, err
	}

	check := &SlotCheck{
		Requested:    &Slot{Start: start, End: end, Label: start.Format(slotLabelLayout)},
		Alternatives: []Slot{},
	}

	switch {
	case !start.After(now):
		check.Reason = "requested time is in the past"
	case isWeekend(start):
		check.Reason = "the office is closed on weekends"
	case !withinOfficeHours(start, end):
		check.Reason = fmt.Sprintf("appointments run %d:00 AM to %d:00 PM", openHour, closeHour-12)
	case conflicts(start, end, busy):
		check.Reason = "that time is already booked"
	default:
		check.Available = true
		return check, nil
	}

	check.Alternatives = s.freeSlots(now, windowEnd, slotMinutes, busy, alternativeCount)
	return check, nil
}

// freeSlots walks weekday office hours from "from", skipping busy
// intervals, until it collects up to count open slots.
func (s *Service) freeSlots(from, until time.Time, slotMinutes int, busy []BusyInterval, count int) []Slot {
	slotDur := time.Duration(slotMinutes) * time.Minute
	slots := []Slot{}

	cursor := ceilToSlot(from, slotMinutes)
	for len(slots) < count && cursor.Before(until) {
		if isWeekend(cursor) {
			cursor = nextMorning(cursor)
			continue
		}
		dayOpen := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), openHour, 0, 0, 0, s.loc)
		if cursor.Before(dayOpen) {
			cursor = dayOpen
			continue
		}
		end := cursor.Add(slotDur)
		if !withinOfficeHours(cursor, end) {
			cursor = nextMorning(cursor)
			continue
		}
		if conflicts(cursor, end, busy) {
			cursor = cursor.Add(slotDur)
			continue
		}
		slots = append(slots, Slot{
			Start: cursor,
			End:   end,
			Label: cursor.Format(slotLabelLayout),
		})
		cursor = cursor.Add(slotDur)
	}
	return slots
}

// ceilToSlot rounds t up to the next slot boundary within the hour.
func ceilToSlot(t time.Time, slotMinutes int) time.Time {
	step := time.Duration(slotMinutes) * time.Minute
	truncated := t.Truncate(step)
	if truncated.Equal(t) {
		return t
	}
	return truncated.Add(step)
}

func nextMorning(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), openHour, 0, 0, 0, t.Location())
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func withinOfficeHours(start, end time.Time) bool {
	dayOpen := time.Date(start.Year(), start.Month(), start.Day(), openHour, 0, 0, 0, start.Location())
	dayClose := time.Date(start.Year(), start.Month(), start.Day(), closeHour, 0, 0, 0, start.Location())
	return !start.Before(dayOpen) && !end.After(dayClose)
}

func conflicts(start, end time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

func parseProposed(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	// Callers sometimes omit the offset; treat those as local times.
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}
