package lawfirm

import (
	"context"
	"errors"
	"time"

	"github.com/oakwoodlegal/intake-agent/pkg/calendar"
)

var errNoCalendar = errors.New("calendar not configured")

// GetNextAvailableSlots returns the next open appointment slots on the
// firm calendar.
func (f *Functions) GetNextAvailableSlots(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.Calendar == nil {
		return nil, errNoCalendar
	}

	count := argInt(args, "count", 3)
	slotMinutes := argInt(args, "slot_minutes", 30)
	horizonDays := argInt(args, "horizon_days", 21)
	calendarID := argStringOr(args, "cal_id", f.deps.CalendarID)

	slots, err := f.deps.Calendar.NextAvailableSlots(ctx, calendarID, count, slotMinutes, horizonDays)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"ok":    true,
		"tz":    f.deps.BusinessTZ.String(),
		"slots": formatSlots(slots),
	}, nil
}

// CheckSlotAndAlternatives verifies a proposed time and, when it does
// not work, explains why and offers open alternatives.
func (f *Functions) CheckSlotAndAlternatives(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if f.deps.Calendar == nil {
		return nil, errNoCalendar
	}

	proposed := argString(args, "proposed_start_iso")
	if proposed == "" {
		return nil, errors.New("proposed_start_iso is required")
	}
	slotMinutes := argInt(args, "slot_minutes", 30)
	count := argInt(args, "count", 3)
	calendarID := argStringOr(args, "cal_id", f.deps.CalendarID)

	check, err := f.deps.Calendar.CheckSlot(ctx, calendarID, proposed, slotMinutes, count)
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"ok":           true,
		"available":    check.Available,
		"tz":           f.deps.BusinessTZ.String(),
		"alternatives": formatSlots(check.Alternatives),
	}
	if check.Requested != nil {
		result["requested"] = formatSlot(*check.Requested)
	}
	if check.Reason != "" {
		result["reason"] = check.Reason
	}
	return result, nil
}

func formatSlot(s calendar.Slot) map[string]interface{} {
	return map[string]interface{}{
		"start_iso": s.Start.Format(time.RFC3339),
		"end_iso":   s.End.Format(time.RFC3339),
		"label":     s.Label,
	}
}

func formatSlots(slots []calendar.Slot) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(slots))
	for _, s := range slots {
		out = append(out, formatSlot(s))
	}
	return out
}
