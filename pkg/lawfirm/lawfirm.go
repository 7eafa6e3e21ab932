// Package lawfirm implements the business functions the voice agent can
// invoke during a call: lead capture, intake questions, scheduling, and
// confirmation email.
package lawfirm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/calendar"
	"github.com/oakwoodlegal/intake-agent/pkg/email"
	"github.com/oakwoodlegal/intake-agent/pkg/postgres"
)

// Handler executes one agent function call. The result is serialized to
// JSON and sent back to the agent verbatim.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registry maps agent function names to their handlers.
type Registry map[string]Handler

// Deps carries the external services the functions need. Any field may
// be nil; functions depending on a missing service report the gap in
// their result instead of panicking.
type Deps struct {
	DB         *postgres.Client
	Email      *email.Sender
	Calendar   *calendar.Service
	CalendarID string
	BusinessTZ *time.Location
	Log        *zap.Logger
}

// Functions binds the dependency set to the handler methods.
type Functions struct {
	deps Deps
	log  *zap.Logger
	now  func() time.Time
}

func New(deps Deps) *Functions {
	if deps.BusinessTZ == nil {
		deps.BusinessTZ = time.UTC
	}
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Functions{deps: deps, log: log.Named("lawfirm"), now: time.Now}
}

// Registry returns every agent-callable function keyed by the name the
// agent uses on the wire.
func (f *Functions) Registry() Registry {
	return Registry{
		"save_lead":                   f.SaveLead,
		"update_lead_practice_area":   f.UpdateLeadPracticeArea,
		"save_appointment":            f.SaveAppointment,
		"send_confirmation_email":     f.SendConfirmationEmail,
		"send_email":                  f.SendEmail,
		"practice_area_attorney_name": f.PracticeAreaAttorneyName,
		"get_practice_area_questions": f.GetPracticeAreaQuestions,
		"get_current_datetime":        f.GetCurrentDatetime,
		"create_or_get_caller_id":     f.CreateOrGetCallerID,
		"get_next_available_slots":    f.GetNextAvailableSlots,
		"check_slot_and_alternatives": f.CheckSlotAndAlternatives,
	}
}
