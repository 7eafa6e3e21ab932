package lawfirm

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// attorneyByPracticeArea routes qualified leads to the attorney who
// handles that practice area.
var attorneyByPracticeArea = map[string]string{
	"personal_injury": "John Doe",
	"lemon_law":       "Jane Roe",
	"family_law":      "Rhonda Fernandez",
}

// Question is one intake question the agent asks in order.
type Question struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Required bool   `json:"required"`
}

var questionVersions = map[string]string{
	"personal_injury": "PI_v1.3",
	"family_law":      "FL_v1.0",
	"lemon_law":       "LL_v1.2",
}

var questionSets = map[string][]Question{
	"personal_injury": {
		{ID: "accident_date", Question: "What was the date of the accident?", Required: true},
		{ID: "police_report", Question: "Was there a police report?", Required: true},
	},
	"family_law": {
		{ID: "issue_type", Question: "What type of family law issue is this?", Required: true},
		{ID: "duration", Question: "How long has this issue been ongoing?", Required: true},
		{ID: "existing_orders", Question: "Are there existing court orders?", Required: true},
		{ID: "children", Question: "Are children involved? If so, how many and ages?", Required: true},
		{ID: "children_concern", Question: "Any immediate concerns regarding the children?", Required: true},
		{ID: "prior_attorney", Question: "Have you worked with an attorney on this before?", Required: true},
		{ID: "mediation", Question: "Have you tried mediation?", Required: true},
		{ID: "desired_outcome", Question: "What outcome are you hoping for?", Required: true},
	},
	"lemon_law": {
		{ID: "vehicle_year", Question: "What is the vehicle year?", Required: true},
		{ID: "vehicle_make_model", Question: "What is the make and model?", Required: true},
		{ID: "purchase_warranty", Question: "When was it purchased and what warranty applies?", Required: true},
		{ID: "defect_description", Question: "Describe the defect(s).", Required: true},
		{ID: "repair_history", Question: "How many repair attempts and dates?", Required: true},
		{ID: "dealer_manufacturer_interactions", Question: "Any interactions with dealer/manufacturer?", Required: true},
		{ID: "impact_use_value_safety", Question: "How does the issue affect use, value, or safety?", Required: true},
		{ID: "desired_outcome", Question: "What resolution are you seeking?", Required: true},
	},
}

// PracticeAreaAttorneyName returns the attorney who handles a given
// practice area, or null if no one covers it.
func (f *Functions) PracticeAreaAttorneyName(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	practiceArea := strings.ToLower(argString(args, "practice_area"))
	name, ok := attorneyByPracticeArea[practiceArea]
	result := map[string]interface{}{"ok": true}
	if ok {
		result["attorney_name"] = name
	} else {
		result["attorney_name"] = nil
	}
	return result, nil
}

// GetPracticeAreaQuestions returns the ordered, versioned intake
// questions for a practice area. Unknown areas get an empty list so the
// agent can continue the conversation.
func (f *Functions) GetPracticeAreaQuestions(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	practiceArea := strings.ToLower(argString(args, "practice_area"))

	questions, ok := questionSets[practiceArea]
	if !ok {
		questions = []Question{}
	}
	var version interface{}
	if v, ok := questionVersions[practiceArea]; ok {
		version = v
	}
	return map[string]interface{}{
		"ok":                    true,
		"practice_area":         practiceArea,
		"practice_area_version": version,
		"questions":             questions,
	}, nil
}

// GetCurrentDatetime pins "today" for the session: the agent has no
// clock of its own, so date math in conversation starts from here.
func (f *Functions) GetCurrentDatetime(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	nowUTC := f.now().UTC()
	nowLocal := nowUTC.In(f.deps.BusinessTZ)

	return map[string]interface{}{
		"epoch_ms":   nowUTC.UnixMilli(),
		"utc_iso":    nowUTC.Format("2006-01-02T15:04:05.999999Z"),
		"pt_iso":     nowLocal.Format("2006-01-02T15:04:05.999999-07:00"),
		"pt_date":    nowLocal.Format("2006-01-02"),
		"pt_year":    nowLocal.Year(),
		"pt_weekday": nowLocal.Weekday().String(),
		"pt_time_24": nowLocal.Format("15:04"),
		"tz":         f.deps.BusinessTZ.String(),
	}, nil
}

// callerIDSentinels are placeholder values agents send when no id has
// been assigned yet. Each gets replaced with a fresh UUID.
var callerIDSentinels = map[string]struct{}{
	"":                 {},
	"undefined":        {},
	"null":             {},
	"none":             {},
	"unique_caller_id": {},
}

// normalizeCallerID returns the candidate if it is already a valid
// UUID, otherwise a newly generated one.
func normalizeCallerID(candidate string) string {
	value := strings.TrimSpace(candidate)
	if _, sentinel := callerIDSentinels[strings.ToLower(value)]; sentinel {
		return uuid.NewString()
	}
	if _, err := uuid.Parse(value); err != nil {
		return uuid.NewString()
	}
	return value
}

// CreateOrGetCallerID validates or mints the per-call caller id, and
// records the session start without blocking the call.
func (f *Functions) CreateOrGetCallerID(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	callerID := normalizeCallerID(argString(args, "existing_id"))
	sourceChannel := argString(args, "source_channel")

	if f.deps.DB != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := f.deps.DB.Pool().Exec(ctx,
				`INSERT INTO call_sessions (unique_caller_id, source_channel)
				 VALUES ($1, $2)`,
				callerID, sourceChannel,
			); err != nil {
				f.log.Warn("Failed to record call session",
					zap.String("unique_caller_id", callerID),
					zap.Error(err))
			}
		}()
	}

	return map[string]interface{}{
		"ok":               true,
		"unique_caller_id": callerID,
	}, nil
}
