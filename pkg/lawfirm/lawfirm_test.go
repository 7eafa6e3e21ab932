package lawfirm

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/calendar"
)

func newTestFunctions(t *testing.T) *Functions {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return New(Deps{BusinessTZ: loc, Log: zap.NewNop()})
}

func TestNormalizeCallerID(t *testing.T) {
	existing := uuid.NewString()
	tests := []struct {
		name      string
		candidate string
		wantKept  bool
	}{
		{"valid uuid kept", existing, true},
		{"empty replaced", "", false},
		{"undefined replaced", "undefined", false},
		{"null replaced", "NULL", false},
		{"none replaced", "none", false},
		{"placeholder replaced", "unique_caller_id", false},
		{"garbage replaced", "not-a-uuid", false},
		{"whitespace trimmed", "  " + existing + "  ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeCallerID(tt.candidate)
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("result %q is not a uuid: %v", got, err)
			}
			if tt.wantKept && got != existing {
				t.Errorf("got %q, want original %q kept", got, existing)
			}
			if !tt.wantKept && got == tt.candidate {
				t.Errorf("candidate %q should have been replaced", tt.candidate)
			}
		})
	}
}

func TestCreateOrGetCallerID(t *testing.T) {
	f := newTestFunctions(t)
	result, err := f.CreateOrGetCallerID(context.Background(), map[string]interface{}{
		"existing_id": "undefined",
	})
	if err != nil {
		t.Fatalf("CreateOrGetCallerID: %v", err)
	}
	payload := result.(map[string]interface{})
	if payload["ok"] != true {
		t.Error("expected ok true")
	}
	if _, err := uuid.Parse(payload["unique_caller_id"].(string)); err != nil {
		t.Errorf("unique_caller_id not a uuid: %v", err)
	}
}

func TestPracticeAreaAttorneyName(t *testing.T) {
	f := newTestFunctions(t)
	tests := []struct {
		area string
		want interface{}
	}{
		{"personal_injury", "John Doe"},
		{"lemon_law", "Jane Roe"},
		{"family_law", "Rhonda Fernandez"},
		{"FAMILY_LAW", "Rhonda Fernandez"},
		{"maritime_law", nil},
	}
	for _, tt := range tests {
		t.Run(tt.area, func(t *testing.T) {
			result, err := f.PracticeAreaAttorneyName(context.Background(), map[string]interface{}{
				"practice_area": tt.area,
			})
			if err != nil {
				t.Fatalf("PracticeAreaAttorneyName: %v", err)
			}
			payload := result.(map[string]interface{})
			if payload["attorney_name"] != tt.want {
				t.Errorf("attorney_name = %v, want %v", payload["attorney_name"], tt.want)
			}
		})
	}
}

func TestGetPracticeAreaQuestions(t *testing.T) {
	f := newTestFunctions(t)

	tests := []struct {
		area        string
		wantVersion interface{}
		wantCount   int
		wantFirstID string
	}{
		{"personal_injury", "PI_v1.3", 2, "accident_date"},
		{"family_law", "FL_v1.0", 8, "issue_type"},
		{"lemon_law", "LL_v1.2", 8, "vehicle_year"},
		{"unknown_area", nil, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.area, func(t *testing.T) {
			result, err := f.GetPracticeAreaQuestions(context.Background(), map[string]interface{}{
				"practice_area": tt.area,
			})
			if err != nil {
				t.Fatalf("GetPracticeAreaQuestions: %v", err)
			}
			payload := result.(map[string]interface{})
			if payload["practice_area_version"] != tt.wantVersion {
				t.Errorf("version = %v, want %v", payload["practice_area_version"], tt.wantVersion)
			}
			questions := payload["questions"].([]Question)
			if len(questions) != tt.wantCount {
				t.Fatalf("got %d questions, want %d", len(questions), tt.wantCount)
			}
			if tt.wantCount > 0 && questions[0].ID != tt.wantFirstID {
				t.Errorf("first question id = %q, want %q", questions[0].ID, tt.wantFirstID)
			}
		})
	}
}

func TestGetCurrentDatetime(t *testing.T) {
	f := newTestFunctions(t)
	fixed := time.Date(2026, time.March, 18, 19, 30, 0, 0, time.UTC) // Wednesday
	f.now = func() time.Time { return fixed }

	result, err := f.GetCurrentDatetime(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetCurrentDatetime: %v", err)
	}
	payload := result.(map[string]interface{})

	if got := payload["epoch_ms"].(int64); got != fixed.UnixMilli() {
		t.Errorf("epoch_ms = %d, want %d", got, fixed.UnixMilli())
	}
	if got := payload["pt_date"]; got != "2026-03-18" {
		t.Errorf("pt_date = %v", got)
	}
	if got := payload["pt_weekday"]; got != "Wednesday" {
		t.Errorf("pt_weekday = %v", got)
	}
	// 19:30 UTC in mid-March is 12:30 PDT.
	if got := payload["pt_time_24"]; got != "12:30" {
		t.Errorf("pt_time_24 = %v", got)
	}
	if got := payload["pt_year"]; got != 2026 {
		t.Errorf("pt_year = %v", got)
	}
	if got := payload["tz"]; got != "America/Los_Angeles" {
		t.Errorf("tz = %v", got)
	}
}

type stubFreeBusy struct{}

func (stubFreeBusy) FreeBusy(ctx context.Context, calendarID string, min, max time.Time) ([]calendar.BusyInterval, error) {
	return nil, nil
}

func TestGetNextAvailableSlotsShapesResult(t *testing.T) {
	loc, _ := time.LoadLocation("America/Los_Angeles")
	f := New(Deps{
		Calendar:   calendar.NewService(stubFreeBusy{}, loc, zap.NewNop()),
		CalendarID: "intake@oakwoodlegal.com",
		BusinessTZ: loc,
		Log:        zap.NewNop(),
	})

	result, err := f.GetNextAvailableSlots(context.Background(), map[string]interface{}{
		"count": float64(2),
	})
	if err != nil {
		t.Fatalf("GetNextAvailableSlots: %v", err)
	}
	payload := result.(map[string]interface{})
	if payload["ok"] != true {
		t.Error("expected ok true")
	}
	slots := payload["slots"].([]map[string]interface{})
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	for i, s := range slots {
		for _, key := range []string{"start_iso", "end_iso", "label"} {
			if s[key] == "" || s[key] == nil {
				t.Errorf("slot %d missing %s", i, key)
			}
		}
	}
}

func TestSchedulingRequiresCalendar(t *testing.T) {
	f := newTestFunctions(t)
	if _, err := f.GetNextAvailableSlots(context.Background(), nil); err == nil {
		t.Error("expected error without calendar")
	}
	if _, err := f.CheckSlotAndAlternatives(context.Background(), map[string]interface{}{
		"proposed_start_iso": "2026-03-18T10:00:00",
	}); err == nil {
		t.Error("expected error without calendar")
	}
}

func TestArgHelpers(t *testing.T) {
	args := map[string]interface{}{
		"str":    "  hello  ",
		"num":    float64(42),
		"numstr": "17",
		"bad":    []interface{}{1},
	}
	if got := argString(args, "str"); got != "hello" {
		t.Errorf("argString = %q", got)
	}
	if got := argInt(args, "num", 0); got != 42 {
		t.Errorf("argInt float = %d", got)
	}
	if got := argInt(args, "missing", 7); got != 7 {
		t.Errorf("argInt fallback = %d", got)
	}
	if got, err := argInt64(args, "numstr"); err != nil || got != 17 {
		t.Errorf("argInt64 string = %d, %v", got, err)
	}
	if _, err := argInt64(args, "bad"); err == nil {
		t.Error("argInt64 should reject non-numeric types")
	}
	if _, err := argInt64(args, "missing"); err == nil {
		t.Error("argInt64 should reject missing keys")
	}
}

func TestRegistryCoversEveryFunction(t *testing.T) {
	f := newTestFunctions(t)
	registry := f.Registry()
	want := []string{
		"save_lead", "update_lead_practice_area", "save_appointment",
		"send_confirmation_email", "send_email",
		"practice_area_attorney_name", "get_practice_area_questions",
		"get_current_datetime", "create_or_get_caller_id",
		"get_next_available_slots", "check_slot_and_alternatives",
	}
	if len(registry) != len(want) {
		t.Errorf("registry has %d entries, want %d", len(registry), len(want))
	}
	for _, name := range want {
		if registry[name] == nil {
			t.Errorf("registry missing %q", name)
		}
	}
}
