package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func testRegistry() Registry {
	return Registry{
		"echo": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return map[string]interface{}{"ok": true, "args": args}, nil
		},
		"fails": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return nil, errors.New("database unavailable")
		},
		"panics": func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			panic("nil map write")
		},
	}
}

func TestDispatchUnknownFunction(t *testing.T) {
	d := NewDispatcher(testRegistry(), zap.NewNop())

	raw := []byte(`{"type":"FunctionCallRequest","functions":[{"name":"unknown_fn","id":"x1","arguments":"{}"}]}`)
	responses := d.Handle(context.Background(), raw)

	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	resp := responses[0]
	if resp.ID != "x1" || resp.Name != "unknown_fn" {
		t.Errorf("id/name = %q/%q, want x1/unknown_fn", resp.ID, resp.Name)
	}

	var content map[string]string
	if err := json.Unmarshal([]byte(resp.Content), &content); err != nil {
		t.Fatalf("content not JSON: %v", err)
	}
	if content["error"] != "Unknown function: unknown_fn" {
		t.Errorf("error = %q, want %q", content["error"], "Unknown function: unknown_fn")
	}
}

func TestDispatchOneResponsePerInvocation(t *testing.T) {
	d := NewDispatcher(testRegistry(), zap.NewNop())

	raw := []byte(`{"type":"FunctionCallRequest","functions":[
		{"name":"echo","id":"a","arguments":"{\"city\":\"Portland\"}"},
		{"name":"fails","id":"b","arguments":"{}"},
		{"name":"panics","id":"c","arguments":"{}"},
		{"name":"missing","id":"d","arguments":"not json"}
	]}`)
	responses := d.Handle(context.Background(), raw)

	if len(responses) != 4 {
		t.Fatalf("got %d responses, want 4", len(responses))
	}

	wantIDs := []string{"a", "b", "c", "d"}
	wantNames := []string{"echo", "fails", "panics", "missing"}
	for i, resp := range responses {
		if resp.ID != wantIDs[i] || resp.Name != wantNames[i] {
			t.Errorf("response %d id/name = %q/%q, want %q/%q",
				i, resp.ID, resp.Name, wantIDs[i], wantNames[i])
		}
		if resp.Type != "FunctionCallResponse" {
			t.Errorf("response %d type = %q", i, resp.Type)
		}
		var content map[string]interface{}
		if err := json.Unmarshal([]byte(resp.Content), &content); err != nil {
			t.Errorf("response %d content not JSON: %v", i, err)
		}
	}

	// the echo call should carry the parsed arguments through
	var echoContent map[string]interface{}
	json.Unmarshal([]byte(responses[0].Content), &echoContent)
	args, _ := echoContent["args"].(map[string]interface{})
	if args["city"] != "Portland" {
		t.Errorf("echo args = %v, want city=Portland", args)
	}

	// failures and panics come back as error payloads, not dropped
	for _, i := range []int{1, 2} {
		var content map[string]string
		json.Unmarshal([]byte(responses[i].Content), &content)
		if content["error"] == "" {
			t.Errorf("response %d missing error payload: %s", i, responses[i].Content)
		}
	}
}

func TestDispatchMalformedRequestList(t *testing.T) {
	d := NewDispatcher(testRegistry(), zap.NewNop())

	responses := d.Handle(context.Background(), []byte(`{"type":"FunctionCallRequest","functions":"oops"}`))
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1 fallback", len(responses))
	}
	if responses[0].ID != "unknown" || responses[0].Name != "unknown" {
		t.Errorf("fallback id/name = %q/%q, want unknown/unknown", responses[0].ID, responses[0].Name)
	}
	var content map[string]string
	if err := json.Unmarshal([]byte(responses[0].Content), &content); err != nil {
		t.Fatalf("fallback content not JSON: %v", err)
	}
	if content["error"] == "" {
		t.Error("fallback missing error payload")
	}
}

func TestDispatchMissingIDAndName(t *testing.T) {
	d := NewDispatcher(testRegistry(), zap.NewNop())

	raw := []byte(`{"type":"FunctionCallRequest","functions":[{"arguments":"{}"}]}`)
	responses := d.Handle(context.Background(), raw)
	if len(responses) != 1 {
		t.Fatalf("got %d responses, want 1", len(responses))
	}
	if responses[0].ID != "unknown" || responses[0].Name != "unknown" {
		t.Errorf("sentinels = %q/%q, want unknown/unknown", responses[0].ID, responses[0].Name)
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]interface{}
	}{
		{name: "json-encoded string", raw: `"{\"a\":1}"`, want: map[string]interface{}{"a": float64(1)}},
		{name: "bare object", raw: `{"a":1}`, want: map[string]interface{}{"a": float64(1)}},
		{name: "garbage string", raw: `"not json"`, want: map[string]interface{}{}},
		{name: "garbage raw", raw: `[1,2]`, want: map[string]interface{}{}},
		{name: "empty", raw: ``, want: map[string]interface{}{}},
		{name: "null", raw: `null`, want: map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseArguments(json.RawMessage(tt.raw))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("args[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
