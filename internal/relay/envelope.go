package relay

import (
	"encoding/base64"
	"encoding/json"
)

// Telephony events (Twilio Media Streams wire format)

type twilioEvent struct {
	Event string        `json:"event"`
	Start *startPayload `json:"start,omitempty"`
	Media *mediaPayload `json:"media,omitempty"`
}

type startPayload struct {
	StreamSID string `json:"streamSid"`
}

type mediaPayload struct {
	Track   string `json:"track"`
	Payload string `json:"payload"`
}

type outboundMedia struct {
	Event     string          `json:"event"`
	StreamSID string          `json:"streamSid"`
	Media     outboundPayload `json:"media"`
}

type outboundPayload struct {
	Payload string `json:"payload"`
}

type outboundClear struct {
	Event     string `json:"event"`
	StreamSID string `json:"streamSid"`
}

type outboundMark struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid"`
	Mark      markPayload `json:"mark"`
}

type markPayload struct {
	Name string `json:"name"`
}

func newMediaMessage(streamSID string, audio []byte) outboundMedia {
	return outboundMedia{
		Event:     "media",
		StreamSID: streamSID,
		Media:     outboundPayload{Payload: base64.StdEncoding.EncodeToString(audio)},
	}
}

func newClearMessage(streamSID string) outboundClear {
	return outboundClear{Event: "clear", StreamSID: streamSID}
}

func newMarkMessage(streamSID, name string) outboundMark {
	return outboundMark{
		Event:     "mark",
		StreamSID: streamSID,
		Mark:      markPayload{Name: name},
	}
}

// Agent control messages (text frames on the agent socket)

type agentEvent struct {
	Type string `json:"type"`
}

type functionCall struct {
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	Arguments json.RawMessage `json:"arguments"`
}

type functionCallRequest struct {
	Type      string         `json:"type"`
	Functions []functionCall `json:"functions"`
}

type functionCallResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// parseArguments decodes a function call's arguments into a keyword map.
// The agent sends arguments as a JSON-encoded string, but a bare object is
// tolerated too. Anything unparseable yields an empty map.
func parseArguments(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(text), &args); err == nil && args != nil {
			return args
		}
		return map[string]interface{}{}
	}

	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err == nil && args != nil {
		return args
	}
	return map[string]interface{}{}
}
