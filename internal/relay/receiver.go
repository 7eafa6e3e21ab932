package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
)

// receive consumes the agent socket. Binary frames are agent speech and
// are relayed to the caller; text frames are control JSON. Relaying
// cannot begin until the telephony start event has delivered the
// StreamToken, so this loop blocks on the handoff first.
func (s *Session) receive(ctx context.Context) error {
	var sid string
	select {
	case <-ctx.Done():
		return ctx.Err()
	case sid = <-s.sidCh:
	}

	for {
		msgType, data, err := s.agent.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("agent read: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := s.twilio.WriteJSON(newMediaMessage(sid, data)); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("telephony write: %w", err)
			}
			metrics.FrameToCaller(len(data))

		case websocket.TextMessage:
			if err := s.handleAgentEvent(ctx, sid, data); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleAgentEvent(ctx context.Context, sid string, data []byte) error {
	var ev agentEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.log.Warn("Malformed agent event, skipping", zap.Error(err))
		return nil
	}

	switch ev.Type {
	case "UserStartedSpeaking":
		// barge-in: tell the telephony side to drop queued playback
		metrics.BargeIn()
		if err := s.twilio.WriteJSON(newClearMessage(sid)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("telephony clear write: %w", err)
		}
		s.log.Info("Barge-in, cleared playback queue", zap.String("stream_sid", sid))

	case "FunctionCallRequest":
		// dispatch is serialized within the session, the next agent
		// message is not read until every response has been sent
		for _, resp := range s.dispatcher.Handle(ctx, data) {
			if err := s.agent.WriteJSON(resp); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("agent response write: %w", err)
			}
		}

	default:
		s.log.Debug("Agent event", zap.String("type", ev.Type))
	}

	return nil
}
