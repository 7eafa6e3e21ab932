package relay

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
)

// send drains the frame queue in FIFO order onto the agent socket
func (s *Session) send(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-s.frames:
			if err := s.agent.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("agent write: %w", err)
			}
			metrics.FrameToAgent(len(frame))
		}
	}
}
