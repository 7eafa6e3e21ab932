package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const inboundTrack = "inbound"

// accumulator reassembles inbound audio into fixed-size frames. Bytes
// arrive in arbitrary chunk sizes; frames leave at exactly frameSize,
// with any remainder retained for the next chunk.
type accumulator struct {
	frameSize int
	buf       []byte
}

func newAccumulator(frameSize int) *accumulator {
	return &accumulator{frameSize: frameSize}
}

func (a *accumulator) Add(b []byte) [][]byte {
	a.buf = append(a.buf, b...)

	var frames [][]byte
	for len(a.buf) >= a.frameSize {
		frame := make([]byte, a.frameSize)
		copy(frame, a.buf[:a.frameSize])
		a.buf = a.buf[a.frameSize:]
		frames = append(frames, frame)
	}
	return frames
}

// Pending returns the number of buffered bytes short of a full frame
func (a *accumulator) Pending() int {
	return len(a.buf)
}

// ingest consumes the telephony socket until a stop event, the socket
// closing, or cancellation. It captures the StreamToken from the first
// start event and feeds inbound audio frames to the outbound queue.
func (s *Session) ingest(ctx context.Context) error {
	acc := newAccumulator(s.cfg.FrameSize)

	for {
		_, data, err := s.twilio.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("telephony read: %w", err)
		}

		var ev twilioEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.log.Warn("Malformed telephony event, skipping", zap.Error(err))
			continue
		}

		switch ev.Event {
		case "start":
			if ev.Start != nil && ev.Start.StreamSID != "" {
				s.publishStreamSID(ev.Start.StreamSID)
			}

		case "media":
			if ev.Media == nil || ev.Media.Track != inboundTrack {
				continue
			}
			audio, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
			if err != nil {
				s.log.Warn("Undecodable media payload, skipping", zap.Error(err))
				continue
			}
			for _, frame := range acc.Add(audio) {
				select {
				case s.frames <- frame:
				case <-ctx.Done():
					return ctx.Err()
				}
			}

		case "stop":
			s.log.Info("Stream stopped by telephony side",
				zap.String("stream_sid", s.streamSID()),
			)
			// a non-nil return makes the errgroup cancel the sibling
			// tasks; Run maps it back to a clean exit
			return errStopRequested
		}
	}
}
