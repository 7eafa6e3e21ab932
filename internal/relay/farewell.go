package relay

import (
	"time"

	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/pkg/audio"
	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
)

const farewellMark = "farewell_done"

// playFarewell streams the configured goodbye clip to the caller in
// frame-size chunks at the audio's real-time rate, then sends a mark so
// the telephony side knows playback finished. Runs during DRAINING,
// after the relay tasks have stopped, so it has the telephony write
// half to itself.
func (s *Session) playFarewell(sid string) {
	samples := audio.StripWAVHeader(s.cfg.FarewellAudio)
	if len(samples) == 0 {
		return
	}

	frames := audio.Chunk(samples, s.cfg.FrameSize)
	pace := audio.FrameDuration(s.cfg.FrameSize)

	s.log.Info("Playing farewell",
		zap.String("stream_sid", sid),
		zap.Int("frames", len(frames)),
	)

	ticker := time.NewTicker(pace)
	defer ticker.Stop()

	for _, frame := range frames {
		if len(frame) < s.cfg.FrameSize {
			frame = padFrame(frame, s.cfg.FrameSize)
		}
		if err := s.twilio.WriteJSON(newMediaMessage(sid, frame)); err != nil {
			s.log.Warn("Farewell playout aborted", zap.Error(err))
			return
		}
		<-ticker.C
	}

	if err := s.twilio.WriteJSON(newMarkMessage(sid, farewellMark)); err != nil {
		s.log.Warn("Farewell mark not delivered", zap.Error(err))
		return
	}
	metrics.FarewellPlayed()
}

// padFrame fills a short tail chunk with mu-law silence
func padFrame(frame []byte, size int) []byte {
	padded := make([]byte, size)
	copy(padded, frame)
	for i := len(frame); i < size; i++ {
		padded[i] = audio.MuLawSilence
	}
	return padded
}
