package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

const sampleRate = 8000

// StripWAVHeader returns the raw sample data from a WAV file,
// locating the data chunk in the RIFF container. Non-RIFF input
// is returned unchanged.
func StripWAVHeader(data []byte) []byte {
	if len(data) < 12 || !bytes.Equal(data[:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return data
	}

	offset := 12
	for offset+8 <= len(data) {
		chunkID := data[offset : offset+4]
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		if bytes.Equal(chunkID, []byte("data")) {
			end := body + chunkSize
			if end > len(data) {
				end = len(data)
			}
			return data[body:end]
		}

		// Chunks are word-aligned
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	// No data chunk found, assume a canonical 44-byte header
	if len(data) > 44 {
		return data[44:]
	}
	return nil
}

// Chunk splits audio data into frames of the given size.
// The final frame may be shorter than size.
func Chunk(data []byte, size int) [][]byte {
	if size <= 0 || len(data) == 0 {
		return nil
	}

	var frames [][]byte
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		frames = append(frames, data[i:end])
	}
	return frames
}

// FrameDuration returns the wall-clock duration of a mu-law frame at 8kHz
func FrameDuration(frameSize int) time.Duration {
	return time.Duration(frameSize) * time.Second / sampleRate
}
