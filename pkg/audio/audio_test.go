package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestMuLawRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 8000, -8000}

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	decoded := DecodeMuLaw(EncodeMuLaw(pcm))
	if len(decoded) != len(pcm) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(pcm))
	}

	for i, want := range samples {
		got := int16(binary.LittleEndian.Uint16(decoded[i*2:]))
		diff := int(got) - int(want)
		if diff < 0 {
			diff = -diff
		}
		// mu-law quantization error grows with amplitude
		tolerance := 40 + int(want)/16
		if tolerance < 0 {
			tolerance = 40 - int(want)/16
		}
		if diff > tolerance {
			t.Errorf("sample %d: got %d, want %d (tolerance %d)", i, got, want, tolerance)
		}
	}
}

func TestDecodeMuLawEmpty(t *testing.T) {
	if got := DecodeMuLaw(nil); got != nil {
		t.Errorf("DecodeMuLaw(nil) = %v, want nil", got)
	}
}

func buildWAV(samples []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(7)) // mu-law
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(8000))
	binary.Write(&buf, binary.LittleEndian, uint32(8000))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(8))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)
	return buf.Bytes()
}

func TestStripWAVHeader(t *testing.T) {
	samples := bytes.Repeat([]byte{0x7F, 0xFF}, 100)

	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{
			name:  "canonical wav",
			input: buildWAV(samples),
			want:  samples,
		},
		{
			name:  "raw mulaw passthrough",
			input: samples,
			want:  samples,
		},
		{
			name:  "empty",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripWAVHeader(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("StripWAVHeader() = %d bytes, want %d bytes", len(got), len(tt.want))
			}
		})
	}
}

func TestStripWAVHeaderExtraChunk(t *testing.T) {
	samples := []byte{1, 2, 3, 4}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteString("WAVE")
	buf.WriteString("LIST")
	binary.Write(&buf, binary.LittleEndian, uint32(4))
	buf.WriteString("INFO")
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)

	got := StripWAVHeader(buf.Bytes())
	if !bytes.Equal(got, samples) {
		t.Errorf("StripWAVHeader() = %v, want %v", got, samples)
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		dataLen   int
		size      int
		wantLens  []int
	}{
		{name: "exact frames", dataLen: 6400, size: 3200, wantLens: []int{3200, 3200}},
		{name: "short tail", dataLen: 4000, size: 3200, wantLens: []int{3200, 800}},
		{name: "single short", dataLen: 100, size: 3200, wantLens: []int{100}},
		{name: "empty", dataLen: 0, size: 3200, wantLens: nil},
		{name: "zero size", dataLen: 100, size: 0, wantLens: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := Chunk(make([]byte, tt.dataLen), tt.size)
			if len(frames) != len(tt.wantLens) {
				t.Fatalf("got %d frames, want %d", len(frames), len(tt.wantLens))
			}
			for i, want := range tt.wantLens {
				if len(frames[i]) != want {
					t.Errorf("frame %d length = %d, want %d", i, len(frames[i]), want)
				}
			}
		})
	}
}

func TestFrameDuration(t *testing.T) {
	if got := FrameDuration(3200); got != 400*time.Millisecond {
		t.Errorf("FrameDuration(3200) = %v, want 400ms", got)
	}
	if got := FrameDuration(160); got != 20*time.Millisecond {
		t.Errorf("FrameDuration(160) = %v, want 20ms", got)
	}
}
