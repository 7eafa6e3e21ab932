package relay

import (
	"bytes"
	"testing"
)

func TestAccumulatorFraming(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []int // byte counts per Add call
		frameSize   int
		wantFrames  int
		wantPending int
	}{
		{name: "exact single frame", chunks: []int{3200}, frameSize: 3200, wantFrames: 1, wantPending: 0},
		{name: "split across chunks", chunks: []int{1000, 1000, 2000}, frameSize: 3200, wantFrames: 1, wantPending: 800},
		{name: "multiple frames one chunk", chunks: []int{7000}, frameSize: 3200, wantFrames: 2, wantPending: 600},
		{name: "never enough", chunks: []int{100, 100, 100}, frameSize: 3200, wantFrames: 0, wantPending: 300},
		{name: "empty input", chunks: []int{0}, frameSize: 3200, wantFrames: 0, wantPending: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := newAccumulator(tt.frameSize)

			var frames [][]byte
			next := byte(0)
			for _, n := range tt.chunks {
				chunk := make([]byte, n)
				for i := range chunk {
					chunk[i] = next
					next++
				}
				frames = append(frames, acc.Add(chunk)...)
			}

			if len(frames) != tt.wantFrames {
				t.Fatalf("got %d frames, want %d", len(frames), tt.wantFrames)
			}
			if acc.Pending() != tt.wantPending {
				t.Errorf("pending = %d, want %d", acc.Pending(), tt.wantPending)
			}

			// frames must carry the input bytes in original order
			expect := byte(0)
			for i, frame := range frames {
				if len(frame) != tt.frameSize {
					t.Fatalf("frame %d size = %d, want %d", i, len(frame), tt.frameSize)
				}
				for j, b := range frame {
					if b != expect {
						t.Fatalf("frame %d byte %d = %d, want %d", i, j, b, expect)
					}
					expect++
				}
			}
		})
	}
}

func TestAccumulatorRemainderCarriesOver(t *testing.T) {
	acc := newAccumulator(4)

	if frames := acc.Add([]byte{1, 2, 3}); len(frames) != 0 {
		t.Fatalf("premature frame: %v", frames)
	}
	frames := acc.Add([]byte{4, 5})
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{1, 2, 3, 4}) {
		t.Errorf("frame = %v, want [1 2 3 4]", frames[0])
	}
	if acc.Pending() != 1 {
		t.Errorf("pending = %d, want 1", acc.Pending())
	}
}
