// Command stream-sim plays a scripted telephony media stream against a
// running relay server: start event, mu-law audio, then stop. Useful
// for verifying the relay without placing a real phone call.
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oakwoodlegal/intake-agent/pkg/audio"
)

const sampleRate = 8000

func main() {
	wsURL := flag.String("url", "ws://localhost:5000/twilio", "relay websocket URL")
	seconds := flag.Int("seconds", 2, "seconds of audio to stream")
	toneHz := flag.Float64("tone", 440, "sine tone frequency in Hz, 0 for silence")
	listen := flag.Duration("listen", 10*time.Second, "how long to wait for agent audio after streaming")
	flag.Parse()

	fmt.Printf("Connecting to %s\n", *wsURL)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(*wsURL, nil)
	if err != nil {
		if resp != nil {
			log.Fatalf("connection failed: %v (status %d)", err, resp.StatusCode)
		}
		log.Fatalf("connection failed: %v", err)
	}
	defer conn.Close()

	streamSID := fmt.Sprintf("SIM%d", time.Now().Unix())
	start := map[string]interface{}{
		"event": "start",
		"start": map[string]interface{}{
			"streamSid": streamSID,
		},
	}
	if err := conn.WriteJSON(start); err != nil {
		log.Fatalf("failed to send start event: %v", err)
	}
	fmt.Printf("Stream started: %s\n", streamSID)

	// 20ms of mu-law per media event, the cadence Twilio uses
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	frames := *seconds * 50
	for i := 0; i < frames; i++ {
		<-ticker.C
		media := map[string]interface{}{
			"event": "media",
			"media": map[string]interface{}{
				"track":   "inbound",
				"payload": base64.StdEncoding.EncodeToString(toneFrame(*toneHz, i)),
			},
		}
		if err := conn.WriteJSON(media); err != nil {
			log.Fatalf("failed to send media event: %v", err)
		}
	}
	fmt.Printf("Streamed %d media events (%ds of audio)\n", frames, *seconds)

	// Drain whatever the agent says back before hanging up
	fmt.Printf("Listening for agent audio for %s...\n", *listen)
	deadline := time.Now().Add(*listen)
	received := 0
	pcmBytes := 0
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var event map[string]interface{}
		if err := conn.ReadJSON(&event); err != nil {
			break
		}
		received++
		kind, _ := event["event"].(string)
		if kind != "media" {
			fmt.Printf("received %s event: %+v\n", kind, event)
			continue
		}
		if media, ok := event["media"].(map[string]interface{}); ok {
			if payload, _ := media["payload"].(string); payload != "" {
				if raw, err := base64.StdEncoding.DecodeString(payload); err == nil {
					pcmBytes += len(audio.DecodeMuLaw(raw))
				}
			}
		}
	}
	fmt.Printf("Received %d events from relay (%d bytes of decoded PCM)\n", received, pcmBytes)

	stop := map[string]interface{}{"event": "stop"}
	if err := conn.WriteJSON(stop); err != nil {
		log.Printf("failed to send stop event: %v", err)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	fmt.Println("Call ended")
}

// toneFrame returns 20ms of mu-law audio for frame number n, phase
// continuous across consecutive frames.
func toneFrame(hz float64, n int) []byte {
	const samples = sampleRate / 50

	if hz <= 0 {
		frame := make([]byte, samples)
		for i := range frame {
			frame[i] = audio.MuLawSilence
		}
		return frame
	}

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		t := float64(n*samples+i) / sampleRate
		sample := int16(12000 * math.Sin(2*math.Pi*hz*t))
		pcm[i*2] = byte(sample)
		pcm[i*2+1] = byte(sample >> 8)
	}
	return audio.EncodeMuLaw(pcm)
}
