package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/oakwoodlegal/intake-agent/pkg/metrics"
	"github.com/oakwoodlegal/intake-agent/pkg/otel"
)

// State is the session lifecycle phase
type State int32

const (
	StateConnecting State = iota
	StateActive
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	default:
		return "closed"
	}
}

// Config holds per-session relay settings
type Config struct {
	AgentURL      string
	AgentAPIKey   string
	AgentSettings []byte
	FrameSize     int
	QueueCapacity int
	PingInterval  time.Duration
	PingTimeout   time.Duration
	FarewellAudio []byte
}

// errStopRequested is returned by ingest on a telephony stop event so
// the errgroup tears the remaining tasks down immediately. It is an
// ordinary session ending, not a failure.
var errStopRequested = errors.New("stop requested")

// Recorder receives call lifecycle notifications for persistence
type Recorder interface {
	CallStarted(ctx context.Context, streamSID string)
	CallEnded(ctx context.Context, streamSID string, status string)
}

type noopRecorder struct{}

func (noopRecorder) CallStarted(context.Context, string)       {}
func (noopRecorder) CallEnded(context.Context, string, string) {}

// Session owns one call: the telephony socket it was created with, the
// agent socket it dials, and the tasks that relay between them.
type Session struct {
	cfg        Config
	id         string
	log        *zap.Logger
	dispatcher *Dispatcher
	recorder   Recorder

	twilio *Conn
	agent  *Conn
	frames chan []byte

	sidOnce sync.Once
	sidCh   chan string
	sidMu   sync.Mutex
	sid     string

	stateMu sync.Mutex
	state   State
}

func NewSession(cfg Config, twilio *Conn, registry Registry, recorder Recorder, log *zap.Logger) *Session {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 128
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 3200
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 20 * time.Second
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}

	id := uuid.NewString()
	log = log.With(zap.String("session_id", id))

	return &Session{
		cfg:        cfg,
		id:         id,
		log:        log,
		dispatcher: NewDispatcher(registry, log),
		recorder:   recorder,
		twilio:     twilio,
		frames:     make(chan []byte, cfg.QueueCapacity),
		sidCh:      make(chan string, 1),
	}
}

// Run drives the session to completion. The passed context carries
// process shutdown: its cancellation tears the session down and, if a
// StreamToken was captured, triggers the farewell playout.
func (s *Session) Run(ctx context.Context) error {
	ctx, span := otel.StartSessionSpan(ctx, s.id)
	defer span.End()

	metrics.SessionStarted()
	defer metrics.SessionEnded()

	s.setState(StateConnecting)

	agent, err := dialAgent(ctx, s.cfg.AgentURL, s.cfg.AgentAPIKey)
	if err != nil {
		s.setState(StateClosed)
		if isExpectedClose(err) {
			s.log.Info("Session ended during agent dial", zap.Error(err))
			return nil
		}
		return err
	}
	s.agent = agent
	defer s.agent.Close()

	if len(s.cfg.AgentSettings) > 0 {
		if err := s.agent.WriteMessage(websocket.TextMessage, s.cfg.AgentSettings); err != nil {
			s.setState(StateClosed)
			if isExpectedClose(err) {
				s.log.Info("Session ended during agent setup", zap.Error(err))
				return nil
			}
			return fmt.Errorf("send agent settings: %w", err)
		}
	}

	s.setState(StateActive)

	g, gctx := errgroup.WithContext(ctx)

	// Unblock blocked reads on cancellation. The agent socket is closed
	// outright; the telephony socket only gets an expired read deadline
	// so its write half stays usable for the farewell playout.
	stopAgent := context.AfterFunc(gctx, func() { s.agent.Close() })
	defer stopAgent()
	stopTwilio := context.AfterFunc(gctx, func() { s.twilio.SetReadDeadline(time.Now()) })
	defer stopTwilio()

	g.Go(func() error { return s.ingest(gctx) })
	g.Go(func() error { return s.send(gctx) })
	g.Go(func() error { return s.receive(gctx) })
	g.Go(func() error { return keepAlive(gctx, s.twilio, s.cfg.PingInterval, s.cfg.PingTimeout) })
	g.Go(func() error { return keepAlive(gctx, s.agent, s.cfg.PingInterval, s.cfg.PingTimeout) })

	runErr := g.Wait()

	s.setState(StateDraining)

	status := "completed"
	if runErr != nil && !isExpectedClose(runErr) {
		status = "failed"
	}

	if sid := s.streamSID(); sid != "" {
		if ctx.Err() != nil && len(s.cfg.FarewellAudio) > 0 {
			s.playFarewell(sid)
			status = "shutdown"
		}
		s.recorder.CallEnded(context.WithoutCancel(ctx), sid, status)
	}

	s.setState(StateClosed)

	if runErr != nil && !isExpectedClose(runErr) {
		return runErr
	}
	s.log.Info("Session closed",
		zap.String("stream_sid", s.streamSID()),
		zap.String("status", status),
	)
	return nil
}

// State returns the current lifecycle phase
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.stateMu.Lock()
	prev := s.state
	s.state = next
	s.stateMu.Unlock()
	s.log.Debug("Session state change",
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}

// publishStreamSID hands the StreamToken to the receiver exactly once.
// Later start events in the same session are ignored.
func (s *Session) publishStreamSID(sid string) {
	s.sidOnce.Do(func() {
		s.sidMu.Lock()
		s.sid = sid
		s.sidMu.Unlock()
		s.sidCh <- sid

		s.log.Info("Stream started", zap.String("stream_sid", sid))
		go s.recorder.CallStarted(context.Background(), sid)
	})
}

func (s *Session) streamSID() string {
	s.sidMu.Lock()
	defer s.sidMu.Unlock()
	return s.sid
}

func dialAgent(ctx context.Context, url, apiKey string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"token", apiKey},
	}

	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial agent (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial agent: %w", err)
	}
	return NewConn(ws), nil
}

// isExpectedClose reports whether err is an ordinary way for a session
// to end: either side hanging up, ping timeout, or cancellation.
func isExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, errStopRequested) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// read errors arrive wrapped, so unwrap to the close frame instead
	// of matching on the error value directly
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived,
			websocket.CloseAbnormalClosure:
			return true
		}
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
