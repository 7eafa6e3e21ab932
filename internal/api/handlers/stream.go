package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/internal/relay"
	"github.com/oakwoodlegal/intake-agent/pkg/logger"
)

// createStreamUpgrader builds the upgrader for the telephony media
// socket. Telephony providers connect server-to-server without an
// Origin header, so origin checks stay permissive.
func createStreamUpgrader(appEnv string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if appEnv == "development" {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin != "" {
				logger.Log.Warn("Media stream connection carries unexpected origin",
					zap.String("origin", origin),
					zap.String("remote_addr", r.RemoteAddr))
			}
			return true
		},
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

// MediaStream accepts the telephony websocket and runs a relay session
// on it until the call ends. The HTTP handler blocks for the lifetime
// of the call.
func (h *Handler) MediaStream(c *gin.Context) {
	upgrader := createStreamUpgrader(h.cfg.AppEnv)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade media stream",
			zap.Error(err),
			zap.String("remote_addr", c.Request.RemoteAddr))
		return
	}

	h.logger.Info("Media stream connected",
		zap.String("remote_addr", c.Request.RemoteAddr))

	h.sessions.Add(1)
	defer h.sessions.Done()

	var recorder relay.Recorder
	if h.recorder != nil {
		recorder = h.recorder
	}
	session := relay.NewSession(h.sessionCfg, relay.NewConn(ws), h.registry, recorder, h.logger)

	if err := session.Run(c.Request.Context()); err != nil {
		h.logger.Error("Relay session failed", zap.Error(err))
	}
}
