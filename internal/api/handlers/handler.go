package handlers

import (
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/internal/relay"
	"github.com/oakwoodlegal/intake-agent/pkg/calllog"
	"github.com/oakwoodlegal/intake-agent/pkg/env"
	"github.com/oakwoodlegal/intake-agent/pkg/logger"
	"github.com/oakwoodlegal/intake-agent/pkg/mongo"
	"github.com/oakwoodlegal/intake-agent/pkg/postgres"
)

type Handler struct {
	cfg         *env.Config
	redisClient *redis.Client
	mongoClient *mongo.Client
	pgClient    *postgres.Client
	sessionCfg  relay.Config
	registry    relay.Registry
	recorder    *calllog.Recorder
	logger      *zap.Logger

	// sessions counts live media streams. http.Server.Shutdown does
	// not track hijacked connections, so draining them is on us.
	sessions sync.WaitGroup
}

// DrainSessions blocks until every active relay session has finished
// or the timeout passes. It reports whether the drain completed.
func (h *Handler) DrainSessions(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func NewHandler(
	cfg *env.Config,
	redisClient *redis.Client,
	mongoClient *mongo.Client,
	pgClient *postgres.Client,
	sessionCfg relay.Config,
	registry relay.Registry,
	recorder *calllog.Recorder,
) *Handler {
	return &Handler{
		cfg:         cfg,
		redisClient: redisClient,
		mongoClient: mongoClient,
		pgClient:    pgClient,
		sessionCfg:  sessionCfg,
		registry:    registry,
		recorder:    recorder,
		logger:      logger.Log,
	}
}
