package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"go.uber.org/zap"

	"github.com/oakwoodlegal/intake-agent/internal/api/handlers"
	"github.com/oakwoodlegal/intake-agent/internal/relay"
	"github.com/oakwoodlegal/intake-agent/pkg/calendar"
	"github.com/oakwoodlegal/intake-agent/pkg/calllog"
	"github.com/oakwoodlegal/intake-agent/pkg/email"
	"github.com/oakwoodlegal/intake-agent/pkg/env"
	apperrors "github.com/oakwoodlegal/intake-agent/pkg/errors"
	"github.com/oakwoodlegal/intake-agent/pkg/lawfirm"
	"github.com/oakwoodlegal/intake-agent/pkg/logger"
	"github.com/oakwoodlegal/intake-agent/pkg/middleware"
	"github.com/oakwoodlegal/intake-agent/pkg/mongo"
	"github.com/oakwoodlegal/intake-agent/pkg/otel"
	"github.com/oakwoodlegal/intake-agent/pkg/postgres"
)

// RelayServer wires the telephony listener, the voice-agent relay, and
// the business-function backends into one process
type RelayServer struct {
	cfg         *env.Config
	redisClient *redis.Client
	mongoClient *mongo.Client
	pgClient    *postgres.Client
	handler     *handlers.Handler
}

func main() {
	cfg, err := env.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.OTELEnabled {
		shutdown, err := otel.InitTracing("intake-agent", "1.0.0", cfg.OTELEndpoint)
		if err != nil {
			logger.Log.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
		} else {
			defer shutdown()
			logger.Log.Info("OpenTelemetry tracing enabled", zap.String("endpoint", cfg.OTELEndpoint))
		}
	}

	logger.Log.Info("Starting intake relay server",
		zap.String("env", cfg.AppEnv),
		zap.String("port", cfg.WSPort),
		zap.String("ws_path", cfg.WSPath),
	)

	// Redis backs the availability cache
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Log.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// MongoDB holds call lifecycle records
	mongoClient, err := mongo.NewClient(cfg.MongoURI, cfg.DBName)
	if err != nil {
		logger.Log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Log.Warn("Failed to disconnect MongoDB", zap.Error(err))
		}
	}()

	// Postgres holds leads and appointments; the relay still carries
	// calls without it, so a missing DATABASE_URL is not fatal
	var pgClient *postgres.Client
	if cfg.DatabaseURL != "" {
		pgClient, err = postgres.NewClient(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Log.Fatal("Failed to connect to Postgres", zap.Error(err))
		}
		defer pgClient.Close()
	} else {
		logger.Log.Warn("DATABASE_URL not set - lead capture functions disabled")
	}

	// Agent settings are opaque to the relay; they go to the agent
	// socket verbatim before any audio
	agentSettings, err := os.ReadFile(cfg.AgentConfigPath)
	if err != nil {
		logger.Log.Fatal("Failed to read agent settings",
			zap.String("path", cfg.AgentConfigPath),
			zap.Error(err))
	}

	var farewellAudio []byte
	if cfg.FarewellAudioPath != "" {
		farewellAudio, err = os.ReadFile(cfg.FarewellAudioPath)
		if err != nil {
			logger.Log.Warn("Failed to read farewell audio - shutdown farewell disabled",
				zap.String("path", cfg.FarewellAudioPath),
				zap.Error(err))
			farewellAudio = nil
		}
	}

	businessTZ, err := time.LoadLocation(cfg.BusinessTZ)
	if err != nil {
		logger.Log.Fatal("Invalid BUSINESS_TZ", zap.String("tz", cfg.BusinessTZ), zap.Error(err))
	}

	emailSender := email.NewSender(email.Config{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		User:       cfg.SMTPUser,
		Password:   cfg.SMTPPass,
		SenderName: cfg.SenderName,
	}, logger.Log)
	if !emailSender.Configured() {
		logger.Log.Warn("SMTP credentials not set - email functions disabled")
	}

	var calendarService *calendar.Service
	if cfg.GoogleServiceAccountJSON != "" && cfg.GoogleCalendarID != "" {
		googleClient, err := calendar.NewGoogleClient(
			cfg.GoogleServiceAccountJSON, redisClient, cfg.SlotCacheTTL, logger.Log)
		if err != nil {
			logger.Log.Fatal("Failed to initialize Google Calendar client", zap.Error(err))
		}
		calendarService = calendar.NewService(googleClient, businessTZ, logger.Log)
	} else {
		logger.Log.Warn("Google Calendar not configured - scheduling functions disabled")
	}

	functions := lawfirm.New(lawfirm.Deps{
		DB:         pgClient,
		Email:      emailSender,
		Calendar:   calendarService,
		CalendarID: cfg.GoogleCalendarID,
		BusinessTZ: businessTZ,
		Log:        logger.Log,
	})

	registry := relay.Registry{}
	for name, handler := range functions.Registry() {
		registry[name] = relay.FunctionHandler(handler)
	}

	recorder := calllog.NewRecorder(mongoClient, logger.Log)

	sessionCfg := relay.Config{
		AgentURL:      cfg.AgentWSSURL,
		AgentAPIKey:   cfg.DeepgramAPIKey,
		AgentSettings: agentSettings,
		FrameSize:     cfg.FrameSize,
		QueueCapacity: cfg.QueueCapacity,
		PingInterval:  cfg.PingInterval,
		PingTimeout:   cfg.PingTimeout,
		FarewellAudio: farewellAudio,
	}

	apiHandler := handlers.NewHandler(cfg, redisClient, mongoClient, pgClient, sessionCfg, registry, recorder)

	server := &RelayServer{
		cfg:         cfg,
		redisClient: redisClient,
		mongoClient: mongoClient,
		pgClient:    pgClient,
		handler:     apiHandler,
	}

	router := server.setupRouter()

	// Active calls watch this context; cancelling it drains them with
	// the farewell clip before the listener closes
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:        net.JoinHostPort(cfg.WSHost, cfg.WSPort),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(net.Listener) context.Context { return rootCtx },
	}

	go func() {
		logger.Log.Info("Relay server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Shutdown returns without waiting for hijacked websockets; active
	// calls are still playing the farewell clip at this point
	if !apiHandler.DrainSessions(30 * time.Second) {
		logger.Log.Warn("Timed out waiting for active calls to drain")
	}

	logger.Log.Info("Server exited")
}

func (s *RelayServer) setupRouter() *gin.Engine {
	if s.cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.TraceMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(1 << 20)) // 1 MB limit

	if s.cfg.OTELEnabled {
		router.Use(otel.GinMiddleware())
	}

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
		)
	}))

	corsConfig := cors.DefaultConfig()
	if s.cfg.CORSAllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{s.cfg.CORSAllowedOrigins}
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.GET("/", s.handler.Root)
	router.GET("/health", s.handler.HealthCheck)
	router.GET("/metrics", s.handler.GetMetrics)
	router.GET("/metrics/prometheus", s.handler.GetPrometheusMetrics)

	api := router.Group("/api")
	{
		api.GET("/calls", s.handler.ListCalls)
	}

	// Telephony media socket
	router.GET(s.cfg.WSPath, s.handler.MediaStream)

	router.NoRoute(func(c *gin.Context) {
		apperrors.NotFound(c, "no such route")
	})

	return router
}
