package main

import (
	"context"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/imtaco/watch-party/gateway"
	"github.com/imtaco/watch-party/gateway/transport"
	"github.com/imtaco/watch-party/internal/config"
	"github.com/imtaco/watch-party/internal/httputil"
	wsrpc "github.com/imtaco/watch-party/internal/jsonrpc/websocket"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/otel"
	"github.com/imtaco/watch-party/internal/redis"
	"github.com/imtaco/watch-party/internal/workflow"
	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/party/activity"
	"github.com/imtaco/watch-party/party/registry"
	"github.com/imtaco/watch-party/party/room"
)

type Config struct {
	App      config.App      `mapstructure:"app"`
	HTTP     httputil.Config `mapstructure:"http"`
	Redis    redis.Config    `mapstructure:"redis"`
	Otel     otel.Config     `mapstructure:"otel"`
	Gateway  gateway.Config  `mapstructure:"gateway"`
	ICE      party.ICEConfig `mapstructure:"ice"`
	Activity activity.Config `mapstructure:"activity"`
}

func loadConfig() (*Config, error) {
	return config.Load(&Config{}, func(v *viper.Viper) {
		config.Setup(v, "app")
		httputil.Setup(v, "http")
		redis.Setup(v, "redis")
		otel.Setup(v, "otel")
		gateway.Setup(v, "gateway")
		transport.Setup(v, "ice")
		activity.Setup(v, "activity")

		v.SetDefault("http.addr", "0.0.0.0:3001")
	})
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration", err)
	}

	logger, err := log.NewLogger(cfg.App.LogConfigFile)
	if err != nil {
		log.Fatal("Failed to create logger", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	otelShutdown, err := otel.Init(ctx, &cfg.Otel, logger)
	if err != nil {
		logger.Fatal("Failed to initialize OTEL provider", log.Error(err))
	}

	logger.Info("Starting watch party server...")

	clock := clockwork.NewRealClock()

	sink, redisClient, stopFeed := startActivityFeed(ctx, cfg, clock, logger.Module("Activity"))

	manager := room.NewManager(
		registry.NewMemory(),
		sink,
		clock,
		cfg.Gateway.SystemMessages,
		logger.Module("Rooms"),
	)
	partyServer := gateway.NewServer(
		&cfg.Gateway,
		manager,
		gateway.NewDirectory(logger.Module("Conns")),
		clock,
		logger.Module("Gateway"),
	)
	wsRPCServer := wsrpc.NewServer(
		partyServer.Hooks(),
		cfg.Gateway.AllowedOrigins,
		logger.Module("WSRPC"),
		cfg.Gateway.WSOptions()...,
	)
	partyServer.Register(wsRPCServer)

	router := transport.NewRouter(
		manager,
		&cfg.ICE,
		wsRPCServer.HandleWebSocket,
		cfg.Gateway.AllowedOrigins,
		clock,
		logger.Module("HTTP"),
	)
	httpServer := httputil.NewServer(&cfg.HTTP, router.Handler())

	go func() {
		logger.Info("Starting HTTP server", log.String("addr", cfg.HTTP.Addr))
		if err := httpServer.Listen(); err != nil {
			logger.Fatal("Failed to start HTTP server", log.Error(err))
		}
	}()

	cleanup := func(ctx context.Context) {
		_ = httpServer.Shutdown(ctx)

		stopFeed(ctx)

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Error("Error closing Redis client", log.Error(err))
			}
		}
		if err := otelShutdown(ctx); err != nil {
			logger.Error("Failed to shutdown OTEL", log.Error(err))
		}
	}
	workflow.WaitGracefulShutdown(ctx, logger.Module("CleanUp"), cleanup, cfg.App.ShutdownTimeout)
}

// startActivityFeed wires the redis activity stream when enabled. The feed is
// the only redis consumer; without it partyd runs standalone with a no-op sink.
func startActivityFeed(
	ctx context.Context,
	cfg *Config,
	clock clockwork.Clock,
	logger *log.Logger,
) (party.ActivitySink, *goredis.Client, func(context.Context)) {
	if !cfg.Activity.Enabled {
		logger.Info("Activity feed disabled")
		return party.NopSink(), nil, func(context.Context) {}
	}

	client := redis.NewClient(&cfg.Redis)
	if err := redis.Ping(ctx, client); err != nil {
		logger.Fatal("Failed to connect to Redis", log.Error(err))
	}

	publisher, err := activity.NewPublisher(&cfg.Activity, client, clock, logger)
	if err != nil {
		logger.Fatal("Failed to create activity publisher", log.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := publisher.Run(runCtx); err != nil {
			logger.Error("Activity publisher stopped", log.Error(err))
		}
	}()

	stop := func(ctx context.Context) {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn("Activity feed did not drain in time")
		}
	}
	return publisher, client, stop
}
