package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yesno-backend/auth"
	"yesno-backend/cache"
	"yesno-backend/config"
	"yesno-backend/database"
	"yesno-backend/handlers"
	"yesno-backend/logging"
	"yesno-backend/middleware"
	"yesno-backend/mq"
	"yesno-backend/repository"
	"yesno-backend/routes"
	"yesno-backend/service"
	"yesno-backend/websocket"
)

// version 应用版本，可通过 -ldflags 注入
var version = "0.1.0"

const limiterCleanupInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("加载配置失败")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: !cfg.IsProduction(),
	})

	db, err := database.Open(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("无法初始化数据库")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis 可选，未启用时各组件使用进程内实现
	redisClient, err := cache.NewClient(ctx, cfg.Redis)
	if err != nil {
		logging.Fatal().Err(err).Msg("Redis初始化失败")
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)

	bus := mq.NewBus(redisClient)
	bus.Subscribe(hub.HandleEvent)
	if err := bus.Start(ctx); err != nil {
		logging.Fatal().Err(err).Msg("事件总线启动失败")
	}

	store := repository.New(db)
	opts := service.Options{
		UndoWindow:  cfg.SoftDelete.UndoWindow,
		MultiChoice: cfg.Features.MultiChoice,
	}
	clock := service.SystemClock

	if cfg.SoftDelete.PurgeEnabled {
		purger := service.NewPurger(store, cache.NewLocker(redisClient), clock,
			cfg.SoftDelete.PurgeAfter, cfg.SoftDelete.PurgeInterval)
		go purger.Run(ctx)
	}

	var limiter *cache.UserRateLimiter
	if cfg.RateLimit.Enabled {
		limiter = cache.NewUserRateLimiter(redisClient, "api",
			cfg.RateLimit.GlobalRate, cfg.RateLimit.GlobalBurst,
			cfg.RateLimit.UserRate, cfg.RateLimit.UserBurst)
		logging.Info().
			Int("global_rate", cfg.RateLimit.GlobalRate).
			Int("user_rate", cfg.RateLimit.UserRate).
			Bool("redis", redisClient != nil).
			Msg("限流器已初始化")
	}
	rateLimit := middleware.NewRateLimit(limiter)
	go rateLimit.RunCleanup(ctx, limiterCleanupInterval)

	h := handlers.New(handlers.Deps{
		Surveys:   service.NewSurveyService(store, clock, opts),
		Questions: service.NewQuestionService(store, clock, opts),
		Votes:     service.NewVoteService(store, opts, bus),
		Admin:     service.NewAdminService(store),
		Hub:       hub,
		RateLimit: rateLimit,
		DB:        db,
		Redis:     redisClient,
		Version:   version,
	})
	authn := auth.NewAuthenticator(cfg.Auth, store)

	router := routes.SetupRouter(cfg.Server, h, authn, rateLimit)
	srv := routes.StartServer(cfg.Server, router)

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("关闭服务器...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// 不接受新请求并等待现有请求完成
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logging.Error().Err(err).Msg("服务器关闭出错")
	}

	cancel()
	bus.Stop()
	database.Close(db)
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logging.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}

	logging.Info().Msg("服务器优雅关闭")
}
