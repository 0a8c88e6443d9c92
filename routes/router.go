package routes

import (
	"fmt"
	"net/http"
	"time"

	"yesno-backend/auth"
	"yesno-backend/config"
	"yesno-backend/handlers"
	"yesno-backend/logging"
	"yesno-backend/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server HTTP服务器的封装
type Server struct {
	*http.Server
}

// SetupRouter 设置和配置Gin路由
func SetupRouter(cfg config.ServerConfig, h *handlers.Handler, authn *auth.Authenticator, limit *middleware.RateLimit) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		// 健康检查
		api.GET("/health", h.HealthCheck)
		api.GET("/status", h.SystemStatus)
		api.POST("/invite/check", h.CheckInvite)

		// 限流放在认证之后，按用户计数
		optional := api.Group("", authn.Require(auth.Optional), limit.Handler())
		{
			optional.GET("/surveys/get", h.GetSurvey)
			optional.GET("/surveys/results", h.SurveyResults)
			optional.GET("/surveys/public", h.ListPublic)
			optional.GET("/surveys/live", h.LiveResults)
			optional.POST("/invite/vote", h.SubmitVote)
		}

		user := api.Group("", authn.Require(auth.User), limit.Handler())
		{
			user.POST("/surveys/create", h.CreateSurvey)
			user.POST("/surveys/rename", h.RenameSurvey)
			user.POST("/surveys/delete", h.DeleteSurvey)
			user.POST("/surveys/soft-delete", h.SoftDeleteSurvey)
			user.POST("/surveys/undo-delete", h.UndoDeleteSurvey)
			user.POST("/surveys/toggle-like", h.ToggleLike)
			user.GET("/surveys/is-liked", h.IsLiked)
			user.GET("/surveys/export", h.ExportSurvey)
			user.POST("/surveys/add-question", h.AddQuestion)
			user.POST("/surveys/set-lock", h.SetLock)
			user.GET("/surveys/mine", h.ListMine)
			user.GET("/surveys/favorites", h.ListFavorites)

			user.POST("/questions/delete", h.DeleteQuestion)
			user.POST("/questions/undo-delete", h.UndoDeleteQuestion)

			// 所有者也可修改可见性，权限在服务层检查
			user.POST("/admin/set-visibility", h.SetVisibility)
		}

		admin := api.Group("/admin", authn.Require(auth.Admin), limit.Handler())
		{
			admin.GET("/metrics", h.AdminMetrics)
			admin.GET("/rate-limit", h.RateLimitStats)
		}
	}

	return router
}

// StartServer 启动HTTP服务器
func StartServer(cfg config.ServerConfig, router *gin.Engine) *Server {
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &Server{
		&http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	go func() {
		logging.Info().Str("addr", addr).Msg("服务器启动")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	return srv
}
