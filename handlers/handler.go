package handlers

import (
	"time"

	"yesno-backend/middleware"
	"yesno-backend/service"
	"yesno-backend/websocket"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps 处理器依赖
type Deps struct {
	Surveys   *service.SurveyService
	Questions *service.QuestionService
	Votes     *service.VoteService
	Admin     *service.AdminService
	Hub       *websocket.Hub
	RateLimit *middleware.RateLimit

	DB    *gorm.DB
	Redis *redis.Client // 可为 nil

	Version string
}

// Handler HTTP 处理器
type Handler struct {
	surveys   *service.SurveyService
	questions *service.QuestionService
	votes     *service.VoteService
	admin     *service.AdminService
	hub       *websocket.Hub
	rateLimit *middleware.RateLimit

	db    *gorm.DB
	redis *redis.Client

	version   string
	startTime time.Time
	validate  *validator.Validate
}

// New 创建处理器
func New(d Deps) *Handler {
	version := d.Version
	if version == "" {
		version = "dev"
	}
	if d.RateLimit == nil {
		d.RateLimit = middleware.NewRateLimit(nil)
	}
	return &Handler{
		surveys:   d.Surveys,
		questions: d.Questions,
		votes:     d.Votes,
		admin:     d.Admin,
		hub:       d.Hub,
		rateLimit: d.RateLimit,
		db:        d.DB,
		redis:     d.Redis,
		version:   version,
		startTime: time.Now(),
		validate:  newValidator(),
	}
}
