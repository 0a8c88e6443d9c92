package service

import (
	"context"
	"time"

	"yesno-backend/repository"
)

// RecentLimit 指标中最近问卷条数
const RecentLimit = 10

// RecentSurvey 最近创建的问卷摘要
type RecentSurvey struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// PlatformMetrics 平台指标
type PlatformMetrics struct {
	SurveysPublic      int64          `json:"surveys_public"`
	SurveysPrivate     int64          `json:"surveys_private"`
	TotalSurveyVotes   int64          `json:"total_survey_votes"`
	TotalQuestionVotes int64          `json:"total_question_votes"`
	Users              int64          `json:"users"`
	Recent             []RecentSurvey `json:"recent"`
}

// AdminService 管理员统计
type AdminService struct {
	store *repository.Store
}

// NewAdminService 创建管理服务
func NewAdminService(store *repository.Store) *AdminService {
	return &AdminService{store: store}
}

// Metrics 平台汇总指标，调用方权限由路由中间件保证
func (s *AdminService) Metrics(ctx context.Context) (*PlatformMetrics, error) {
	stats, err := s.store.Stats(ctx, RecentLimit)
	if err != nil {
		return nil, Upstream(err)
	}
	m := &PlatformMetrics{
		SurveysPublic:      stats.SurveysPublic,
		SurveysPrivate:     stats.SurveysPrivate,
		TotalSurveyVotes:   stats.TotalSurveyVotes,
		TotalQuestionVotes: stats.TotalQuestionVotes,
		Users:              stats.Users,
		Recent:             make([]RecentSurvey, 0, len(stats.Recent)),
	}
	for _, sv := range stats.Recent {
		m.Recent = append(m.Recent, RecentSurvey{ID: sv.ID, Title: sv.Title, IsPublic: sv.IsPublic, CreatedAt: sv.CreatedAt})
	}
	return m, nil
}
