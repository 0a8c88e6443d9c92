package repository

import (
	"context"

	"yesno-backend/models"
)

// PlatformStats 平台统计
type PlatformStats struct {
	SurveysPublic      int64
	SurveysPrivate     int64
	TotalSurveyVotes   int64
	TotalQuestionVotes int64
	Users              int64
	Recent             []models.Survey
}

// Stats 汇总平台统计
func (s *Store) Stats(ctx context.Context, recentLimit int) (*PlatformStats, error) {
	db := s.conn(ctx)
	stats := &PlatformStats{}

	if err := db.Model(&models.Survey{}).Where("is_public = ?", true).Count(&stats.SurveysPublic).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Survey{}).Where("is_public = ?", false).Count(&stats.SurveysPrivate).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Survey{}).
		Select("COALESCE(SUM(yes_count + no_count), 0)").
		Scan(&stats.TotalSurveyVotes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Question{}).
		Select("COALESCE(SUM(yes_count + no_count), 0)").
		Scan(&stats.TotalQuestionVotes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Profile{}).Count(&stats.Users).Error; err != nil {
		return nil, err
	}
	if err := db.Order("created_at DESC").Limit(recentLimit).Find(&stats.Recent).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
