package repository

import (
	"context"
	"errors"

	"yesno-backend/models"

	"gorm.io/gorm"
)

// ToggleLike 切换点赞状态，返回切换后的状态和点赞数
func (s *Store) ToggleLike(ctx context.Context, userID, surveyID string) (bool, int64, error) {
	var liked bool
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND survey_id = ?", userID, surveyID).Delete(&models.SurveyLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			liked = false
			return nil
		}
		err := tx.Create(&models.SurveyLike{UserID: userID, SurveyID: surveyID}).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	count, err := s.CountLikes(ctx, surveyID)
	return liked, count, err
}

// IsLiked 用户是否点赞
func (s *Store) IsLiked(ctx context.Context, userID, surveyID string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.SurveyLike{}).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		Count(&n).Error
	return n > 0, err
}

// CountLikes 点赞数
func (s *Store) CountLikes(ctx context.Context, surveyID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.SurveyLike{}).Where("survey_id = ?", surveyID).Count(&n).Error
	return n, err
}
