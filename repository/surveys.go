package repository

import (
	"context"
	"time"

	"yesno-backend/models"

	"gorm.io/gorm"
)

// CreateSurvey 创建问卷
func (s *Store) CreateSurvey(ctx context.Context, survey *models.Survey) error {
	return s.conn(ctx).Create(survey).Error
}

// GetSurvey 获取未删除的问卷
func (s *Store) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	var survey models.Survey
	if err := s.conn(ctx).Where("id = ?", id).Take(&survey).Error; err != nil {
		return nil, notFound(err)
	}
	return &survey, nil
}

// GetSurveyUnscoped 获取问卷，包含已软删除的
func (s *Store) GetSurveyUnscoped(ctx context.Context, id string) (*models.Survey, error) {
	var survey models.Survey
	if err := s.conn(ctx).Unscoped().Where("id = ?", id).Take(&survey).Error; err != nil {
		return nil, notFound(err)
	}
	return &survey, nil
}

// UpdateSurvey 更新问卷字段
func (s *Store) UpdateSurvey(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(&models.Survey{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteSurvey 按给定时间标记删除
func (s *Store) SoftDeleteSurvey(ctx context.Context, id string, at time.Time) error {
	return s.conn(ctx).Unscoped().Model(&models.Survey{}).
		Where("id = ? AND deleted_at IS NULL", id).
		UpdateColumn("deleted_at", at).Error
}

// RestoreSurvey 清除删除标记
func (s *Store) RestoreSurvey(ctx context.Context, id string) error {
	return s.conn(ctx).Unscoped().Model(&models.Survey{}).
		Where("id = ?", id).
		UpdateColumn("deleted_at", nil).Error
}

// HardDeleteSurvey 彻底删除问卷及其问题、选项、投票和点赞
func (s *Store) HardDeleteSurvey(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return hardDeleteSurveys(tx, []string{id})
	})
}

// hardDeleteSurveys tx 必须是可复用的会话
func hardDeleteSurveys(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var questionIDs []string
	if err := tx.Unscoped().Model(&models.Question{}).Where("survey_id IN ?", ids).Pluck("id", &questionIDs).Error; err != nil {
		return err
	}
	if err := hardDeleteQuestions(tx, questionIDs); err != nil {
		return err
	}
	if err := tx.Where("survey_id IN ?", ids).Delete(&models.QuestionVote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("survey_id IN ?", ids).Delete(&models.SurveyLike{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Survey{}).Error
}

// ListSurveysByOwner 用户自己的问卷，最新在前
func (s *Store) ListSurveysByOwner(ctx context.Context, ownerID string, limit int) ([]models.Survey, error) {
	var surveys []models.Survey
	err := s.conn(ctx).Where("owner_id = ?", ownerID).
		Order("created_at DESC").Limit(limit).Find(&surveys).Error
	return surveys, err
}

// ListPublicSurveys 公开问卷分页
func (s *Store) ListPublicSurveys(ctx context.Context, offset, limit int) ([]models.Survey, error) {
	var surveys []models.Survey
	err := s.conn(ctx).Where("is_public = ?", true).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&surveys).Error
	return surveys, err
}

// ListLikedSurveys 用户点赞过且可见的问卷；includePrivate 为 true 时不过滤私有问卷
func (s *Store) ListLikedSurveys(ctx context.Context, userID string, includePrivate bool) ([]models.Survey, error) {
	var surveys []models.Survey
	q := s.conn(ctx).
		Joins("JOIN survey_likes ON survey_likes.survey_id = surveys.id").
		Where("survey_likes.user_id = ?", userID)
	if !includePrivate {
		q = q.Where("(surveys.is_public = ? OR surveys.owner_id = ?)", true, userID)
	}
	err := q.Order("survey_likes.created_at DESC").Find(&surveys).Error
	return surveys, err
}

// IncrementSurveyCounter 整体投票计数加一
func (s *Store) IncrementSurveyCounter(ctx context.Context, id string, choice models.Choice) error {
	column := "no_count"
	if choice == models.ChoiceYes {
		column = "yes_count"
	}
	res := s.conn(ctx).Model(&models.Survey{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeResult 清理结果
type PurgeResult struct {
	Surveys   int
	Questions int
}

// PurgeSoftDeleted 彻底删除 before 之前软删除的问卷和问题
func (s *Store) PurgeSoftDeleted(ctx context.Context, before time.Time) (PurgeResult, error) {
	var result PurgeResult
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var surveyIDs []string
		if err := tx.Unscoped().Model(&models.Survey{}).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
			Pluck("id", &surveyIDs).Error; err != nil {
			return err
		}
		if err := hardDeleteSurveys(tx, surveyIDs); err != nil {
			return err
		}

		var questionIDs []string
		if err := tx.Unscoped().Model(&models.Question{}).
			Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
			Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if err := hardDeleteQuestions(tx, questionIDs); err != nil {
			return err
		}

		result = PurgeResult{Surveys: len(surveyIDs), Questions: len(questionIDs)}
		return nil
	})
	return result, err
}
