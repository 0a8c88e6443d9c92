package repository

import (
	"context"
	"time"

	"yesno-backend/models"

	"gorm.io/gorm"
)

// CreateQuestion 创建问题，Options 一并写入
func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return s.conn(ctx).Create(q).Error
}

// GetQuestion 获取未删除的问题
func (s *Store) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := s.conn(ctx).Where("id = ?", id).Take(&q).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// GetQuestionUnscoped 获取问题，包含已软删除的
func (s *Store) GetQuestionUnscoped(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := s.conn(ctx).Unscoped().Where("id = ?", id).Take(&q).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// ListQuestions 问卷下未删除的问题，按创建时间排序，附带选项
func (s *Store) ListQuestions(ctx context.Context, surveyID string) ([]models.Question, error) {
	var questions []models.Question
	err := s.conn(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("survey_id = ?", surveyID).
		Order("created_at ASC").Order("id ASC").
		Find(&questions).Error
	return questions, err
}

// SoftDeleteQuestion 按给定时间标记删除
func (s *Store) SoftDeleteQuestion(ctx context.Context, id string, at time.Time) error {
	return s.conn(ctx).Unscoped().Model(&models.Question{}).
		Where("id = ? AND deleted_at IS NULL", id).
		UpdateColumn("deleted_at", at).Error
}

// RestoreQuestion 清除删除标记
func (s *Store) RestoreQuestion(ctx context.Context, id string) error {
	return s.conn(ctx).Unscoped().Model(&models.Question{}).
		Where("id = ?", id).
		UpdateColumn("deleted_at", nil).Error
}

func hardDeleteQuestions(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("question_id IN ?", ids).Delete(&models.QuestionVote{}).Error; err != nil {
		return err
	}
	if err := tx.Where("question_id IN ?", ids).Delete(&models.Option{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Question{}).Error
}

// GetOption 获取选项
func (s *Store) GetOption(ctx context.Context, id string) (*models.Option, error) {
	var o models.Option
	if err := s.conn(ctx).Where("id = ?", id).Take(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// ListOptions 按位置排序的选项
func (s *Store) ListOptions(ctx context.Context, questionID string) ([]models.Option, error) {
	var options []models.Option
	err := s.conn(ctx).Where("question_id = ?", questionID).
		Order("position ASC").Find(&options).Error
	return options, err
}
