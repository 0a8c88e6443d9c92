package repository

import (
	"context"
	"errors"

	"yesno-backend/models"

	"gorm.io/gorm"
)

// VoteInput 一次问题投票
type VoteInput struct {
	UserID     string
	SurveyID   string
	QuestionID string
	Choice     models.Choice
	OptionID   *string
	// Locked 问卷开启了参与后锁定
	Locked bool
}

// VoteOutcome 投票对计数的影响
type VoteOutcome int

const (
	VoteCreated VoteOutcome = iota
	VoteUnchanged
	VoteChanged
)

// RecordVote 记录或覆盖用户对问题的投票并调整计数。
// 并发插入被唯一索引拒绝时重跑一次，让后到的请求走覆盖逻辑。
func (s *Store) RecordVote(ctx context.Context, in VoteInput) (VoteOutcome, error) {
	outcome, err := s.recordVote(ctx, in)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		outcome, err = s.recordVote(ctx, in)
	}
	return outcome, err
}

func (s *Store) recordVote(ctx context.Context, in VoteInput) (VoteOutcome, error) {
	var outcome VoteOutcome
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Locked {
			voted, err := (&Store{db: tx}).HasVotedInSurvey(ctx, in.UserID, in.SurveyID)
			if err != nil {
				return err
			}
			if voted {
				return ErrLocked
			}
		}

		var existing models.QuestionVote
		err := tx.Where("user_id = ? AND question_id = ?", in.UserID, in.QuestionID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			vote := models.QuestionVote{
				UserID:     in.UserID,
				SurveyID:   in.SurveyID,
				QuestionID: in.QuestionID,
				Choice:     in.Choice,
				OptionID:   in.OptionID,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			outcome = VoteCreated
			return adjustCount(tx, in.QuestionID, in.Choice, in.OptionID, 1)
		case err != nil:
			return err
		}

		if sameChoice(existing, in) {
			outcome = VoteUnchanged
			return nil
		}

		if err := adjustCount(tx, existing.QuestionID, existing.Choice, existing.OptionID, -1); err != nil {
			return err
		}
		if err := adjustCount(tx, in.QuestionID, in.Choice, in.OptionID, 1); err != nil {
			return err
		}
		outcome = VoteChanged
		return tx.Model(&existing).Updates(map[string]interface{}{
			"choice":    in.Choice,
			"option_id": in.OptionID,
		}).Error
	})
	return outcome, err
}

func sameChoice(v models.QuestionVote, in VoteInput) bool {
	if v.Choice != in.Choice {
		return false
	}
	if v.Choice != models.ChoiceOption {
		return true
	}
	return v.OptionID != nil && in.OptionID != nil && *v.OptionID == *in.OptionID
}

func adjustCount(tx *gorm.DB, questionID string, choice models.Choice, optionID *string, delta int) error {
	switch choice {
	case models.ChoiceYes:
		return tx.Unscoped().Model(&models.Question{}).Where("id = ?", questionID).
			UpdateColumn("yes_count", gorm.Expr("yes_count + ?", delta)).Error
	case models.ChoiceNo:
		return tx.Unscoped().Model(&models.Question{}).Where("id = ?", questionID).
			UpdateColumn("no_count", gorm.Expr("no_count + ?", delta)).Error
	case models.ChoiceOption:
		if optionID == nil {
			return nil
		}
		return tx.Model(&models.Option{}).Where("id = ?", *optionID).
			UpdateColumn("vote_count", gorm.Expr("vote_count + ?", delta)).Error
	}
	return nil
}

// HasVotedInSurvey 用户是否在问卷中投过票
func (s *Store) HasVotedInSurvey(ctx context.Context, userID, surveyID string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.QuestionVote{}).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		Count(&n).Error
	return n > 0, err
}

// CountVotes 按问题统计投票行数
func (s *Store) CountVotes(ctx context.Context, questionID string) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.QuestionVote{}).Where("question_id = ?", questionID).Count(&n).Error
	return n, err
}
