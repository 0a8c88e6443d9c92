package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionType 问题类型
type QuestionType string

const (
	QuestionYesNo          QuestionType = "yes_no"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionRating         QuestionType = "rating"
	QuestionText           QuestionType = "text"
)

// Known 是否为已知类型
func (t QuestionType) Known() bool {
	switch t {
	case QuestionYesNo, QuestionMultipleChoice, QuestionRating, QuestionText:
		return true
	}
	return false
}

// Choice 投票选择
type Choice string

const (
	ChoiceYes    Choice = "yes"
	ChoiceNo     Choice = "no"
	ChoiceOption Choice = "option"
)

// Survey 问卷
type Survey struct {
	ID                     string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID                string         `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Title                  string         `gorm:"not null" json:"title"`
	IsPublic               bool           `gorm:"not null" json:"is_public"`
	LockAfterParticipation bool           `gorm:"not null" json:"lock_after_participation"`
	YesCount               int64          `gorm:"not null;default:0" json:"yes_count"`
	NoCount                int64          `gorm:"not null;default:0" json:"no_count"`
	CreatedAt              time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// Question 问卷中的问题
type Question struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	SurveyID  string         `gorm:"type:varchar(36);not null;index" json:"survey_id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Type      QuestionType   `gorm:"type:varchar(32);not null" json:"type"`
	YesCount  int64          `gorm:"not null;default:0" json:"yes_count"`
	NoCount   int64          `gorm:"not null;default:0" json:"no_count"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
	Options   []Option       `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

// Option 多选题选项，Position 决定展示顺序
type Option struct {
	ID         string `gorm:"type:varchar(36);primaryKey" json:"id"`
	QuestionID string `gorm:"type:varchar(36);not null;index" json:"question_id"`
	Label      string `gorm:"not null" json:"label"`
	Position   int    `gorm:"not null" json:"position"`
	VoteCount  int64  `gorm:"not null;default:0" json:"vote_count"`
}

// QuestionVote 用户对问题的投票，每个 (user, question) 只有一行
type QuestionVote struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_vote_user_question" json:"user_id"`
	QuestionID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_vote_user_question" json:"question_id"`
	SurveyID   string    `gorm:"type:varchar(36);not null;index" json:"survey_id"`
	Choice     Choice    `gorm:"type:varchar(16);not null" json:"choice"`
	OptionID   *string   `gorm:"type:varchar(36)" json:"option_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SurveyLike 点赞
type SurveyLike struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	SurveyID  string    `gorm:"type:varchar(36);primaryKey;index" json:"survey_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile 用户资料
type Profile struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	IsAdmin   bool      `gorm:"not null" json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate 生成 uuid 主键
func (s *Survey) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

func (o *Option) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// All 返回需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&Survey{}, &Question{}, &Option{}, &QuestionVote{}, &SurveyLike{}, &Profile{},
	}
}
