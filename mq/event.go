package mq

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	EventQuestionUpdated = "question_updated"
	EventSurveyUpdated   = "survey_updated"
)

// OptionCount 选项计数
type OptionCount struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Position  int    `json:"position"`
	VoteCount int64  `json:"vote_count"`
}

// Event 实时结果事件
type Event struct {
	MessageID  string        `json:"message_id"`
	Type       string        `json:"type"`
	SurveyID   string        `json:"survey_id"`
	QuestionID string        `json:"question_id,omitempty"`
	YesCount   int64         `json:"yes_count"`
	NoCount    int64         `json:"no_count"`
	Options    []OptionCount `json:"options,omitempty"`
	Timestamp  int64         `json:"timestamp"`
}

// NewEvent 创建事件并补全消息ID和时间戳
func NewEvent(eventType, surveyID string) Event {
	return Event{
		MessageID: uuid.NewString(),
		Type:      eventType,
		SurveyID:  surveyID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Handler 事件处理函数
type Handler func(Event)

// Publisher 发布事件
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
