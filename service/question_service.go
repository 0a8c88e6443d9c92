package service

import (
	"context"

	"yesno-backend/models"
	"yesno-backend/repository"
)

// QuestionService 问题的软删除与撤销
type QuestionService struct {
	surveyAccess
	clock Clock
	opts  Options
}

// NewQuestionService 创建问题服务
func NewQuestionService(store *repository.Store, clock Clock, opts Options) *QuestionService {
	if clock == nil {
		clock = SystemClock
	}
	return &QuestionService{surveyAccess: surveyAccess{store: store}, clock: clock, opts: opts}
}

// managedQuestion 获取问题并检查对父问卷的管理权限
func (s *QuestionService) managedQuestion(ctx context.Context, p *models.Principal, id string) (*models.Question, error) {
	if p == nil {
		return nil, ErrAuthRequired
	}
	if id == "" {
		return nil, Validation("questionId required")
	}
	q, err := s.store.GetQuestionUnscoped(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, ErrQuestionNotFound)
	}
	survey, err := s.managed(ctx, p, q.SurveyID, true)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	// 父问卷已删除时问题不可操作
	if survey.DeletedAt.Valid {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

// Delete 软删除问题，返回删除时的快照；重复删除不重置删除时间
func (s *QuestionService) Delete(ctx context.Context, p *models.Principal, id string) (q *models.Question, err error) {
	defer func() { recordSoftDelete("question", "delete", err) }()

	q, err = s.managedQuestion(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if q.DeletedAt.Valid {
		return q, nil
	}

	now := s.clock.Now()
	if err := s.store.SoftDeleteQuestion(ctx, q.ID, now); err != nil {
		return nil, Upstream(err)
	}
	q.DeletedAt.Time = now
	q.DeletedAt.Valid = true
	return q, nil
}

// UndoDelete 在撤销窗口内恢复问题
func (s *QuestionService) UndoDelete(ctx context.Context, p *models.Principal, id string) (q *models.Question, err error) {
	defer func() { recordSoftDelete("question", "undo", err) }()

	q, err = s.managedQuestion(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := checkUndo(q.DeletedAt, s.clock.Now(), s.opts.window()); err != nil {
		return nil, err
	}
	if err := s.store.RestoreQuestion(ctx, q.ID); err != nil {
		return nil, Upstream(err)
	}
	q.DeletedAt.Valid = false
	return q, nil
}
