package service

import (
	"context"

	"yesno-backend/logging"
	"yesno-backend/metrics"
	"yesno-backend/models"
	"yesno-backend/mq"
	"yesno-backend/repository"
)

// VoteRequest 投票请求
type VoteRequest struct {
	SurveyID   string `json:"surveyId"`
	QuestionID string `json:"questionId"`
	OptionID   string `json:"optionId"`
	Answer     string `json:"answer"`
}

// QuestionCounts 问题最新计数
type QuestionCounts struct {
	ID       string `json:"id"`
	YesCount int64  `json:"yes_count"`
	NoCount  int64  `json:"no_count"`
}

// VoteResult 投票结果，按投票路径填充其中一部分
type VoteResult struct {
	Question *QuestionCounts `json:"question,omitempty"`
	Options  []models.Option `json:"options,omitempty"`
	Survey   *models.Survey  `json:"survey,omitempty"`
}

// VoteService 投票服务
type VoteService struct {
	surveyAccess
	opts      Options
	publisher mq.Publisher
}

// NewVoteService 创建投票服务，publisher 可为 nil
func NewVoteService(store *repository.Store, opts Options, publisher mq.Publisher) *VoteService {
	return &VoteService{surveyAccess: surveyAccess{store: store}, opts: opts, publisher: publisher}
}

// Vote 根据请求字段选择投票路径：optionId > questionId > surveyId
func (s *VoteService) Vote(ctx context.Context, p *models.Principal, req VoteRequest) (*VoteResult, error) {
	if req.OptionID != "" {
		return s.voteOption(ctx, p, req)
	}

	answer := models.Choice(req.Answer)
	if answer != models.ChoiceYes && answer != models.ChoiceNo {
		return nil, Validation("invalid body")
	}
	if req.QuestionID != "" {
		return s.voteQuestion(ctx, p, req, answer)
	}
	if req.SurveyID == "" {
		return nil, Validation("surveyId required")
	}
	return s.voteSurvey(ctx, p, req.SurveyID, answer)
}

// voteQuestion 是非题投票
func (s *VoteService) voteQuestion(ctx context.Context, p *models.Principal, req VoteRequest, answer models.Choice) (*VoteResult, error) {
	if p == nil {
		return nil, AuthRequired("auth required to vote")
	}
	q, survey, err := s.resolveQuestion(ctx, p, req.QuestionID, req.SurveyID)
	if err != nil {
		return nil, err
	}
	if q.Type == models.QuestionMultipleChoice {
		return nil, Validation("optionId required for multiple choice")
	}

	if err := s.record(ctx, "question", repository.VoteInput{
		UserID:     p.UserID,
		SurveyID:   survey.ID,
		QuestionID: q.ID,
		Choice:     answer,
		Locked:     survey.LockAfterParticipation,
	}); err != nil {
		return nil, err
	}

	fresh, err := s.store.GetQuestion(ctx, q.ID)
	if err != nil {
		return nil, mapStoreError(err, ErrQuestionNotFound)
	}
	s.publish(ctx, fresh, nil)
	return &VoteResult{Question: &QuestionCounts{ID: fresh.ID, YesCount: fresh.YesCount, NoCount: fresh.NoCount}}, nil
}

// voteOption 多选题投票，按 option -> question -> survey 解析
func (s *VoteService) voteOption(ctx context.Context, p *models.Principal, req VoteRequest) (*VoteResult, error) {
	if p == nil {
		return nil, AuthRequired("auth required to vote")
	}
	if !s.opts.MultiChoice {
		return nil, Validation("multiple choice is disabled")
	}

	option, err := s.store.GetOption(ctx, req.OptionID)
	if err != nil {
		return nil, mapStoreError(err, ErrOptionNotFound)
	}
	if req.QuestionID != "" && req.QuestionID != option.QuestionID {
		return nil, Validation("option does not belong to question")
	}
	q, survey, err := s.resolveQuestion(ctx, p, option.QuestionID, req.SurveyID)
	if err != nil {
		return nil, err
	}
	if q.Type != models.QuestionMultipleChoice {
		return nil, Validation("question is not multiple choice")
	}

	optionID := option.ID
	if err := s.record(ctx, "option", repository.VoteInput{
		UserID:     p.UserID,
		SurveyID:   survey.ID,
		QuestionID: q.ID,
		Choice:     models.ChoiceOption,
		OptionID:   &optionID,
		Locked:     survey.LockAfterParticipation,
	}); err != nil {
		return nil, err
	}

	options, err := s.store.ListOptions(ctx, q.ID)
	if err != nil {
		return nil, Upstream(err)
	}
	s.publish(ctx, q, options)
	return &VoteResult{
		Question: &QuestionCounts{ID: q.ID, YesCount: q.YesCount, NoCount: q.NoCount},
		Options:  options,
	}, nil
}

// voteSurvey 旧版整体投票，允许匿名
func (s *VoteService) voteSurvey(ctx context.Context, p *models.Principal, surveyID string, answer models.Choice) (*VoteResult, error) {
	survey, err := s.visible(ctx, p, surveyID)
	if err != nil {
		return nil, err
	}
	if err := s.store.IncrementSurveyCounter(ctx, survey.ID, answer); err != nil {
		metrics.VotesTotal.WithLabelValues("survey", "error").Inc()
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}
	metrics.VotesTotal.WithLabelValues("survey", "created").Inc()

	fresh, err := s.store.GetSurvey(ctx, survey.ID)
	if err != nil {
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}
	if s.publisher != nil {
		ev := mq.NewEvent(mq.EventSurveyUpdated, fresh.ID)
		ev.YesCount, ev.NoCount = fresh.YesCount, fresh.NoCount
		if err := s.publisher.Publish(ctx, ev); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("survey_id", fresh.ID).Msg("发布实时事件失败")
		}
	}
	return &VoteResult{Survey: fresh}, nil
}

// resolveQuestion 解析问题及其问卷并检查可见性
func (s *VoteService) resolveQuestion(ctx context.Context, p *models.Principal, questionID, claimedSurveyID string) (*models.Question, *models.Survey, error) {
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, nil, mapStoreError(err, ErrQuestionNotFound)
	}
	if claimedSurveyID != "" && claimedSurveyID != q.SurveyID {
		return nil, nil, Validation("question does not belong to survey")
	}
	survey, err := s.visible(ctx, p, q.SurveyID)
	if err != nil {
		return nil, nil, err
	}
	return q, survey, nil
}

func (s *VoteService) record(ctx context.Context, kind string, in repository.VoteInput) error {
	outcome, err := s.store.RecordVote(ctx, in)
	if err != nil {
		metrics.VotesTotal.WithLabelValues(kind, "rejected").Inc()
		return mapStoreError(err, ErrQuestionNotFound)
	}

	label := "created"
	switch outcome {
	case repository.VoteUnchanged:
		label = "unchanged"
	case repository.VoteChanged:
		label = "changed"
	}
	metrics.VotesTotal.WithLabelValues(kind, label).Inc()
	logging.Ctx(ctx).Debug().
		Str("user_id", in.UserID).
		Str("question_id", in.QuestionID).
		Str("outcome", label).
		Msg("投票已记录")
	return nil
}

// publish 投票提交后推送实时结果，失败只记录日志
func (s *VoteService) publish(ctx context.Context, q *models.Question, options []models.Option) {
	if s.publisher == nil {
		return
	}
	ev := mq.NewEvent(mq.EventQuestionUpdated, q.SurveyID)
	ev.QuestionID = q.ID
	ev.YesCount, ev.NoCount = q.YesCount, q.NoCount
	for _, o := range options {
		ev.Options = append(ev.Options, mq.OptionCount{ID: o.ID, Label: o.Label, Position: o.Position, VoteCount: o.VoteCount})
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("survey_id", q.SurveyID).Msg("发布实时事件失败")
	}
}
