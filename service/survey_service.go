package service

import (
	"context"
	"strings"
	"time"

	"yesno-backend/logging"
	"yesno-backend/models"
	"yesno-backend/repository"
)

const (
	// MineLimit 我的问卷最多返回条数
	MineLimit = 50
	// DefaultPageSize 公开列表默认分页大小
	DefaultPageSize = 10
	// MaxPageSize 公开列表最大分页大小
	MaxPageSize = 100
	// MaxPage 公开列表最大页码，避免偏移量溢出
	MaxPage = 10000
	// PopularThreshold 总票数达到该值视为热门
	PopularThreshold = 20
)

// Options 服务选项
type Options struct {
	UndoWindow  time.Duration
	MultiChoice bool
}

func (o Options) window() time.Duration {
	if o.UndoWindow <= 0 {
		return DefaultUndoWindow
	}
	return o.UndoWindow
}

// SurveyView 问卷详情
type SurveyView struct {
	Survey    *models.Survey    `json:"survey"`
	Questions []models.Question `json:"questions"`
	IsOwner   bool              `json:"isOwner"`
	IsAdmin   bool              `json:"isAdmin"`
	LikeCount int64             `json:"likeCount"`
	LikedByMe bool              `json:"likedByMe"`
}

// SurveyPage 分页结果
type SurveyPage struct {
	Surveys []models.Survey `json:"surveys"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
	HasMore bool            `json:"hasMore"`
}

// AddQuestionInput 添加问题参数
type AddQuestionInput struct {
	SurveyID string
	Body     string
	Type     string
	Options  []string
}

// SurveyService 问卷服务
type SurveyService struct {
	surveyAccess
	clock Clock
	opts  Options
}

// NewSurveyService 创建问卷服务
func NewSurveyService(store *repository.Store, clock Clock, opts Options) *SurveyService {
	if clock == nil {
		clock = SystemClock
	}
	return &SurveyService{surveyAccess: surveyAccess{store: store}, clock: clock, opts: opts}
}

// Create 创建问卷
func (s *SurveyService) Create(ctx context.Context, p *models.Principal, title string, isPublic bool) (*models.Survey, error) {
	if p == nil {
		return nil, ErrAuthRequired
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, Validation("title required")
	}

	now := s.clock.Now()
	survey := &models.Survey{
		OwnerID:   p.UserID,
		Title:     title,
		IsPublic:  isPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateSurvey(ctx, survey); err != nil {
		return nil, Upstream(err)
	}
	logging.Ctx(ctx).Info().Str("survey_id", survey.ID).Str("owner_id", p.UserID).Msg("问卷已创建")
	return survey, nil
}

// Get 问卷详情，私有问卷对无权限的调用方返回 NotFound
func (s *SurveyService) Get(ctx context.Context, p *models.Principal, id string) (*SurveyView, error) {
	survey, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}

	questions, err := s.store.ListQuestions(ctx, survey.ID)
	if err != nil {
		return nil, Upstream(err)
	}
	likeCount, err := s.store.CountLikes(ctx, survey.ID)
	if err != nil {
		return nil, Upstream(err)
	}

	view := &SurveyView{
		Survey:    survey,
		Questions: questions,
		LikeCount: likeCount,
	}
	if p != nil {
		view.IsOwner = p.UserID == survey.OwnerID
		view.IsAdmin = p.Admin()
		if view.LikedByMe, err = s.store.IsLiked(ctx, p.UserID, survey.ID); err != nil {
			return nil, Upstream(err)
		}
	}
	return view, nil
}

// Find 获取调用方可见的问卷
func (s *SurveyService) Find(ctx context.Context, p *models.Principal, id string) (*models.Survey, error) {
	return s.visible(ctx, p, id)
}

// UndoWindow 撤销窗口
func (s *SurveyService) UndoWindow() time.Duration {
	return s.opts.window()
}

// Rename 修改标题
func (s *SurveyService) Rename(ctx context.Context, p *models.Principal, id, title string) (*models.Survey, error) {
	survey, err := s.managed(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, Validation("title required")
	}
	if err := s.store.UpdateSurvey(ctx, survey.ID, map[string]interface{}{"title": title}); err != nil {
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}
	survey.Title = title
	return survey, nil
}

// SetVisibility 设置公开或私有
func (s *SurveyService) SetVisibility(ctx context.Context, p *models.Principal, id string, isPublic bool) (*models.Survey, error) {
	survey, err := s.managed(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSurvey(ctx, survey.ID, map[string]interface{}{"is_public": isPublic}); err != nil {
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}
	survey.IsPublic = isPublic
	return survey, nil
}

// SetLock 设置参与后锁定
func (s *SurveyService) SetLock(ctx context.Context, p *models.Principal, id string, locked bool) (*models.Survey, error) {
	survey, err := s.managed(ctx, p, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSurvey(ctx, survey.ID, map[string]interface{}{"lock_after_participation": locked}); err != nil {
		return nil, mapStoreError(err, ErrSurveyNotFound)
	}
	survey.LockAfterParticipation = locked
	return survey, nil
}

// Delete 彻底删除问卷，不可撤销
func (s *SurveyService) Delete(ctx context.Context, p *models.Principal, id string) error {
	survey, err := s.managed(ctx, p, id, true)
	if err != nil {
		return err
	}
	if err := s.store.HardDeleteSurvey(ctx, survey.ID); err != nil {
		return Upstream(err)
	}
	logging.Ctx(ctx).Info().Str("survey_id", survey.ID).Msg("问卷已彻底删除")
	return nil
}

// SoftDelete 软删除问卷，已删除的问卷保持原删除时间
func (s *SurveyService) SoftDelete(ctx context.Context, p *models.Principal, id string) (survey *models.Survey, err error) {
	defer func() { recordSoftDelete("survey", "delete", err) }()

	survey, err = s.managed(ctx, p, id, true)
	if err != nil {
		return nil, err
	}
	if survey.DeletedAt.Valid {
		return survey, nil
	}

	now := s.clock.Now()
	if err := s.store.SoftDeleteSurvey(ctx, survey.ID, now); err != nil {
		return nil, Upstream(err)
	}
	survey.DeletedAt.Time = now
	survey.DeletedAt.Valid = true
	return survey, nil
}

// UndoDelete 在撤销窗口内恢复问卷
func (s *SurveyService) UndoDelete(ctx context.Context, p *models.Principal, id string) (survey *models.Survey, err error) {
	defer func() { recordSoftDelete("survey", "undo", err) }()

	survey, err = s.managed(ctx, p, id, true)
	if err != nil {
		return nil, err
	}
	if err := checkUndo(survey.DeletedAt, s.clock.Now(), s.opts.window()); err != nil {
		return nil, err
	}
	if err := s.store.RestoreSurvey(ctx, survey.ID); err != nil {
		return nil, Upstream(err)
	}
	survey.DeletedAt.Valid = false
	return survey, nil
}

// ToggleLike 切换点赞
func (s *SurveyService) ToggleLike(ctx context.Context, p *models.Principal, id string) (bool, int64, error) {
	if p == nil {
		return false, 0, ErrAuthRequired
	}
	survey, err := s.visible(ctx, p, id)
	if err != nil {
		return false, 0, err
	}
	liked, count, err := s.store.ToggleLike(ctx, p.UserID, survey.ID)
	if err != nil {
		return false, 0, Upstream(err)
	}
	return liked, count, nil
}

// IsLiked 是否已点赞
func (s *SurveyService) IsLiked(ctx context.Context, p *models.Principal, id string) (bool, error) {
	if p == nil {
		return false, ErrAuthRequired
	}
	if id == "" {
		return false, Validation("missing id")
	}
	liked, err := s.store.IsLiked(ctx, p.UserID, id)
	if err != nil {
		return false, Upstream(err)
	}
	return liked, nil
}

// AddQuestion 向问卷添加问题
func (s *SurveyService) AddQuestion(ctx context.Context, p *models.Principal, in AddQuestionInput) (*models.Question, error) {
	if p == nil {
		return nil, ErrAuthRequired
	}
	body := strings.TrimSpace(in.Body)
	if in.SurveyID == "" || body == "" {
		return nil, Validation("invalid body")
	}

	qType := models.QuestionYesNo
	if in.Type != "" {
		qType = models.QuestionType(in.Type)
	}
	switch {
	case !qType.Known():
		return nil, Validation("invalid question type")
	case qType == models.QuestionMultipleChoice && !s.opts.MultiChoice:
		return nil, Validation("multiple choice is disabled")
	case qType != models.QuestionYesNo && qType != models.QuestionMultipleChoice:
		return nil, Validation("unsupported question type")
	}

	var options []models.Option
	if qType == models.QuestionMultipleChoice {
		for _, label := range in.Options {
			if label = strings.TrimSpace(label); label != "" {
				options = append(options, models.Option{Label: label, Position: len(options)})
			}
		}
		if len(options) < 2 {
			return nil, Validation("at least two options required")
		}
	}

	survey, err := s.managed(ctx, p, in.SurveyID, false)
	if err != nil {
		return nil, err
	}

	q := &models.Question{
		SurveyID:  survey.ID,
		Body:      body,
		Type:      qType,
		CreatedAt: s.clock.Now(),
		Options:   options,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, Upstream(err)
	}
	return q, nil
}

// ListMine 我的问卷
func (s *SurveyService) ListMine(ctx context.Context, p *models.Principal) ([]models.Survey, error) {
	if p == nil {
		return nil, ErrAuthRequired
	}
	surveys, err := s.store.ListSurveysByOwner(ctx, p.UserID, MineLimit)
	if err != nil {
		return nil, Upstream(err)
	}
	return surveys, nil
}

// ListPublic 公开问卷分页，page 从 1 开始
func (s *SurveyService) ListPublic(ctx context.Context, page, limit int) (*SurveyPage, error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	// 多取一条判断是否还有下一页
	surveys, err := s.store.ListPublicSurveys(ctx, (page-1)*limit, limit+1)
	if err != nil {
		return nil, Upstream(err)
	}
	result := &SurveyPage{Page: page, Limit: limit, Surveys: surveys}
	if len(surveys) > limit {
		result.Surveys = surveys[:limit]
		result.HasMore = true
	}
	return result, nil
}

// ListFavorites 我点赞的问卷
func (s *SurveyService) ListFavorites(ctx context.Context, p *models.Principal) ([]models.Survey, error) {
	if p == nil {
		return nil, ErrAuthRequired
	}
	surveys, err := s.store.ListLikedSurveys(ctx, p.UserID, p.Admin())
	if err != nil {
		return nil, Upstream(err)
	}
	return surveys, nil
}
