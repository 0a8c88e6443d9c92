package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"yesno-backend/cache"
	"yesno-backend/models"
	"yesno-backend/mq"
	"yesno-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev mq.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

type testEnv struct {
	store     *repository.Store
	clock     *FakeClock
	surveys   *SurveyService
	questions *QuestionService
	votes     *VoteService
	admin     *AdminService
	events    *recordingPublisher
}

var (
	owner = &models.Principal{UserID: "owner-1"}
	voter = &models.Principal{UserID: "voter-1"}
	other = &models.Principal{UserID: "other-1"}
	admin = &models.Principal{UserID: "admin-1", IsAdmin: true}
)

var dbSeq atomic.Int64

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	store := repository.New(db)
	clock := NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	events := &recordingPublisher{}
	return &testEnv{
		store:     store,
		clock:     clock,
		surveys:   NewSurveyService(store, clock, opts),
		questions: NewQuestionService(store, clock, opts),
		votes:     NewVoteService(store, opts, events),
		admin:     NewAdminService(store),
		events:    events,
	}
}

func (e *testEnv) addQuestion(t *testing.T, surveyID, body string) *models.Question {
	t.Helper()
	e.clock.Advance(time.Millisecond)
	q, err := e.surveys.AddQuestion(context.Background(), owner, AddQuestionInput{SurveyID: surveyID, Body: body})
	require.NoError(t, err)
	return q
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

func TestScenario_WeeklyCheckIn(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	survey, err := env.surveys.Create(ctx, owner, "Weekly check-in", true)
	require.NoError(t, err)
	require.NotEmpty(t, survey.ID)

	view, err := env.surveys.Get(ctx, nil, survey.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekly check-in", view.Survey.Title)
	assert.False(t, view.IsOwner)
	assert.False(t, view.IsAdmin)

	q, err := env.surveys.AddQuestion(ctx, owner, AddQuestionInput{SurveyID: survey.ID, Body: "Ship on Friday?"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.YesCount)
	assert.Equal(t, int64(0), q.NoCount)
	assert.Equal(t, models.QuestionYesNo, q.Type)

	vote := func(answer string) *QuestionCounts {
		res, err := env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q.ID, Answer: answer})
		require.NoError(t, err)
		require.NotNil(t, res.Question)
		return res.Question
	}

	counts := vote("yes")
	assert.Equal(t, int64(1), counts.YesCount)
	counts = vote("yes")
	assert.Equal(t, int64(1), counts.YesCount)
	assert.Equal(t, int64(0), counts.NoCount)
	counts = vote("no")
	assert.Equal(t, int64(0), counts.YesCount)
	assert.Equal(t, int64(1), counts.NoCount)

	deleted, err := env.questions.Delete(ctx, owner, q.ID)
	require.NoError(t, err)
	assert.True(t, deleted.DeletedAt.Valid)

	env.clock.Advance(31 * time.Second)
	_, err = env.questions.UndoDelete(ctx, owner, q.ID)
	requireKind(t, err, KindWindowExpired)

	view, err = env.surveys.Get(ctx, nil, survey.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Questions)
}

func TestUndo_Boundary(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Boundary", true)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Exactly thirty?")

	_, err = env.questions.Delete(ctx, owner, q.ID)
	require.NoError(t, err)
	env.clock.Advance(30 * time.Second)

	restored, err := env.questions.UndoDelete(ctx, owner, q.ID)
	require.NoError(t, err)
	assert.False(t, restored.DeletedAt.Valid)

	// 第二次撤销
	_, err = env.questions.UndoDelete(ctx, owner, q.ID)
	requireKind(t, err, KindNotDeleted)
}

func TestUndo_JustPastWindow(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Boundary", true)
	require.NoError(t, err)

	_, err = env.surveys.SoftDelete(ctx, owner, survey.ID)
	require.NoError(t, err)
	env.clock.Advance(30*time.Second + time.Millisecond)

	_, err = env.surveys.UndoDelete(ctx, owner, survey.ID)
	requireKind(t, err, KindWindowExpired)
}

func TestUndo_NeverDeleted(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Alive", true)
	require.NoError(t, err)

	_, err = env.surveys.UndoDelete(ctx, owner, survey.ID)
	requireKind(t, err, KindNotDeleted)
}

func TestSoftDelete_RepeatKeepsDeadline(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Twice", true)
	require.NoError(t, err)

	first, err := env.surveys.SoftDelete(ctx, owner, survey.ID)
	require.NoError(t, err)
	env.clock.Advance(20 * time.Second)

	second, err := env.surveys.SoftDelete(ctx, owner, survey.ID)
	require.NoError(t, err)
	assert.True(t, first.DeletedAt.Time.Equal(second.DeletedAt.Time))

	// 第一次删除后已过 31 秒
	env.clock.Advance(11 * time.Second)
	_, err = env.surveys.UndoDelete(ctx, owner, survey.ID)
	requireKind(t, err, KindWindowExpired)
}

func TestSoftDelete_HidesSurvey(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Gone", true)
	require.NoError(t, err)

	_, err = env.surveys.SoftDelete(ctx, owner, survey.ID)
	require.NoError(t, err)

	_, err = env.surveys.Get(ctx, owner, survey.ID)
	requireKind(t, err, KindNotFound)

	env.clock.Advance(5 * time.Second)
	_, err = env.surveys.UndoDelete(ctx, owner, survey.ID)
	require.NoError(t, err)

	_, err = env.surveys.Get(ctx, nil, survey.ID)
	assert.NoError(t, err)
}

func TestSoftDelete_RequiresOwnerOrAdmin(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Mine", true)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Q?")

	_, err = env.surveys.SoftDelete(ctx, nil, survey.ID)
	requireKind(t, err, KindAuthRequired)
	_, err = env.surveys.SoftDelete(ctx, other, survey.ID)
	requireKind(t, err, KindForbidden)
	_, err = env.questions.Delete(ctx, other, q.ID)
	requireKind(t, err, KindForbidden)

	_, err = env.questions.Delete(ctx, admin, q.ID)
	assert.NoError(t, err)
}

func TestPrivateSurvey_Visibility(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Secret", false)
	require.NoError(t, err)

	_, err = env.surveys.Get(ctx, nil, survey.ID)
	requireKind(t, err, KindNotFound)
	_, err = env.surveys.Get(ctx, other, survey.ID)
	requireKind(t, err, KindNotFound)
	_, err = env.surveys.Results(ctx, other, survey.ID)
	requireKind(t, err, KindNotFound)

	// 私有问卷对非所有者不暴露存在
	_, err = env.surveys.Rename(ctx, other, survey.ID, "Mine now")
	requireKind(t, err, KindNotFound)

	view, err := env.surveys.Get(ctx, owner, survey.ID)
	require.NoError(t, err)
	assert.True(t, view.IsOwner)

	view, err = env.surveys.Get(ctx, admin, survey.ID)
	require.NoError(t, err)
	assert.True(t, view.IsAdmin)
	assert.False(t, view.IsOwner)
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	_, err := env.surveys.Create(ctx, nil, "x", true)
	requireKind(t, err, KindAuthRequired)

	_, err = env.surveys.Create(ctx, owner, "   ", true)
	requireKind(t, err, KindValidation)

	s, err := env.surveys.Create(ctx, owner, "  Padded  ", false)
	require.NoError(t, err)
	assert.Equal(t, "Padded", s.Title)
	assert.False(t, s.IsPublic)

	got, err := env.store.GetSurvey(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
}

func TestRenameAndVisibility(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Old", true)
	require.NoError(t, err)

	_, err = env.surveys.Rename(ctx, owner, survey.ID, " ")
	requireKind(t, err, KindValidation)

	renamed, err := env.surveys.Rename(ctx, owner, survey.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Title)

	_, err = env.surveys.SetVisibility(ctx, other, survey.ID, false)
	requireKind(t, err, KindForbidden)

	_, err = env.surveys.SetVisibility(ctx, admin, survey.ID, false)
	require.NoError(t, err)
	_, err = env.surveys.Get(ctx, nil, survey.ID)
	requireKind(t, err, KindNotFound)

	_, err = env.surveys.SetVisibility(ctx, admin, "missing", true)
	requireKind(t, err, KindNotFound)
}

func TestAddQuestion_Types(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, Options{})
	survey, err := env.surveys.Create(ctx, owner, "Types", true)
	require.NoError(t, err)

	_, err = env.surveys.AddQuestion(ctx, owner, AddQuestionInput{SurveyID: survey.ID, Body: "  "})
	requireKind(t, err, KindValidation)
	_, err = env.surveys.AddQuestion(ctx, owner, AddQuestionInput{SurveyID: survey.ID, Body: "Rate", Type: "rating"})
	requireKind(t, err, KindValidation)
	_, err = env.surveys.AddQuestion(ctx, owner, AddQuestionInput{SurveyID: survey.ID, Body: "Pick", Type: "multiple_choice", Options: []string{"a", "b"}})
	requireKind(t, err, KindValidation)
	_, err = env.surveys.AddQuestion(ctx, other, AddQuestionInput{SurveyID: survey.ID, Body: "Hijack"})
	requireKind(t, err, KindForbidden)

	mc := newTestEnv(t, Options{MultiChoice: true})
	survey, err = mc.surveys.Create(ctx, owner, "Types", true)
	require.NoError(t, err)

	_, err = mc.surveys.AddQuestion(ctx, owner, AddQuestionInput{SurveyID: survey.ID, Body: "Pick", Type: "multiple_choice", Options: []string{"only", "  "}})
	requireKind(t, err, KindValidation)

	q, err := mc.surveys.AddQuestion(ctx, owner, AddQuestionInput{SurveyID: survey.ID, Body: "Pick", Type: "multiple_choice", Options: []string{" Red ", "", "Blue"}})
	require.NoError(t, err)
	require.Len(t, q.Options, 2)
	assert.Equal(t, "Red", q.Options[0].Label)
	assert.Equal(t, 0, q.Options[0].Position)
	assert.Equal(t, "Blue", q.Options[1].Label)
	assert.Equal(t, 1, q.Options[1].Position)
}

func TestVote_Validation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "V", true)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Q?")

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q.ID, Answer: "maybe"})
	requireKind(t, err, KindValidation)

	_, err = env.votes.Vote(ctx, nil, VoteRequest{QuestionID: q.ID, Answer: "yes"})
	requireKind(t, err, KindAuthRequired)

	_, err = env.votes.Vote(ctx, nil, VoteRequest{Answer: "yes"})
	requireKind(t, err, KindValidation)

	_, err = env.votes.Vote(ctx, voter, VoteRequest{SurveyID: "other-survey", QuestionID: q.ID, Answer: "yes"})
	requireKind(t, err, KindValidation)

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: "missing", Answer: "yes"})
	requireKind(t, err, KindNotFound)
}

func TestVote_DeletedQuestionAndPrivateSurvey(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Private", false)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Q?")

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q.ID, Answer: "yes"})
	requireKind(t, err, KindNotFound)

	_, err = env.votes.Vote(ctx, owner, VoteRequest{QuestionID: q.ID, Answer: "yes"})
	require.NoError(t, err)

	_, err = env.questions.Delete(ctx, owner, q.ID)
	require.NoError(t, err)
	_, err = env.votes.Vote(ctx, owner, VoteRequest{QuestionID: q.ID, Answer: "no"})
	requireKind(t, err, KindNotFound)
}

func TestVote_LegacySurveyAnonymous(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Legacy", true)
	require.NoError(t, err)

	res, err := env.votes.Vote(ctx, nil, VoteRequest{SurveyID: survey.ID, Answer: "yes"})
	require.NoError(t, err)
	require.NotNil(t, res.Survey)
	assert.Equal(t, int64(1), res.Survey.YesCount)

	res, err = env.votes.Vote(ctx, nil, VoteRequest{SurveyID: survey.ID, Answer: "no"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Survey.NoCount)
}

func TestVote_LockAfterParticipation(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Locked", true)
	require.NoError(t, err)
	q1 := env.addQuestion(t, survey.ID, "First?")
	q2 := env.addQuestion(t, survey.ID, "Second?")

	_, err = env.surveys.SetLock(ctx, owner, survey.ID, true)
	require.NoError(t, err)

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q1.ID, Answer: "yes"})
	require.NoError(t, err)

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q2.ID, Answer: "yes"})
	requireKind(t, err, KindForbidden)

	_, err = env.votes.Vote(ctx, other, VoteRequest{QuestionID: q2.ID, Answer: "no"})
	assert.NoError(t, err)
}

func TestVote_OptionResolution(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, Options{MultiChoice: true})
	survey, err := env.surveys.Create(ctx, owner, "Lunch", true)
	require.NoError(t, err)
	q, err := env.surveys.AddQuestion(ctx, owner, AddQuestionInput{
		SurveyID: survey.ID, Body: "Where?", Type: "multiple_choice", Options: []string{"Pizza", "Sushi", "Tacos"},
	})
	require.NoError(t, err)
	yn := env.addQuestion(t, survey.ID, "Hungry?")

	res, err := env.votes.Vote(ctx, voter, VoteRequest{OptionID: q.Options[1].ID})
	require.NoError(t, err)
	require.Len(t, res.Options, 3)
	assert.Equal(t, "Pizza", res.Options[0].Label)
	assert.Equal(t, int64(1), res.Options[1].VoteCount)

	// 旧请求里附带的 questionId 必须与选项一致
	_, err = env.votes.Vote(ctx, voter, VoteRequest{OptionID: q.Options[0].ID, QuestionID: yn.ID})
	requireKind(t, err, KindValidation)

	res, err = env.votes.Vote(ctx, voter, VoteRequest{OptionID: q.Options[2].ID, QuestionID: q.ID, SurveyID: survey.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Options[1].VoteCount)
	assert.Equal(t, int64(1), res.Options[2].VoteCount)

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q.ID, Answer: "yes"})
	requireKind(t, err, KindValidation)

	_, err = env.votes.Vote(ctx, nil, VoteRequest{OptionID: q.Options[0].ID})
	requireKind(t, err, KindAuthRequired)

	off := NewVoteService(env.store, Options{}, nil)
	_, err = off.Vote(ctx, voter, VoteRequest{OptionID: q.Options[0].ID})
	requireKind(t, err, KindValidation)
}

func TestVote_PublishesEvents(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Live", true)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Q?")

	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q.ID, Answer: "yes"})
	require.NoError(t, err)

	require.Len(t, env.events.events, 1)
	ev := env.events.events[0]
	assert.Equal(t, mq.EventQuestionUpdated, ev.Type)
	assert.Equal(t, survey.ID, ev.SurveyID)
	assert.Equal(t, q.ID, ev.QuestionID)
	assert.Equal(t, int64(1), ev.YesCount)
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	public, err := env.surveys.Create(ctx, owner, "Public", true)
	require.NoError(t, err)
	private, err := env.surveys.Create(ctx, owner, "Private", false)
	require.NoError(t, err)

	liked, count, err := env.surveys.ToggleLike(ctx, voter, public.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, int64(1), count)

	ok, err := env.surveys.IsLiked(ctx, voter, public.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	view, err := env.surveys.Get(ctx, voter, public.ID)
	require.NoError(t, err)
	assert.True(t, view.LikedByMe)
	assert.Equal(t, int64(1), view.LikeCount)

	favs, err := env.surveys.ListFavorites(ctx, voter)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, public.ID, favs[0].ID)

	liked, count, err = env.surveys.ToggleLike(ctx, voter, public.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, int64(0), count)

	_, _, err = env.surveys.ToggleLike(ctx, voter, private.ID)
	requireKind(t, err, KindNotFound)
	_, _, err = env.surveys.ToggleLike(ctx, nil, public.ID)
	requireKind(t, err, KindAuthRequired)
}

func TestListFavorites_AdminSeesPrivate(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	private, err := env.surveys.Create(ctx, owner, "Private", false)
	require.NoError(t, err)

	liked, _, err := env.surveys.ToggleLike(ctx, admin, private.ID)
	require.NoError(t, err)
	require.True(t, liked)

	favs, err := env.surveys.ListFavorites(ctx, admin)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, private.ID, favs[0].ID)

	// 点赞后被设为私有的问卷不再出现在普通用户的收藏中
	public, err := env.surveys.Create(ctx, owner, "Public", true)
	require.NoError(t, err)
	_, _, err = env.surveys.ToggleLike(ctx, voter, public.ID)
	require.NoError(t, err)
	_, err = env.surveys.SetVisibility(ctx, owner, public.ID, false)
	require.NoError(t, err)

	favs, err = env.surveys.ListFavorites(ctx, voter)
	require.NoError(t, err)
	assert.Empty(t, favs)
}

func TestListings(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		env.clock.Advance(time.Second)
		_, err := env.surveys.Create(ctx, owner, fmt.Sprintf("Public %02d", i), true)
		require.NoError(t, err)
	}
	env.clock.Advance(time.Second)
	_, err := env.surveys.Create(ctx, owner, "Private", false)
	require.NoError(t, err)

	page, err := env.surveys.ListPublic(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, page.Surveys, DefaultPageSize)
	assert.True(t, page.HasMore)
	assert.Equal(t, "Public 11", page.Surveys[0].Title)

	page, err = env.surveys.ListPublic(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Surveys, 2)
	assert.False(t, page.HasMore)

	page, err = env.surveys.ListPublic(ctx, math.MaxInt, MaxPageSize)
	require.NoError(t, err)
	assert.Equal(t, MaxPage, page.Page)
	assert.Empty(t, page.Surveys)
	assert.False(t, page.HasMore)

	mine, err := env.surveys.ListMine(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 13)
	assert.Equal(t, "Private", mine[0].Title)

	mine, err = env.surveys.ListMine(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestResults(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Results", true)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Popular?")
	quiet := env.addQuestion(t, survey.ID, "Quiet?")

	for i := 0; i < 20; i++ {
		answer := "no"
		if i%3 == 0 {
			answer = "yes"
		}
		user := &models.Principal{UserID: fmt.Sprintf("u%d", i)}
		_, err := env.votes.Vote(ctx, user, VoteRequest{QuestionID: q.ID, Answer: answer})
		require.NoError(t, err)
	}

	res, err := env.surveys.Results(ctx, nil, survey.ID)
	require.NoError(t, err)
	require.Len(t, res.Questions, 2)

	top := res.Questions[0]
	assert.Equal(t, q.ID, top.ID)
	assert.Equal(t, int64(20), top.Total)
	assert.Equal(t, int64(7), top.YesCount)
	assert.Equal(t, 35, top.YesPct)
	assert.Equal(t, 65, top.NoPct)
	assert.True(t, top.Popular)

	assert.Equal(t, quiet.ID, res.Questions[1].ID)
	assert.Equal(t, 0, res.Questions[1].YesPct)
	assert.False(t, res.Questions[1].Popular)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, `Team "sync", weekly`, true)
	require.NoError(t, err)
	env.addQuestion(t, survey.ID, "Ship on Friday?")
	env.addQuestion(t, survey.ID, `Use "tabs", or spaces?`)
	gone := env.addQuestion(t, survey.ID, "Deleted one")
	_, err = env.questions.Delete(ctx, owner, gone.ID)
	require.NoError(t, err)

	_, _, err = env.surveys.Export(ctx, other, survey.ID)
	requireKind(t, err, KindForbidden)
	_, _, err = env.surveys.Export(ctx, nil, survey.ID)
	requireKind(t, err, KindAuthRequired)

	_, data, err := env.surveys.Export(ctx, owner, survey.ID)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "survey_id,survey_title,question_id,question,yes_count,no_count,created_at", lines[0])
	assert.Contains(t, lines[1], `"Team ""sync"", weekly"`)
	assert.Contains(t, lines[2], `"Use ""tabs"", or spaces?"`)
	assert.Contains(t, lines[1], `,0,0,"`)
}

func TestEncodeCSV_Empty(t *testing.T) {
	data := EncodeCSV(&models.Survey{ID: "s"}, nil)
	assert.Equal(t, strings.Join(csvHeader, ","), string(data))
}

func TestHardDelete(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Doomed", true)
	require.NoError(t, err)
	env.addQuestion(t, survey.ID, "Q?")

	requireKind(t, env.surveys.Delete(ctx, other, survey.ID), KindForbidden)
	require.NoError(t, env.surveys.Delete(ctx, owner, survey.ID))

	_, err = env.surveys.UndoDelete(ctx, owner, survey.ID)
	requireKind(t, err, KindNotFound)
}

func TestAdminMetrics(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Public", true)
	require.NoError(t, err)
	_, err = env.surveys.Create(ctx, owner, "Private", false)
	require.NoError(t, err)
	q := env.addQuestion(t, survey.ID, "Q?")
	_, err = env.votes.Vote(ctx, voter, VoteRequest{QuestionID: q.ID, Answer: "yes"})
	require.NoError(t, err)
	_, err = env.votes.Vote(ctx, nil, VoteRequest{SurveyID: survey.ID, Answer: "no"})
	require.NoError(t, err)

	m, err := env.admin.Metrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.SurveysPublic)
	assert.Equal(t, int64(1), m.SurveysPrivate)
	assert.Equal(t, int64(1), m.TotalSurveyVotes)
	assert.Equal(t, int64(1), m.TotalQuestionVotes)
	assert.Len(t, m.Recent, 2)
}

func TestPurger_RunOnce(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	survey, err := env.surveys.Create(ctx, owner, "Old", true)
	require.NoError(t, err)
	keep, err := env.surveys.Create(ctx, owner, "Keep", true)
	require.NoError(t, err)
	_, err = env.surveys.SoftDelete(ctx, owner, survey.ID)
	require.NoError(t, err)

	purger := NewPurger(env.store, cache.NewLocalLocker(), env.clock, time.Hour, time.Minute)

	res, err := purger.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Surveys)

	env.clock.Advance(2 * time.Hour)
	res, err = purger.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Surveys)

	_, err = env.store.GetSurveyUnscoped(ctx, survey.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = env.store.GetSurvey(ctx, keep.ID)
	assert.NoError(t, err)
}
