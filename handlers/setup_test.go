package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"yesno-backend/auth"
	"yesno-backend/config"
	"yesno-backend/handlers"
	"yesno-backend/middleware"
	"yesno-backend/models"
	"yesno-backend/mq"
	"yesno-backend/repository"
	"yesno-backend/routes"
	"yesno-backend/service"
	"yesno-backend/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret     = "handlers-test-secret-0123456789abcdef"
	testServiceKey = "handlers-test-service-key"
	adminUserID    = "admin-1"
)

var dbSeq atomic.Int64

// TestEnv 测试环境
type TestEnv struct {
	Router *gin.Engine
	DB     *gorm.DB
	Clock  *service.FakeClock
	Hub    *websocket.Hub
}

// SetupTestEnvironment 创建基于内存 SQLite 的完整路由
func SetupTestEnvironment(t *testing.T, opts service.Options) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	bus := mq.NewLocalBus()
	bus.Subscribe(hub.HandleEvent)

	store := repository.New(db)
	clock := service.NewFakeClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	authn := auth.NewAuthenticator(config.AuthConfig{
		JWTSecret:       testSecret,
		ServiceRoleKey:  testServiceKey,
		BootstrapAdmins: []string{adminUserID},
	}, store)
	limit := middleware.NewRateLimit(nil)

	h := handlers.New(handlers.Deps{
		Surveys:   service.NewSurveyService(store, clock, opts),
		Questions: service.NewQuestionService(store, clock, opts),
		Votes:     service.NewVoteService(store, opts, bus),
		Admin:     service.NewAdminService(store),
		Hub:       hub,
		RateLimit: limit,
		DB:        db,
		Version:   "test",
	})

	return &TestEnv{
		Router: routes.SetupRouter(config.ServerConfig{}, h, authn, limit),
		DB:     db,
		Clock:  clock,
		Hub:    hub,
	}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *TestEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// createSurvey 创建问卷并返回ID
func (e *TestEnv) createSurvey(t *testing.T, token, title string, public bool) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/surveys/create", token, gin.H{"title": title, "is_public": public})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	survey := decode(t, w)["survey"].(map[string]interface{})
	return survey["id"].(string)
}

// addQuestion 添加问题并返回ID
func (e *TestEnv) addQuestion(t *testing.T, token, surveyID, body string) string {
	t.Helper()
	e.Clock.Advance(time.Millisecond)
	w := e.do(t, http.MethodPost, "/api/surveys/add-question", token, gin.H{"surveyId": surveyID, "body": body})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	q := decode(t, w)["question"].(map[string]interface{})
	return q["id"].(string)
}
