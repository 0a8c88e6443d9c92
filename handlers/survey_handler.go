package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"yesno-backend/auth"
	"yesno-backend/logging"
	"yesno-backend/service"

	"github.com/gin-gonic/gin"
)

// CreateSurveyInput 创建问卷请求
type CreateSurveyInput struct {
	Title    string `json:"title"`
	IsPublic *bool  `json:"is_public"`
}

// SurveyIDInput 只带问卷ID的请求
type SurveyIDInput struct {
	SurveyID string `json:"surveyId" validate:"required"`
}

// RenameSurveyInput 重命名请求
type RenameSurveyInput struct {
	SurveyID string `json:"surveyId" validate:"required"`
	Title    string `json:"title" validate:"notblank"`
}

// AddQuestionInput 添加问题请求
type AddQuestionInput struct {
	SurveyID string   `json:"surveyId" validate:"required"`
	Body     string   `json:"body" validate:"notblank"`
	Type     string   `json:"type"`
	Options  []string `json:"options"`
}

// SetLockInput 设置锁定请求
type SetLockInput struct {
	SurveyID string `json:"surveyId" validate:"required"`
	Locked   *bool  `json:"locked" validate:"required"`
}

// CreateSurvey 创建问卷，is_public 默认为 true
func (h *Handler) CreateSurvey(c *gin.Context) {
	var input CreateSurveyInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}

	survey, err := h.surveys.Create(c.Request.Context(), auth.PrincipalFrom(c), input.Title, isPublic)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": survey})
}

// GetSurvey 问卷详情
func (h *Handler) GetSurvey(c *gin.Context) {
	view, err := h.surveys.Get(c.Request.Context(), auth.PrincipalFrom(c), c.Query("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RenameSurvey 修改标题
func (h *Handler) RenameSurvey(c *gin.Context) {
	var input RenameSurveyInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	survey, err := h.surveys.Rename(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID, input.Title)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": survey})
}

// DeleteSurvey 彻底删除问卷
func (h *Handler) DeleteSurvey(c *gin.Context) {
	var input SurveyIDInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	if err := h.surveys.Delete(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SoftDeleteSurvey 软删除问卷，返回撤销截止时间
func (h *Handler) SoftDeleteSurvey(c *gin.Context) {
	var input SurveyIDInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	survey, err := h.surveys.SoftDelete(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"survey":    survey,
		"undoUntil": service.UndoDeadline(survey.DeletedAt, h.surveys.UndoWindow()),
	})
}

// UndoDeleteSurvey 撤销软删除
func (h *Handler) UndoDeleteSurvey(c *gin.Context) {
	var input SurveyIDInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	if _, err := h.surveys.UndoDelete(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ToggleLike 切换点赞
func (h *Handler) ToggleLike(c *gin.Context) {
	var input SurveyIDInput
	if !h.bind(c, &input, "surveyId required") {
		return
	}
	liked, count, err := h.surveys.ToggleLike(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likeCount": count})
}

// IsLiked 当前用户是否已点赞
func (h *Handler) IsLiked(c *gin.Context) {
	liked, err := h.surveys.IsLiked(c.Request.Context(), auth.PrincipalFrom(c), c.Query("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// ExportSurvey 导出 CSV
func (h *Handler) ExportSurvey(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		respondError(c, service.Validation("missing id"))
		return
	}
	survey, data, err := h.surveys.Export(c.Request.Context(), auth.PrincipalFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="survey-%s.csv"`, survey.ID))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// AddQuestion 添加问题
func (h *Handler) AddQuestion(c *gin.Context) {
	var input AddQuestionInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	q, err := h.surveys.AddQuestion(c.Request.Context(), auth.PrincipalFrom(c), service.AddQuestionInput{
		SurveyID: input.SurveyID,
		Body:     input.Body,
		Type:     input.Type,
		Options:  input.Options,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": q})
}

// SetLock 设置参与后锁定
func (h *Handler) SetLock(c *gin.Context) {
	var input SetLockInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	survey, err := h.surveys.SetLock(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID, *input.Locked)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"survey": survey})
}

// SurveyResults 汇总结果
func (h *Handler) SurveyResults(c *gin.Context) {
	results, err := h.surveys.Results(c.Request.Context(), auth.PrincipalFrom(c), c.Query("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// ListMine 我的问卷
func (h *Handler) ListMine(c *gin.Context) {
	surveys, err := h.surveys.ListMine(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

// ListPublic 公开问卷分页，page 与 limit 非法时使用默认值
func (h *Handler) ListPublic(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultPageSize)))

	result, err := h.surveys.ListPublic(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListFavorites 我点赞的问卷
func (h *Handler) ListFavorites(c *gin.Context) {
	surveys, err := h.surveys.ListFavorites(c.Request.Context(), auth.PrincipalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"surveys": surveys})
}

// LiveResults 升级为 WebSocket 推送问卷实时结果
func (h *Handler) LiveResults(c *gin.Context) {
	survey, err := h.surveys.Find(c.Request.Context(), auth.PrincipalFrom(c), c.Query("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request, survey.ID); err != nil {
		// Upgrade 失败时已写回错误响应
		logging.Ctx(c.Request.Context()).Warn().Err(err).Str("survey_id", survey.ID).Msg("升级 WebSocket 失败")
	}
}
