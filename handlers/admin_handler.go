package handlers

import (
	"net/http"

	"yesno-backend/auth"

	"github.com/gin-gonic/gin"
)

// SetVisibilityInput 设置可见性请求，is_public 必须是布尔值
type SetVisibilityInput struct {
	SurveyID string `json:"surveyId" validate:"required"`
	IsPublic *bool  `json:"is_public" validate:"required"`
}

// AdminMetrics 平台指标
func (h *Handler) AdminMetrics(c *gin.Context) {
	m, err := h.admin.Metrics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// SetVisibility 所有者或管理员设置问卷可见性
func (h *Handler) SetVisibility(c *gin.Context) {
	var input SetVisibilityInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	if _, err := h.surveys.SetVisibility(c.Request.Context(), auth.PrincipalFrom(c), input.SurveyID, *input.IsPublic); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RateLimitStats 限流统计
func (h *Handler) RateLimitStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.rateLimit.Stats())
}
