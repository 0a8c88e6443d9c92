package handlers

import (
	"net/http"

	"yesno-backend/auth"
	"yesno-backend/service"

	"github.com/gin-gonic/gin"
)

// QuestionIDInput 只带问题ID的请求
type QuestionIDInput struct {
	QuestionID string `json:"questionId" validate:"required"`
}

// DeleteQuestion 软删除问题，返回删除快照与撤销截止时间
func (h *Handler) DeleteQuestion(c *gin.Context) {
	var input QuestionIDInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	q, err := h.questions.Delete(c.Request.Context(), auth.PrincipalFrom(c), input.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"question":  q,
		"undoUntil": service.UndoDeadline(q.DeletedAt, h.surveys.UndoWindow()),
	})
}

// UndoDeleteQuestion 撤销问题软删除
func (h *Handler) UndoDeleteQuestion(c *gin.Context) {
	var input QuestionIDInput
	if !h.bind(c, &input, "invalid body") {
		return
	}
	q, err := h.questions.UndoDelete(c.Request.Context(), auth.PrincipalFrom(c), input.QuestionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"question": q})
}
