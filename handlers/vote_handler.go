package handlers

import (
	"net/http"

	"yesno-backend/auth"
	"yesno-backend/service"

	"github.com/gin-gonic/gin"
)

// SubmitVote 投票：optionId 优先，其次 questionId，只带 surveyId 时为旧版整体投票
func (h *Handler) SubmitVote(c *gin.Context) {
	var req service.VoteRequest
	if !h.bind(c, &req, "invalid body") {
		return
	}

	res, err := h.votes.Vote(c.Request.Context(), auth.PrincipalFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"ok": true}
	if res.Question != nil {
		resp["question"] = res.Question
	}
	if res.Options != nil {
		resp["options"] = res.Options
	}
	if res.Survey != nil {
		resp["survey"] = res.Survey
	}
	c.JSON(http.StatusOK, resp)
}

// CheckInvite 邀请码尚未实现
func (h *Handler) CheckInvite(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"ok": false, "error": "Invite codes not implemented yet."})
}
