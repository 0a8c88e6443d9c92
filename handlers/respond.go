package handlers

import (
	"reflect"
	"strings"

	"yesno-backend/logging"
	"yesno-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// newValidator 请求体校验，额外注册 notblank：去掉空白后非空
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return !field.IsZero()
		}
		return strings.TrimSpace(field.String()) != ""
	})
	return v
}

// respondError 业务错误按分类映射状态码，消息原样返回
func respondError(c *gin.Context, err error) {
	se := service.AsError(err)
	if se.Kind == service.KindUpstream {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("请求处理失败")
	}
	c.JSON(se.Status(), gin.H{"error": se.Message})
}

// bind 解析并校验请求体，失败时返回 msg
func (h *Handler) bind(c *gin.Context, req interface{}, msg string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, service.Validation(msg))
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(c, service.Validation(msg))
		return false
	}
	return true
}
