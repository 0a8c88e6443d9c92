package service

import (
	"errors"
	"net/http"
)

// Kind 业务错误分类
type Kind int

const (
	KindUpstream Kind = iota
	KindValidation
	KindAuthRequired
	KindForbidden
	KindNotFound
	KindWindowExpired
	KindNotDeleted
	KindNotImplemented
)

// Error 业务错误，Message 会原样返回给客户端
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status 对应的 HTTP 状态码
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindWindowExpired, KindNotDeleted:
		return http.StatusBadRequest
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Validation 参数错误
func Validation(msg string) *Error { return newError(KindValidation, msg) }

// AuthRequired 缺少凭证
func AuthRequired(msg string) *Error { return newError(KindAuthRequired, msg) }

// Forbidden 无权限
func Forbidden(msg string) *Error { return newError(KindForbidden, msg) }

// NotFound 不存在或不可见
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// NotImplemented 功能未实现
func NotImplemented(msg string) *Error { return newError(KindNotImplemented, msg) }

// Upstream 数据库等下游错误
func Upstream(err error) *Error {
	return &Error{Kind: KindUpstream, Message: "internal error", Err: err}
}

var (
	ErrSurveyNotFound   = NotFound("survey not found")
	ErrQuestionNotFound = NotFound("question not found")
	ErrOptionNotFound   = NotFound("option not found")
	ErrForbidden        = Forbidden("forbidden")
	ErrAuthRequired     = AuthRequired("auth required")
	ErrWindowExpired    = newError(KindWindowExpired, "undo window expired")
	ErrNotDeleted       = newError(KindNotDeleted, "not deleted")
	ErrSurveyLocked     = Forbidden("survey is locked after participation")
)

// KindOf 获取错误分类，非业务错误视为 Upstream
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUpstream
}

// AsError 转换为业务错误
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return Upstream(err)
}
