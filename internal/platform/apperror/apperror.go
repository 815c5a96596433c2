// Package apperror 定义了业务层统一使用的错误类别，以及它们到HTTP状态码的映射。
package apperror

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

// Kind 是错误的类别
type Kind int

const (
	KindInternal Kind = iota
	KindNotAuthenticated
	KindNoPermission
	KindNotFound
	KindInvalidState
	KindConflict
	KindTooManyRequests
)

func (k Kind) String() string {
	switch k {
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindNoPermission:
		return "no_permission"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// Error 是携带类别的业务错误，可以包装一个底层原因。
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New 创建一个指定类别的错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap 创建一个指定类别、包装了底层原因的错误
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotAuthenticated(message string) *Error { return New(KindNotAuthenticated, message) }
func NoPermission(message string) *Error     { return New(KindNoPermission, message) }
func NotFound(message string) *Error         { return New(KindNotFound, message) }
func InvalidState(message string) *Error     { return New(KindInvalidState, message) }
func Conflict(message string) *Error         { return New(KindConflict, message) }

// KindOf 返回错误链上第一个 *Error 的类别；没有时视为内部错误。
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误链上是否存在指定类别的 *Error。
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 返回错误类别对应的HTTP状态码
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindNoPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Respond 把错误写成 {"error": "..."} 响应并中止请求。
// 内部错误只记录日志，不向客户端暴露细节。
func Respond(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind == KindInternal {
		logger.Errorf("%s %s 处理失败: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}
	if appErr.Kind == KindNotAuthenticated {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(HTTPStatus(appErr.Kind), gin.H{"error": appErr.Message})
}
