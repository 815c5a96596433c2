package user

import (
	"context"
	"strconv"
	"strings"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

var ErrMissingCredential = apperror.NotAuthenticated("缺少身份凭证")

// Verifier 把请求携带的凭证解析为身份
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// BearerToken 从 Authorization 头中取出 Bearer 令牌
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

// RequireAuth 要求请求携带有效的访问令牌，并把身份放入Gin上下文中。
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			apperror.Respond(c, ErrMissingCredential)
			return
		}
		id, err := v.Verify(c.Request.Context(), raw)
		if err != nil {
			apperror.Respond(c, err)
			return
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// SetIdentity 把身份放入Gin上下文
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// CurrentIdentity 取出 RequireAuth 设置的身份
func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

// MustIdentity 取出身份；路由没有挂 RequireAuth 时写出401并返回 false
func MustIdentity(c *gin.Context) (Identity, bool) {
	id, ok := CurrentIdentity(c)
	if !ok {
		apperror.Respond(c, ErrMissingCredential)
	}
	return id, ok
}

// SubjectKey 返回当前身份的ID字符串，供限流器使用
func SubjectKey(c *gin.Context) string {
	id, ok := CurrentIdentity(c)
	if !ok {
		return ""
	}
	return strconv.FormatUint(uint64(id.ID), 10)
}
