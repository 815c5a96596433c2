package user

import (
	"net/http"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

// Handler 提供账号相关的HTTP接口
type Handler struct {
	svc *Service
}

// NewHandler 创建账号接口
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "无效的请求: " + err.Error()})
}

// Register 注册一个新用户，用户名必须唯一
func (h *Handler) Register(c *gin.Context) {
	var in RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, u.ToResponse())
}

type loginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login 登录并获取访问令牌和刷新令牌，同时接受表单和JSON
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RefreshToken 用 Authorization 头中的刷新令牌换取新的访问令牌
func (h *Handler) RefreshToken(c *gin.Context) {
	raw := BearerToken(c)
	if raw == "" {
		apperror.Respond(c, ErrInvalidRefreshToken)
		return
	}
	result, err := h.svc.Refresh(c.Request.Context(), raw)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMe 返回当前登录用户的信息
func (h *Handler) GetMe(c *gin.Context) {
	id, ok := MustIdentity(c)
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), id.ID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

// UpdateMe 修改当前登录用户的用户名和联系方式
func (h *Handler) UpdateMe(c *gin.Context) {
	id, ok := MustIdentity(c)
	if !ok {
		return
	}
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.svc.Update(c.Request.Context(), id.ID, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

// DeleteMe 注销当前登录用户
func (h *Handler) DeleteMe(c *gin.Context) {
	id, ok := MustIdentity(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id.ID); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangePassword 不需要登录，提供用户名、原密码和新密码即可修改
func (h *Handler) ChangePassword(c *gin.Context) {
	var in ChangePasswordInput
	if err := c.ShouldBind(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.ChangePassword(c.Request.Context(), in); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "密码已修改"})
}
