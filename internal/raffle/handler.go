package raffle

import (
	"net/http"
	"strconv"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 提供参与者前台和参与记录相关的HTTP接口
type Handler struct {
	svc *Service
}

// NewHandler 创建前台接口
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// GetProjectForUser 参与者查看项目详情
func (h *Handler) GetProjectForUser(c *gin.Context) {
	projectID, ok := paramID(c)
	if !ok {
		return
	}
	id, ok := user.MustIdentity(c)
	if !ok {
		return
	}
	view, err := h.svc.ViewProject(c.Request.Context(), id, projectID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetProjectForManager 项目创建者查看完整详情
func (h *Handler) GetProjectForManager(c *gin.Context) {
	projectID, ok := paramID(c)
	if !ok {
		return
	}
	id, ok := user.MustIdentity(c)
	if !ok {
		return
	}
	view, err := h.svc.ManagerView(c.Request.Context(), id, projectID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer 提交答案
func (h *Handler) SubmitAnswer(c *gin.Context) {
	id, ok := user.MustIdentity(c)
	if !ok {
		return
	}
	var in AnswerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "无效的请求: "+err.Error())
		return
	}
	view, err := h.svc.Answer(c.Request.Context(), id, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Draw 抽奖一次
func (h *Handler) Draw(c *gin.Context) {
	id, ok := user.MustIdentity(c)
	if !ok {
		return
	}
	var in DrawInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "无效的请求: "+err.Error())
		return
	}
	result, err := h.svc.Draw(c.Request.Context(), id, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListMyRecords 分页列出自己的参与记录
func (h *Handler) ListMyRecords(c *gin.Context) {
	id, ok := user.MustIdentity(c)
	if !ok {
		return
	}
	var page project.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, "无效的分页参数")
		return
	}
	result, err := h.svc.ListMyRecords(c.Request.Context(), id, page)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AcknowledgeClaim 标记奖品领取状态
func (h *Handler) AcknowledgeClaim(c *gin.Context) {
	recordID, ok := paramID(c)
	if !ok {
		return
	}
	id, ok := user.MustIdentity(c)
	if !ok {
		return
	}
	var in ClaimInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "无效的请求: "+err.Error())
		return
	}
	summary, err := h.svc.AcknowledgeClaim(c.Request.Context(), id, recordID, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
