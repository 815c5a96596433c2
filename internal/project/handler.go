package project

import (
	"net/http"
	"strconv"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/apperror"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// maxImageSize 是奖品图片的大小上限
const maxImageSize = 5 << 20

// Handler 提供管理者后台的HTTP接口
type Handler struct {
	svc *Service
}

// NewHandler 创建后台接口
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// paramID 解析路径中的ID参数
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// bind 取出身份并解析请求体
func bind(c *gin.Context, body interface{}) (user.Identity, bool) {
	id, ok := user.MustIdentity(c)
	if !ok {
		return id, false
	}
	if body != nil {
		if err := c.ShouldBindJSON(body); err != nil {
			badRequest(c, "无效的请求: "+err.Error())
			return id, false
		}
	}
	return id, true
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var in ProjectInput
	id, ok := bind(c, &in)
	if !ok {
		return
	}
	p, err := h.svc.CreateProject(c.Request.Context(), id, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p.View())
}

// ListMyProjects 分页列出自己创建的项目
func (h *Handler) ListMyProjects(c *gin.Context) {
	id, ok := bind(c, nil)
	if !ok {
		return
	}
	var page Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, "无效的分页参数")
		return
	}
	result, err := h.svc.ListMine(c.Request.Context(), id, page)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UpdateProject 修改项目
func (h *Handler) UpdateProject(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch ProjectPatch
	id, ok := bind(c, &patch)
	if !ok {
		return
	}
	p, err := h.svc.UpdateProject(c.Request.Context(), id, projectID, patch)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

// DeleteProject 删除项目
func (h *Handler) DeleteProject(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	id, ok := bind(c, nil)
	if !ok {
		return
	}
	if err := h.svc.DeleteProject(c.Request.Context(), id, projectID); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PublishProject 发布草稿项目
func (h *Handler) PublishProject(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	id, ok := bind(c, nil)
	if !ok {
		return
	}
	p, err := h.svc.Publish(c.Request.Context(), id, projectID)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

// AddQuestion 添加题目
func (h *Handler) AddQuestion(c *gin.Context) {
	var in QuestionInput
	id, ok := bind(c, &in)
	if !ok {
		return
	}
	q, err := h.svc.AddQuestion(c.Request.Context(), id, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, q.View(true))
}

// UpdateQuestion 修改题目
func (h *Handler) UpdateQuestion(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch QuestionPatch
	id, ok := bind(c, &patch)
	if !ok {
		return
	}
	q, err := h.svc.UpdateQuestion(c.Request.Context(), id, questionID, patch)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, q.View(true))
}

// DeleteQuestion 删除题目
func (h *Handler) DeleteQuestion(c *gin.Context) {
	questionID, ok := paramID(c, "id")
	if !ok {
		return
	}
	id, ok := bind(c, nil)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuestion(c.Request.Context(), id, questionID); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddPrize 添加奖品
func (h *Handler) AddPrize(c *gin.Context) {
	var in PrizeInput
	id, ok := bind(c, &in)
	if !ok {
		return
	}
	p, err := h.svc.AddPrize(c.Request.Context(), id, in)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p.View())
}

// UpdatePrize 修改奖品
func (h *Handler) UpdatePrize(c *gin.Context) {
	prizeID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var patch PrizePatch
	id, ok := bind(c, &patch)
	if !ok {
		return
	}
	p, err := h.svc.UpdatePrize(c.Request.Context(), id, prizeID, patch)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}

// DeletePrize 删除奖品
func (h *Handler) DeletePrize(c *gin.Context) {
	prizeID, ok := paramID(c, "id")
	if !ok {
		return
	}
	id, ok := bind(c, nil)
	if !ok {
		return
	}
	if err := h.svc.DeletePrize(c.Request.Context(), id, prizeID); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadPrizeImage 上传奖品图片，表单字段名为 file
func (h *Handler) UploadPrizeImage(c *gin.Context) {
	prizeID, ok := paramID(c, "id")
	if !ok {
		return
	}
	id, ok := bind(c, nil)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "缺少图片文件")
		return
	}
	if fh.Size > maxImageSize {
		badRequest(c, "图片不能超过5MB")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "无法读取图片文件")
		return
	}
	defer f.Close()

	p, err := h.svc.UploadPrizeImage(c.Request.Context(), id, prizeID, fh.Filename, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p.View())
}
