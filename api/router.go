package api

import (
	"github.com/SlpAus/qa-raffle-backend/internal/platform/ratelimit"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/raffle"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handlers 汇总了各模块的HTTP处理器和路由所需的中间件依赖
type Handlers struct {
	Users    *user.Handler
	Projects *project.Handler
	Raffle   *raffle.Handler
	Verifier user.Verifier
	Limiter  *ratelimit.Limiter
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers) {
	api := router.Group("/api")

	// 账号相关的路由，注册、登录和刷新令牌不需要身份
	api.POST("/register", h.Users.Register)
	api.POST("/login", h.Users.Login)
	api.GET("/refresh/token", h.Users.RefreshToken)
	api.PATCH("/user/password", h.Users.ChangePassword)

	auth := api.Group("", user.RequireAuth(h.Verifier))
	{
		auth.GET("/user/me", h.Users.GetMe)
		auth.PATCH("/user/me", h.Users.UpdateMe)
		auth.DELETE("/user/me", h.Users.DeleteMe)

		// 管理者后台
		auth.POST("/project", h.Projects.CreateProject)
		auth.POST("/qa", h.Projects.CreateProject)
		auth.GET("/project/me", h.Projects.ListMyProjects)
		auth.GET("/project/:id", h.Raffle.GetProjectForManager)
		auth.PATCH("/project/:id", h.Projects.UpdateProject)
		auth.DELETE("/project/:id", h.Projects.DeleteProject)
		auth.POST("/project/:id/publish", h.Projects.PublishProject)

		auth.POST("/question", h.Projects.AddQuestion)
		auth.PATCH("/question/:id", h.Projects.UpdateQuestion)
		auth.DELETE("/question/:id", h.Projects.DeleteQuestion)

		auth.POST("/prize", h.Projects.AddPrize)
		auth.PATCH("/prize/:id", h.Projects.UpdatePrize)
		auth.DELETE("/prize/:id", h.Projects.DeletePrize)
		auth.POST("/prize/:id/image", h.Projects.UploadPrizeImage)

		// 参与者前台，答题和抽奖按用户限流
		auth.GET("/project/:id/user", h.Raffle.GetProjectForUser)
		auth.POST("/answer", h.Limiter.Middleware("answer", user.SubjectKey), h.Raffle.SubmitAnswer)
		auth.POST("/raffle", h.Limiter.Middleware("raffle", user.SubjectKey), h.Raffle.Draw)
		auth.GET("/record/me", h.Raffle.ListMyRecords)
		auth.PATCH("/record/:id/claim", h.Raffle.AcknowledgeClaim)
	}
}
