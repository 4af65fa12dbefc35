package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rulehub/rulehub-backend/internal/config"
	"github.com/rulehub/rulehub-backend/internal/handler"
	"github.com/rulehub/rulehub-backend/internal/middleware"
	"github.com/rulehub/rulehub-backend/pkg/jwt"
)

// Handlers groups the handlers mounted under /api/v1
type Handlers struct {
	Rule     *handler.RuleHandler
	Category *handler.CategoryHandler
	Browse   *handler.BrowseHandler
	Admin    *handler.AdminHandler
}

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	h Handlers,
	jwtManager *jwt.Manager,
	redisClient *redis.Client,
	browseCfg config.BrowseConfig,
) {
	api := router.Group("/api/v1")

	copyLimit := middleware.RateLimit(redisClient,
		middleware.DefaultRateLimitConfig("copy", browseCfg.CopyLimit, browseCfg.LimitWindow))
	voteLimit := middleware.RateLimit(redisClient,
		middleware.DefaultRateLimitConfig("vote", browseCfg.VoteLimit, browseCfg.LimitWindow))

	// 공개 API
	api.GET("/browse", h.Browse.Initial)
	api.GET("/categories", h.Category.ListCategories)

	rules := api.Group("/rules")
	{
		rules.GET("", h.Rule.ListRules)
		rules.GET("/suggest", h.Rule.Suggest)
		rules.GET("/:slug", h.Rule.GetRule)
		rules.POST("/:slug/copy", copyLimit, h.Rule.CopyRule)
		rules.POST("/:slug/vote", voteLimit, h.Rule.VoteRule)
	}

	// 관리자 API (JWT + level >= 10)
	admin := api.Group("/admin", middleware.JWTAuth(jwtManager), middleware.RequireAdmin())
	{
		admin.POST("/rules", h.Admin.CreateRule)
		admin.PUT("/rules/:slug", h.Admin.UpdateRule)
		admin.DELETE("/rules/:slug", h.Admin.DeleteRule)
		admin.POST("/categories", h.Admin.CreateCategory)
		admin.POST("/search/reindex", h.Admin.Reindex)
		admin.GET("/audit-logs", h.Admin.ListAuditLogs)
	}
}
