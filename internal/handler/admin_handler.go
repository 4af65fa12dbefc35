package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/middleware"
	"github.com/rulehub/rulehub-backend/internal/service"
	"github.com/rulehub/rulehub-backend/pkg/ginutil"
)

// AdminHandler 관리자 규칙/카테고리 관리 핸들러
type AdminHandler struct {
	ruleService     service.RuleService
	categoryService service.CategoryService
	searchService   service.SearchService
	auditLogger     *middleware.AuditLogger
}

// NewAdminHandler 관리자 핸들러 생성
func NewAdminHandler(ruleService service.RuleService, categoryService service.CategoryService, searchService service.SearchService) *AdminHandler {
	return &AdminHandler{
		ruleService:     ruleService,
		categoryService: categoryService,
		searchService:   searchService,
	}
}

// SetAuditLogger enables persisted audit records for admin writes
func (h *AdminHandler) SetAuditLogger(a *middleware.AuditLogger) {
	h.auditLogger = a
}

// CreateRule godoc
// @Summary      규칙 생성
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  domain.CreateRuleRequest  true  "rule"
// @Success      201  {object}  common.APIResponse{data=domain.RuleResponse}
// @Failure      409  {object}  common.APIResponse
// @Router       /admin/rules [post]
func (h *AdminHandler) CreateRule(c *gin.Context) {
	var req domain.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Failed to create rule")
		return
	}
	h.auditLogger.Record(c, "rule.create", "rule", rule.Slug)
	common.CreatedResponse(c, rule)
}

// UpdateRule godoc
// @Summary      규칙 수정
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path  string                    true  "rule slug"
// @Param        body  body  domain.UpdateRuleRequest  true  "fields to change"
// @Success      200  {object}  common.APIResponse{data=domain.RuleResponse}
// @Router       /admin/rules/{slug} [put]
func (h *AdminHandler) UpdateRule(c *gin.Context) {
	var req domain.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("slug"), &req)
	if err != nil {
		writeServiceError(c, err, "Failed to update rule")
		return
	}
	h.auditLogger.Record(c, "rule.update", "rule", rule.Slug)
	common.SuccessResponse(c, rule, nil)
}

// DeleteRule godoc
// @Summary      규칙 삭제
// @Tags         admin
// @Security     BearerAuth
// @Param        slug  path  string  true  "rule slug"
// @Success      204
// @Router       /admin/rules/{slug} [delete]
func (h *AdminHandler) DeleteRule(c *gin.Context) {
	slug := c.Param("slug")
	if err := h.ruleService.DeleteRule(c.Request.Context(), slug); err != nil {
		writeServiceError(c, err, "Failed to delete rule")
		return
	}
	h.auditLogger.Record(c, "rule.delete", "rule", slug)
	c.Status(http.StatusNoContent)
}

// CreateCategory godoc
// @Summary      카테고리 생성
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  domain.CreateCategoryRequest  true  "category"
// @Success      201  {object}  common.APIResponse{data=domain.CategoryResponse}
// @Router       /admin/categories [post]
func (h *AdminHandler) CreateCategory(c *gin.Context) {
	var req domain.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err, "Failed to create category")
		return
	}
	h.auditLogger.Record(c, "category.create", "category", category.Slug)
	common.CreatedResponse(c, category)
}

// Reindex godoc
// @Summary      자동완성 인덱스 재구축
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  common.APIResponse
// @Router       /admin/search/reindex [post]
func (h *AdminHandler) Reindex(c *gin.Context) {
	if !h.searchService.Enabled() {
		common.ErrorResponse(c, http.StatusServiceUnavailable, "Search is disabled", nil)
		return
	}
	n, err := h.searchService.Reindex(c.Request.Context())
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Reindex failed", err)
		return
	}
	h.auditLogger.Record(c, "search.reindex", "search", "")
	common.SuccessResponse(c, gin.H{"indexed": n}, nil)
}

// ListAuditLogs godoc
// @Summary      감사 로그 조회
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query  string  false  "관리자 ID"
// @Param        action   query  string  false  "rule.create | rule.update | rule.delete | category.create | search.reindex"
// @Param        page     query  int     false  "페이지 번호"  default(1)
// @Param        limit    query  int     false  "페이지당 항목 수"  default(20)
// @Success      200  {object}  common.APIResponse{data=domain.AuditLogPage}
// @Router       /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	page := ginutil.QueryPositiveInt(c, "page", 1)
	limit := ginutil.QueryPositiveInt(c, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	logs, total, err := h.auditLogger.List(c.Request.Context(), c.Query("user_id"), c.Query("action"), page, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to fetch audit logs", err)
		return
	}
	common.SuccessResponse(c, domain.AuditLogPage{
		Items:      logs,
		Pagination: domain.NewPagination(page, limit, total),
	}, nil)
}
