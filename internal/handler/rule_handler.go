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

// RuleHandler 규칙 조회/참여 핸들러
type RuleHandler struct {
	ruleService   service.RuleService
	searchService service.SearchService
}

// NewRuleHandler 규칙 핸들러 생성
func NewRuleHandler(ruleService service.RuleService, searchService service.SearchService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService, searchService: searchService}
}

// ruleQueryFromRequest reads page, limit, sortBy, category and search.
// Missing or invalid numbers become 0 and are defaulted by the service.
func ruleQueryFromRequest(c *gin.Context) domain.RuleQuery {
	return domain.RuleQuery{
		Page:     ginutil.QueryInt(c, "page", 0),
		Limit:    ginutil.QueryInt(c, "limit", 0),
		SortBy:   domain.SortKey(c.Query("sortBy")),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
}

// ListRules godoc
// @Summary      규칙 목록 조회
// @Description  Published rules filtered by category and free text, one page at a time
// @Tags         rules
// @Produce      json
// @Param        page      query  int     false  "페이지 번호"  default(1)
// @Param        limit     query  int     false  "페이지당 항목 수"  default(12)
// @Param        sortBy    query  string  false  "newest | most-copied | top-voted"  default(newest)
// @Param        category  query  string  false  "카테고리 slug (all = 전체)"
// @Param        search    query  string  false  "title/description/content substring"
// @Success      200  {object}  common.APIResponse{data=domain.RulePage}
// @Router       /rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	page, err := h.ruleService.ListRules(c.Request.Context(), ruleQueryFromRequest(c))
	if err != nil {
		writeServiceError(c, err, "Failed to fetch rules")
		return
	}
	common.SuccessResponse(c, page, nil)
}

// GetRule godoc
// @Summary      규칙 상세 조회
// @Tags         rules
// @Produce      json
// @Param        slug  path  string  true  "rule slug"
// @Success      200  {object}  common.APIResponse{data=domain.RuleResponse}
// @Failure      404  {object}  common.APIResponse
// @Router       /rules/{slug} [get]
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.ruleService.GetRule(c.Request.Context(), c.Param("slug"), c.ClientIP())
	if err != nil {
		writeServiceError(c, err, "Failed to fetch rule")
		return
	}
	middleware.RecordEngagement(string(domain.EngagementView))
	common.SuccessResponse(c, rule, nil)
}

// CopyRule godoc
// @Summary      규칙 복사 기록
// @Tags         rules
// @Produce      json
// @Param        slug  path  string  true  "rule slug"
// @Success      200  {object}  common.APIResponse{data=domain.EngagementResponse}
// @Failure      404  {object}  common.APIResponse
// @Failure      429  {object}  common.APIResponse
// @Router       /rules/{slug}/copy [post]
func (h *RuleHandler) CopyRule(c *gin.Context) {
	resp, err := h.ruleService.CopyRule(c.Request.Context(), c.Param("slug"), c.ClientIP())
	if err != nil {
		writeServiceError(c, err, "Failed to record copy")
		return
	}
	middleware.RecordEngagement(string(domain.EngagementCopy))
	common.SuccessResponse(c, resp, nil)
}

// VoteRule godoc
// @Summary      규칙 투표
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        slug  path  string              true  "rule slug"
// @Param        body  body  domain.VoteRequest  true  "direction: up | down"
// @Success      200  {object}  common.APIResponse{data=domain.EngagementResponse}
// @Failure      400  {object}  common.APIResponse
// @Failure      404  {object}  common.APIResponse
// @Router       /rules/{slug}/vote [post]
func (h *RuleHandler) VoteRule(c *gin.Context) {
	var req domain.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid request", err)
		return
	}

	resp, err := h.ruleService.VoteRule(c.Request.Context(), c.Param("slug"), req.Direction, c.ClientIP())
	if err != nil {
		writeServiceError(c, err, "Failed to record vote")
		return
	}
	if req.Direction == domain.VoteUp {
		middleware.RecordEngagement(string(domain.EngagementUpvote))
	} else {
		middleware.RecordEngagement(string(domain.EngagementDownvote))
	}
	common.SuccessResponse(c, resp, nil)
}

// Suggest godoc
// @Summary      규칙 제목 자동완성
// @Tags         rules
// @Produce      json
// @Param        q     query  string  true   "prefix"
// @Param        size  query  int     false  "max suggestions"  default(8)
// @Success      200  {object}  common.APIResponse{data=[]string}
// @Router       /rules/suggest [get]
func (h *RuleHandler) Suggest(c *gin.Context) {
	size := ginutil.QueryInt(c, "size", service.DefaultSuggestSize)
	suggestions, err := h.searchService.Suggest(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Suggest failed", err)
		return
	}
	common.SuccessResponse(c, suggestions, nil)
}
