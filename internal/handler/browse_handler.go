package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/internal/service"
)

// BrowseHandler serves the initial payload of the browse page
type BrowseHandler struct {
	ruleService     service.RuleService
	categoryService service.CategoryService
}

// NewBrowseHandler browse 핸들러 생성
func NewBrowseHandler(ruleService service.RuleService, categoryService service.CategoryService) *BrowseHandler {
	return &BrowseHandler{ruleService: ruleService, categoryService: categoryService}
}

// Initial godoc
// @Summary      browse 초기 데이터
// @Description  First page for the URL filters plus all categories. page is ignored: a reload always starts at page 1.
// @Tags         browse
// @Produce      json
// @Param        sortBy    query  string  false  "newest | most-copied | top-voted"
// @Param        category  query  string  false  "카테고리 slug"
// @Param        search    query  string  false  "free text"
// @Success      200  {object}  common.APIResponse{data=domain.BrowseResponse}
// @Router       /browse [get]
func (h *BrowseHandler) Initial(c *gin.Context) {
	ctx := c.Request.Context()

	q := ruleQueryFromRequest(c)
	q.Page = 1
	q.Limit = 0
	q = h.ruleService.NormalizeQuery(q)

	page, err := h.ruleService.ListRules(ctx, q)
	if err != nil {
		writeServiceError(c, err, "Failed to fetch rules")
		return
	}
	categories, err := h.categoryService.ListCategories(ctx)
	if err != nil {
		writeServiceError(c, err, "Failed to fetch categories")
		return
	}

	category := q.Category
	if category == "" {
		category = domain.CategoryAll
	}

	common.SuccessResponse(c, domain.BrowseResponse{
		Items:      page.Items,
		Pagination: page.Pagination,
		Categories: categories,
		Filters: domain.BrowseFilters{
			Search:   q.Search,
			Category: category,
			SortBy:   q.SortBy,
		},
	}, nil)
}
