package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rulehub/rulehub-backend/internal/common"
	"github.com/rulehub/rulehub-backend/internal/service"
)

// CategoryHandler 카테고리 핸들러
type CategoryHandler struct {
	categoryService service.CategoryService
}

// NewCategoryHandler 카테고리 핸들러 생성
func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// ListCategories godoc
// @Summary      카테고리 목록 (published rule 수 포함)
// @Tags         categories
// @Produce      json
// @Success      200  {object}  common.APIResponse{data=[]domain.CategoryResponse}
// @Router       /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	categories, err := h.categoryService.ListCategories(c.Request.Context())
	if err != nil {
		writeServiceError(c, err, "Failed to fetch categories")
		return
	}
	common.SuccessResponse(c, categories, nil)
}
