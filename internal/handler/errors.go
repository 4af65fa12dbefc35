package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rulehub/rulehub-backend/internal/common"
)

// writeServiceError maps service sentinels to HTTP statuses
func writeServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, common.ErrRuleNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Rule not found", err)
	case errors.Is(err, common.ErrCategoryNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Category not found", err)
	case errors.Is(err, common.ErrNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Not found", err)
	case errors.Is(err, common.ErrSlugTaken):
		common.ErrorResponse(c, http.StatusConflict, "Slug already in use", err)
	case errors.Is(err, common.ErrInvalidInput):
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, common.ErrUnauthorized):
		common.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, common.ErrForbidden):
		common.ErrorResponse(c, http.StatusForbidden, "Forbidden", err)
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, fallback, err)
	}
}
