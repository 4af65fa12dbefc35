package ginutil

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// QueryInt extracts an integer from query parameters with default value
func QueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// QueryPositiveInt is QueryInt that also falls back to defaultValue for values < 1
func QueryPositiveInt(c *gin.Context, key string, defaultValue int) int {
	if v := QueryInt(c, key, defaultValue); v >= 1 {
		return v
	}
	return defaultValue
}
