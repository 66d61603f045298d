package helpers

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ClampPage applies the default limit when none is given, caps it at max and
// floors skip at zero.
func ClampPage(limit, skip, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}

// ParsePaginationParams extracts limit and skip query parameters. Missing or
// malformed values come back as zero so that ClampPage applies the defaults.
func ParsePaginationParams(c *gin.Context) (limit, skip int) {
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(c.Query("skip")); err == nil {
		skip = v
	}
	return limit, skip
}

// ParseOptionalInt returns nil when the query parameter is absent or not a number.
func ParseOptionalInt(c *gin.Context, key string) *int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

// ParseOptionalBool returns nil when the query parameter is absent or not a boolean.
func ParseOptionalBool(c *gin.Context, key string) *bool {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
