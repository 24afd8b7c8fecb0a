package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/constants"
)

// PaginationParams is one requested page of a list endpoint.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// GetPaginationParams reads page and page_size from the query string, the
// names list responses echo back. limit is accepted for page_size. Values
// out of range fall back to the defaults instead of failing the request.
func GetPaginationParams(c *gin.Context) PaginationParams {
	size, ok := c.GetQuery("page_size")
	if !ok {
		size = c.Query("limit")
	}
	return NewPaginationParams(atoiOrZero(c.Query("page")), atoiOrZero(size))
}

// NewPaginationParams clamps page and limit to the allowed range.
func NewPaginationParams(page, limit int) PaginationParams {
	page = max(page, constants.MinPageSize)
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	return PaginationParams{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
