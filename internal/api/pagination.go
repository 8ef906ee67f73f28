package api

import (
	"math"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/types"
)

const maxPageSize = 100

// parsePage reads ?page= and ?limit=. A missing page means page 1; a missing or invalid limit
// falls back to the configured page size. ok is false when page is not a number, is below 1,
// or lies so far out that its offset cannot be represented.
func parsePage(c *gin.Context, defaultLimit int) (types.PageRequest, bool) {
	page := types.PageRequest{Page: 1, Limit: defaultLimit}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page.Limit = n
		}
	}
	if page.Limit > maxPageSize {
		page.Limit = maxPageSize
	}

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > math.MaxInt/page.Limit {
			return page, false
		}
		page.Page = n
	}
	return page, true
}

// newPage builds the paginated envelope with absolute next/previous links.
func newPage[T any](c *gin.Context, page types.PageRequest, total int64, results []T) types.Page[T] {
	if results == nil {
		results = []T{}
	}
	out := types.Page[T]{Count: total, Results: results}
	if int64(page.Page*page.Limit) < total {
		out.Next = pageURL(c, page.Page+1)
	}
	if page.Page > 1 {
		out.Previous = pageURL(c, page.Page-1)
	}
	return out
}

func pageURL(c *gin.Context, n int) *string {
	u := absoluteURL(c)
	q := u.Query()
	if n == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(n))
	}
	u.RawQuery = q.Encode()
	s := u.String()
	return &s
}

func absoluteURL(c *gin.Context) *url.URL {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	u := *c.Request.URL
	u.Scheme = scheme
	u.Host = c.Request.Host
	return &u
}

// outOfRange reports a page past the last one. The first page is always valid, even when empty.
func outOfRange[T any](page types.PageRequest, results []T) bool {
	return page.Page > 1 && len(results) == 0
}
