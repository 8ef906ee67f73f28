package api

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

// pathID parses a positive numeric path parameter. Anything else cannot name a row.
func pathID(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		notFound(c)
		return 0, false
	}
	return uint(n), true
}

// queryBool accepts the truthy spellings browsers and the web client send.
func queryBool(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// recipesLimit reads ?recipes_limit=. A present value caps the embedded recipes, so 0 embeds
// none; missing or invalid means no cap.
func recipesLimit(c *gin.Context) int {
	v, present := c.GetQuery("recipes_limit")
	if !present {
		return service.AllRecipes
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return service.AllRecipes
	}
	return n
}
