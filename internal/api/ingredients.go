package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

type IngredientHandler struct {
	authService       service.IAuthService
	ingredientService service.IIngredientService
}

func NewIngredientHandler(authService service.IAuthService, ingredientService service.IIngredientService) *IngredientHandler {
	return &IngredientHandler{authService: authService, ingredientService: ingredientService}
}

func (h *IngredientHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients", middleware.OptionalAuth(h.authService))
	{
		ingredients.GET("", h.SearchIngredients)
		ingredients.GET("/:id", h.GetIngredient)
	}
}

// SearchIngredients serves ?name=. A value the client encoded twice still starts with "%"
// after gin decodes it once; the service decodes it again.
func (h *IngredientHandler) SearchIngredients(c *gin.Context) {
	ingredients, err := h.ingredientService.SearchIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *IngredientHandler) GetIngredient(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ing, err := h.ingredientService.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}
