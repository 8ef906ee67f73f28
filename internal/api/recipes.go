package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type RecipeHandler struct {
	authService         service.IAuthService
	recipeService       service.IRecipeService
	membershipService   service.IMembershipService
	shoppingService     service.IShoppingListService
	pageSize            int
	creationLimiter     *middleware.RateLimiter
	modificationLimiter *middleware.RateLimiter
}

func NewRecipeHandler(
	authService service.IAuthService,
	recipeService service.IRecipeService,
	membershipService service.IMembershipService,
	shoppingService service.IShoppingListService,
	pageSize int,
) *RecipeHandler {
	return &RecipeHandler{
		authService:       authService,
		recipeService:     recipeService,
		membershipService: membershipService,
		shoppingService:   shoppingService,
		pageSize:          pageSize,
	}
}

// NewRecipeHandlerWithRateLimit creates a recipe handler that limits creation and edits
func NewRecipeHandlerWithRateLimit(
	authService service.IAuthService,
	recipeService service.IRecipeService,
	membershipService service.IMembershipService,
	shoppingService service.IShoppingListService,
	pageSize int,
	creationLimiter, modificationLimiter *middleware.RateLimiter,
) *RecipeHandler {
	h := NewRecipeHandler(authService, recipeService, membershipService, shoppingService, pageSize)
	h.creationLimiter = creationLimiter
	h.modificationLimiter = modificationLimiter
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	create := []gin.HandlerFunc{required}
	if h.creationLimiter != nil {
		create = append(create, h.creationLimiter.RateLimitMiddleware())
	}
	modify := []gin.HandlerFunc{required}
	if h.modificationLimiter != nil {
		modify = append(modify, h.modificationLimiter.PerRecipeRateLimitMiddleware())
	}

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optional, h.ListRecipes)
		recipes.POST("", append(create, h.CreateRecipe)...)
		recipes.GET("/download_shopping_cart", required, h.DownloadShoppingCart)
		recipes.GET("/:id", optional, h.GetRecipe)
		recipes.PUT("/:id", append(modify, h.UpdateRecipe)...)
		recipes.PATCH("/:id", append(modify, h.UpdateRecipe)...)
		recipes.DELETE("/:id", required, h.DeleteRecipe)
		recipes.POST("/:id/favorite", required, h.membership(service.Favorites, true))
		recipes.DELETE("/:id/favorite", required, h.membership(service.Favorites, false))
		recipes.POST("/:id/shopping_cart", required, h.membership(service.ShoppingCart, true))
		recipes.DELETE("/:id/shopping_cart", required, h.membership(service.ShoppingCart, false))
	}
}

// ListRecipes serves the paginated list. Filters: ?tags=<slug> (repeatable),
// ?author=<id>, ?is_favorited=1, ?is_in_shopping_cart=1.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, ok := parsePage(c, h.pageSize)
	if !ok {
		notFound(c)
		return
	}

	filter := types.RecipeFilter{
		IsFavorited:      queryBool(c, "is_favorited"),
		IsInShoppingCart: queryBool(c, "is_in_shopping_cart"),
	}
	for _, v := range c.QueryArray("tags") {
		for _, slug := range strings.Split(v, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				filter.TagSlugs = append(filter.TagSlugs, slug)
			}
		}
	}
	if v := c.Query("author"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:  "validation failed",
				Fields: map[string][]string{"author": {"Enter a valid user id."}},
			})
			return
		}
		filter.AuthorID = uint(id)
	}

	recipes, total, err := h.recipeService.ListRecipes(c.Request.Context(), middleware.UserID(c), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	if outOfRange(page, recipes) {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, recipes))
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecipeWrites.WithLabelValues("create").Inc()
	c.JSON(http.StatusCreated, recipe)
}

// UpdateRecipe serves both PUT and PATCH. Either way tags and ingredients must be sent
// in full; the image may be omitted to keep the current one.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req types.RecipeWriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), middleware.UserID(c), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecipeWrites.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.recipeService.DeleteRecipe(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	metrics.RecipeWrites.WithLabelValues("delete").Inc()
	c.Status(http.StatusNoContent)
}

// membership builds the add (POST) or remove (DELETE) handler for favorites and the cart.
func (h *RecipeHandler) membership(kind service.MembershipKind, add bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		userID := middleware.UserID(c)

		if !add {
			if err := h.membershipService.Remove(c.Request.Context(), kind, userID, id); err != nil {
				respondError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
			return
		}

		short, err := h.membershipService.Add(c.Request.Context(), kind, userID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, short)
	}
}

func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", formatTXT))
	if format != formatTXT && format != formatCSV {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Fields: map[string][]string{"format": {"Supported formats are txt and csv."}},
		})
		return
	}

	items, err := h.shoppingService.ShoppingList(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	body, contentType, err := renderShoppingList(items, format)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.ShoppingListDownloads.WithLabelValues(format).Inc()
	c.Header("Content-Disposition", `attachment; filename="shopping_list.`+format+`"`)
	c.Data(http.StatusOK, contentType, body)
}
