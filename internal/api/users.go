package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// disabledUserActions are account-management endpoints of the reference client that
// this service does not implement.
var disabledUserActions = []string{
	"set_email",
	"activation",
	"resend_activation",
	"reset_password",
	"reset_password_confirm",
	"set_username",
	"reset_username",
	"reset_username_confirm",
}

type UserHandler struct {
	authService   service.IAuthService
	userService   service.IUserService
	followService service.IFollowService
	pageSize      int
}

func NewUserHandler(authService service.IAuthService, userService service.IUserService, followService service.IFollowService, pageSize int) *UserHandler {
	return &UserHandler{
		authService:   authService,
		userService:   userService,
		followService: followService,
		pageSize:      pageSize,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	required := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	users := router.Group("/users")
	{
		users.GET("", optional, h.ListUsers)
		users.POST("", h.Register)
		users.GET("/me", required, h.Me)
		users.POST("/set_password", required, h.SetPassword)
		users.GET("/subscriptions", required, h.Subscriptions)
		users.GET("/:id", optional, h.GetUser)
		users.PUT("/:id", methodNotAllowed)
		users.PATCH("/:id", methodNotAllowed)
		users.POST("/:id/subscribe", required, h.Subscribe)
		users.DELETE("/:id/subscribe", required, h.Unsubscribe)

		for _, action := range disabledUserActions {
			users.POST("/"+action, methodNotAllowed)
		}
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, ok := parsePage(c, h.pageSize)
	if !ok {
		notFound(c)
		return
	}

	users, total, err := h.userService.ListUsers(c.Request.Context(), middleware.UserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	if outOfRange(page, users) {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, users))
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, service.ToUserCreatedResponse(user))
}

func (h *UserHandler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	user, err := h.userService.GetUser(c.Request.Context(), userID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.authService.SetPassword(c.Request.Context(), middleware.UserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, ok := parsePage(c, h.pageSize)
	if !ok {
		notFound(c)
		return
	}

	subs, total, err := h.followService.Subscriptions(c.Request.Context(), middleware.UserID(c), page, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if outOfRange(page, subs) {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, newPage(c, page, total, subs))
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}

	sub, err := h.followService.Follow(c.Request.Context(), middleware.UserID(c), authorID, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.followService.Unfollow(c.Request.Context(), middleware.UserID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
