package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
)

// Services are the domain services the HTTP layer calls
type Services struct {
	Auth        service.IAuthService
	Users       service.IUserService
	Tags        service.ITagService
	Ingredients service.IIngredientService
	Recipes     service.IRecipeService
	Membership  service.IMembershipService
	Follows     service.IFollowService
	Shopping    service.IShoppingListService
}

// NewServices wires every service onto one database and image store
func NewServices(db *gorm.DB, images storage.ImageStore, jwtSecret string, tokenTTL time.Duration, revoker service.TokenRevoker) Services {
	return Services{
		Auth:        service.NewAuthService(db, jwtSecret, tokenTTL, revoker),
		Users:       service.NewUserService(db),
		Tags:        service.NewTagService(db),
		Ingredients: service.NewIngredientService(db),
		Recipes:     service.NewRecipeService(db, images),
		Membership:  service.NewMembershipService(db, images),
		Follows:     service.NewFollowService(db, images),
		Shopping:    service.NewShoppingListService(db),
	}
}

// Options tune the HTTP layer. Nil limiters disable rate limiting.
type Options struct {
	PageSize            int
	CreationLimiter     *middleware.RateLimiter
	ModificationLimiter *middleware.RateLimiter
}

// SetupAPI registers every /api/v1 route
func SetupAPI(router *gin.Engine, svc Services, opts Options) {
	if opts.PageSize <= 0 {
		opts.PageSize = 6
	}

	v1 := router.Group("/api/v1")
	{
		NewAuthHandler(svc.Auth).RegisterRoutes(v1)
		NewUserHandler(svc.Auth, svc.Users, svc.Follows, opts.PageSize).RegisterRoutes(v1)
		NewTagHandler(svc.Auth, svc.Tags).RegisterRoutes(v1)
		NewIngredientHandler(svc.Auth, svc.Ingredients).RegisterRoutes(v1)
		NewRecipeHandlerWithRateLimit(
			svc.Auth, svc.Recipes, svc.Membership, svc.Shopping, opts.PageSize,
			opts.CreationLimiter, opts.ModificationLimiter,
		).RegisterRoutes(v1)
	}
}
