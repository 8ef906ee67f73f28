package service

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines account and token operations
type IAuthService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *types.LoginRequest) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error
}

// IUserService defines read operations on user accounts
type IUserService interface {
	ListUsers(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error)
	GetUser(ctx context.Context, viewerID, userID uint) (*types.UserResponse, error)
}

// ITagService defines tag lookups
type ITagService interface {
	ListTags(ctx context.Context) ([]types.TagResponse, error)
	GetTag(ctx context.Context, id uint) (*types.TagResponse, error)
}

// IIngredientService defines ingredient lookups and search
type IIngredientService interface {
	SearchIngredients(ctx context.Context, name string) ([]types.IngredientResponse, error)
	GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error)
}

// IRecipeService defines recipe reads and author-only writes
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error)
	GetRecipe(ctx context.Context, viewerID, recipeID uint) (*types.RecipeResponse, error)
	UpdateRecipe(ctx context.Context, userID, recipeID uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error)
	DeleteRecipe(ctx context.Context, userID, recipeID uint) error
	ListRecipes(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error)
}

// IMembershipService toggles favorites and shopping cart entries
type IMembershipService interface {
	Add(ctx context.Context, kind MembershipKind, userID, recipeID uint) (*types.RecipeShortResponse, error)
	Remove(ctx context.Context, kind MembershipKind, userID, recipeID uint) error
}

// IFollowService manages subscriptions to authors
type IFollowService interface {
	Follow(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error)
	Unfollow(ctx context.Context, userID, authorID uint) error
	Subscriptions(ctx context.Context, userID uint, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error)
}

// IShoppingListService aggregates the shopping cart
type IShoppingListService interface {
	ShoppingList(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
}
