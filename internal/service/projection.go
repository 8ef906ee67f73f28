package service

import (
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
)

// Membership flags are EXISTS sub-selects keyed on the viewer. Anonymous viewers pass 0,
// which no row carries, so the flags come back false without a separate code path.
const (
	isFavoritedSQL      = "EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = recipes.id AND f.user_id = ?) AS is_favorited"
	isInShoppingCartSQL = "EXISTS (SELECT 1 FROM shopping_cart_entries c WHERE c.recipe_id = recipes.id AND c.user_id = ?) AS is_in_shopping_cart"
	isSubscribedSQL     = "EXISTS (SELECT 1 FROM follows fl WHERE fl.author_id = users.id AND fl.user_id = ?) AS is_subscribed"
)

// withSubscribed selects users with is_subscribed computed for viewerID.
func withSubscribed(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Select("users.*, "+isSubscribedSQL, viewerID)
}

// recipeReadQuery loads everything the read view needs in one SELECT plus three preloads.
func recipeReadQuery(db *gorm.DB, viewerID uint) *gorm.DB {
	return db.Model(&models.Recipe{}).
		Select("recipes.*, "+isFavoritedSQL+", "+isInShoppingCartSQL, viewerID, viewerID).
		Preload("Author", func(tx *gorm.DB) *gorm.DB { return withSubscribed(tx, viewerID) }).
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.id") }).
		Preload("IngredientAmounts", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.ingredient_id") }).
		Preload("IngredientAmounts.Ingredient")
}

func toUserResponse(u *models.User) types.UserResponse {
	return types.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: u.IsSubscribed,
	}
}

// ToUserCreatedResponse is the registration view of a user.
func ToUserCreatedResponse(u *models.User) types.UserCreatedResponse {
	return types.UserCreatedResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func toTagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func toIngredientResponse(i *models.Ingredient) types.IngredientResponse {
	return types.IngredientResponse{ID: i.ID, Name: i.Name, MeasurementUnit: i.MeasurementUnit}
}

// toRecipeResponse maps a fully loaded recipe to the read view.
func toRecipeResponse(r *models.Recipe, images storage.ImageStore) types.RecipeResponse {
	resp := types.RecipeResponse{
		ID:               r.ID,
		Author:           toUserResponse(&r.Author),
		Tags:             make([]types.TagResponse, 0, len(r.Tags)),
		Ingredients:      make([]types.RecipeIngredientResponse, 0, len(r.IngredientAmounts)),
		IsFavorited:      r.IsFavorited,
		IsInShoppingCart: r.IsInShoppingCart,
		Name:             r.Name,
		Image:            images.URL(r.Image),
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		PubDate:          r.CreatedAt,
	}
	for i := range r.Tags {
		resp.Tags = append(resp.Tags, toTagResponse(&r.Tags[i]))
	}
	for _, ia := range r.IngredientAmounts {
		resp.Ingredients = append(resp.Ingredients, types.RecipeIngredientResponse{
			ID:              ia.IngredientID,
			Name:            ia.Ingredient.Name,
			MeasurementUnit: ia.Ingredient.MeasurementUnit,
			Amount:          ia.Amount,
		})
	}
	return resp
}

func toRecipeShortResponse(r *models.Recipe, images storage.ImageStore) types.RecipeShortResponse {
	return types.RecipeShortResponse{
		ID:          r.ID,
		Name:        r.Name,
		Image:       images.URL(r.Image),
		CookingTime: r.CookingTime,
	}
}
