package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
)

// MembershipKind selects the (user, recipe) collection being toggled.
type MembershipKind int

const (
	Favorites MembershipKind = iota
	ShoppingCart
)

func (k MembershipKind) String() string {
	if k == ShoppingCart {
		return "shopping cart"
	}
	return "favorites"
}

func (k MembershipKind) row(userID, recipeID uint) interface{} {
	pair := models.UserRecipe{UserID: userID, RecipeID: recipeID}
	if k == ShoppingCart {
		return &models.ShoppingCartEntry{UserRecipe: pair}
	}
	return &models.Favorite{UserRecipe: pair}
}

func (k MembershipKind) model() interface{} {
	if k == ShoppingCart {
		return &models.ShoppingCartEntry{}
	}
	return &models.Favorite{}
}

// MembershipService adds and removes recipes from a user's favorites or shopping cart.
type MembershipService struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewMembershipService(db *gorm.DB, images storage.ImageStore) *MembershipService {
	return &MembershipService{db: db, images: images}
}

// Add puts the recipe into the collection and returns its short view.
func (s *MembershipService) Add(ctx context.Context, kind MembershipKind, userID, recipeID uint) (*types.RecipeShortResponse, error) {
	db := s.db.WithContext(ctx)

	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	already := newValidationError(NonFieldErrors, fmt.Sprintf("Recipe is already in %s.", kind))

	var count int64
	if err := db.Model(kind.model()).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check %s: %w", kind, err)
	}
	if count > 0 {
		return nil, already
	}

	if err := db.Omit("User", "Recipe").Create(kind.row(userID, recipeID)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, already
		}
		return nil, fmt.Errorf("failed to add to %s: %w", kind, err)
	}

	resp := toRecipeShortResponse(&recipe, s.images)
	return &resp, nil
}

// Remove deletes the pair; a pair that does not exist is not found.
func (s *MembershipService) Remove(ctx context.Context, kind MembershipKind, userID, recipeID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(kind.model())
	if res.Error != nil {
		return fmt.Errorf("failed to remove from %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recipe is not in %s: %w", kind, ErrNotFound)
	}
	return nil
}
