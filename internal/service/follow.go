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

// FollowService manages subscriptions between users and authors.
type FollowService struct {
	db     *gorm.DB
	images storage.ImageStore
}

func NewFollowService(db *gorm.DB, images storage.ImageStore) *FollowService {
	return &FollowService{db: db, images: images}
}

// AllRecipes disables the recipes_limit cap on subscription views.
const AllRecipes = -1

// Follow subscribes userID to authorID and returns the author in subscription view.
// A negative recipesLimit embeds every recipe; zero embeds none.
func (s *FollowService) Follow(ctx context.Context, userID, authorID uint, recipesLimit int) (*types.SubscriptionResponse, error) {
	db := s.db.WithContext(ctx)

	var author models.User
	if err := db.First(&author, authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("author %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load author: %w", err)
	}

	if userID == authorID {
		return nil, newValidationError(NonFieldErrors, "You cannot subscribe to yourself.")
	}

	already := newValidationError(NonFieldErrors, "You are already subscribed to this author.")

	var count int64
	if err := db.Model(&models.Follow{}).Where("user_id = ? AND author_id = ?", userID, authorID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check subscription: %w", err)
	}
	if count > 0 {
		return nil, already
	}

	if err := db.Omit("User", "Author").Create(&models.Follow{UserID: userID, AuthorID: authorID}).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, already
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	author.IsSubscribed = true
	return s.subscription(db, &author, recipesLimit)
}

// Unfollow removes the subscription; a missing one is not found.
func (s *FollowService) Unfollow(ctx context.Context, userID, authorID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return fmt.Errorf("failed to unsubscribe: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subscription %w", ErrNotFound)
	}
	return nil
}

// Subscriptions lists the authors userID follows, most recent subscription first.
func (s *FollowService) Subscriptions(ctx context.Context, userID uint, page types.PageRequest, recipesLimit int) ([]types.SubscriptionResponse, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Follow{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var authors []models.User
	err := withSubscribed(db.Model(&models.User{}), userID).
		Joins("JOIN follows ON follows.author_id = users.id AND follows.user_id = ?", userID).
		Order("follows.created_at DESC").
		Order("users.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := make([]types.SubscriptionResponse, 0, len(authors))
	for i := range authors {
		sub, err := s.subscription(db, &authors[i], recipesLimit)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sub)
	}
	return out, total, nil
}

func (s *FollowService) subscription(db *gorm.DB, author *models.User, recipesLimit int) (*types.SubscriptionResponse, error) {
	var count int64
	if err := db.Model(&models.Recipe{}).Where("author_id = ?", author.ID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	if recipesLimit != 0 {
		q := db.Where("author_id = ?", author.ID).Order("id DESC")
		if recipesLimit > 0 {
			q = q.Limit(recipesLimit)
		}
		if err := q.Find(&recipes).Error; err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}
	}

	resp := &types.SubscriptionResponse{
		UserResponse: toUserResponse(author),
		Recipes:      make([]types.RecipeShortResponse, 0, len(recipes)),
		RecipesCount: count,
	}
	for i := range recipes {
		resp.Recipes = append(resp.Recipes, toRecipeShortResponse(&recipes[i], s.images))
	}
	return resp, nil
}
