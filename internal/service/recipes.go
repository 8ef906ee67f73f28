package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db        *gorm.DB
	images    storage.ImageStore
	validator *validation.Validator
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images storage.ImageStore) *RecipeService {
	return &RecipeService{
		db:        db,
		images:    images,
		validator: validation.New(),
	}
}

// CreateRecipe validates the write view, stores the image, and persists the recipe
// with its tags and ingredient amounts in one transaction.
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error) {
	db := s.db.WithContext(ctx)

	w, err := s.prepareRecipeWrite(ctx, db, authorID, 0, req, true)
	if err != nil {
		return nil, err
	}

	key := storage.NewKey(w.image.Ext)
	if err := s.images.Save(ctx, key, w.image.Data, w.image.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        req.Name,
		Text:        req.Text,
		Image:       key,
		CookingTime: req.CookingTime,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, &recipe, w)
	})
	if err != nil {
		s.discardImage(ctx, key)
		return nil, translateRecipeWriteError(err)
	}

	logger.Info("recipe created", zap.Uint("recipe_id", recipe.ID), zap.Uint("author_id", authorID))
	return s.GetRecipe(ctx, authorID, recipe.ID)
}

// UpdateRecipe replaces the recipe fields and both association sets. Only the author may call it.
// The image is optional here; when a new one is sent the old one is removed after commit.
func (s *RecipeService) UpdateRecipe(ctx context.Context, userID, recipeID uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error) {
	db := s.db.WithContext(ctx)

	recipe, err := s.loadOwned(db, userID, recipeID)
	if err != nil {
		return nil, err
	}

	w, err := s.prepareRecipeWrite(ctx, db, recipe.AuthorID, recipe.ID, req, false)
	if err != nil {
		return nil, err
	}

	oldKey, newKey := recipe.Image, ""
	if w.image != nil {
		newKey = storage.NewKey(w.image.Ext)
		if err := s.images.Save(ctx, newKey, w.image.Data, w.image.ContentType); err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}

	updates := map[string]interface{}{
		"name":         req.Name,
		"text":         req.Text,
		"cooking_time": req.CookingTime,
	}
	if newKey != "" {
		updates["image"] = newKey
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return err
		}
		return replaceAssociations(tx, recipe, w)
	})
	if err != nil {
		if newKey != "" {
			s.discardImage(ctx, newKey)
		}
		return nil, translateRecipeWriteError(err)
	}
	if newKey != "" {
		s.discardImage(ctx, oldKey)
	}

	return s.GetRecipe(ctx, userID, recipe.ID)
}

// DeleteRecipe removes the recipe and every row that points at it, then its image.
// Tags and ingredients are shared reference data and stay.
func (s *RecipeService) DeleteRecipe(ctx context.Context, userID, recipeID uint) error {
	db := s.db.WithContext(ctx)

	recipe, err := s.loadOwned(db, userID, recipeID)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Favorite{}, &models.ShoppingCartEntry{}, &models.IngredientInRecipe{}} {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(recipe).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.discardImage(ctx, recipe.Image)
	logger.Info("recipe deleted", zap.Uint("recipe_id", recipe.ID), zap.Uint("author_id", userID))
	return nil
}

// GetRecipe returns the read view of one recipe for viewerID (0 for anonymous).
func (s *RecipeService) GetRecipe(ctx context.Context, viewerID, recipeID uint) (*types.RecipeResponse, error) {
	var recipe models.Recipe
	err := recipeReadQuery(s.db.WithContext(ctx), viewerID).
		Where("recipes.id = ?", recipeID).
		Take(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}

	resp := toRecipeResponse(&recipe, s.images)
	return &resp, nil
}

// ListRecipes returns one page of recipes, newest first, and the total matching the filter.
func (s *RecipeService) ListRecipes(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	db := s.db.WithContext(ctx)
	scope := recipeFilterScope(filter, viewerID)

	var total int64
	if err := db.Model(&models.Recipe{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := recipeReadQuery(db, viewerID).
		Scopes(scope).
		Order("recipes.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	out := make([]types.RecipeResponse, 0, len(recipes))
	for i := range recipes {
		out = append(out, toRecipeResponse(&recipes[i], s.images))
	}
	return out, total, nil
}

// recipeFilterScope applies the list filters. Membership filters for an anonymous
// viewer match nothing, since viewer 0 owns no favorites or cart entries.
func recipeFilterScope(f types.RecipeFilter, viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(f.TagSlugs) > 0 {
			db = db.Where("recipes.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
				Table("recipe_tags").
				Select("recipe_tags.recipe_id").
				Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
				Where("tags.slug IN ?", f.TagSlugs))
		}
		if f.AuthorID != 0 {
			db = db.Where("recipes.author_id = ?", f.AuthorID)
		}
		if f.IsFavorited {
			db = db.Where("recipes.id IN (SELECT recipe_id FROM favorites WHERE user_id = ?)", viewerID)
		}
		if f.IsInShoppingCart {
			db = db.Where("recipes.id IN (SELECT recipe_id FROM shopping_cart_entries WHERE user_id = ?)", viewerID)
		}
		return db
	}
}

// loadOwned fetches a recipe and enforces that userID authored it.
func (s *RecipeService) loadOwned(db *gorm.DB, userID, recipeID uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := db.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	if recipe.AuthorID != userID {
		return nil, ErrForbidden
	}
	return &recipe, nil
}

// replaceAssociations makes the tag set and ingredient rows match w exactly.
func replaceAssociations(tx *gorm.DB, recipe *models.Recipe, w *recipeWrite) error {
	if err := tx.Model(recipe).Association("Tags").Replace(w.tags); err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}

	if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.IngredientInRecipe{}).Error; err != nil {
		return fmt.Errorf("failed to clear ingredients: %w", err)
	}
	rows := make([]models.IngredientInRecipe, len(w.ingredients))
	for i, ing := range w.ingredients {
		rows[i] = models.IngredientInRecipe{RecipeID: recipe.ID, IngredientID: ing.IngredientID, Amount: ing.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to set ingredients: %w", err)
	}
	return nil
}

// translateRecipeWriteError turns constraint races into the same errors the pre-checks give.
func translateRecipeWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return newValidationError("name", msgDuplicateRecipeName)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return newValidationError(NonFieldErrors, "A referenced tag or ingredient no longer exists.")
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return newValidationError(NonFieldErrors, "Cooking time and amounts must be positive.")
	default:
		return fmt.Errorf("failed to save recipe: %w", err)
	}
}

func (s *RecipeService) discardImage(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete recipe image", zap.String("key", key), zap.Error(err))
	}
}
