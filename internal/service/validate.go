package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/storage"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// MaxAmount is the largest ingredient amount a recipe may list.
const MaxAmount = 32767

const (
	msgNoIngredients        = "At least one ingredient is required."
	msgDuplicateIngredients = "Ingredients must not repeat."
	msgAmountPositive       = "Amount must be greater than 0."
	msgAmountTooLarge       = "Amount must not exceed 32767."
	msgNoTags               = "At least one tag is required."
	msgDuplicateTags        = "Tags must not repeat."
	msgDuplicateRecipeName  = "You already have a recipe with this name."
	msgInvalidImage         = "Upload a valid image as a base64 data URI."
	msgRequired             = "This field is required."
)

// recipeWrite is a validated write request resolved to models.
type recipeWrite struct {
	tags        []models.Tag
	ingredients []models.IngredientInRecipe
	image       *storage.Image
}

// prepareRecipeWrite runs every per-field rule, then resolves tag and ingredient IDs.
// recipeID is 0 on create; it excludes the recipe itself from the name uniqueness check.
func (s *RecipeService) prepareRecipeWrite(ctx context.Context, db *gorm.DB, authorID, recipeID uint, req *types.RecipeWriteRequest, imageRequired bool) (*recipeWrite, error) {
	errs := s.validator.Validate(req)
	if errs == nil {
		errs = validation.FieldErrors{}
	}

	ingredientIDs := checkIngredientInputs(req.Ingredients, errs)
	tagIDs := checkTagInputs(req.Tags, errs)

	w := &recipeWrite{}
	switch {
	case req.Image != "":
		img, err := storage.DecodeDataURI(req.Image)
		if err != nil {
			errs.Add("image", msgInvalidImage)
		}
		w.image = img
	case imageRequired:
		errs.Add("image", msgRequired)
	}

	if len(ingredientIDs) > 0 {
		var found []models.Ingredient
		if err := db.Where("id IN ?", ingredientIDs).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("failed to load ingredients: %w", err)
		}
		known := make(map[uint]bool, len(found))
		for _, ing := range found {
			known[ing.ID] = true
		}
		for _, in := range req.Ingredients {
			if !known[in.ID] {
				errs.Add("ingredients", fmt.Sprintf("Ingredient with id %d does not exist.", in.ID))
				continue
			}
			w.ingredients = append(w.ingredients, models.IngredientInRecipe{IngredientID: in.ID, Amount: in.Amount})
		}
	}

	if len(tagIDs) > 0 {
		if err := db.Where("id IN ?", tagIDs).Order("id").Find(&w.tags).Error; err != nil {
			return nil, fmt.Errorf("failed to load tags: %w", err)
		}
		known := make(map[uint]bool, len(w.tags))
		for _, t := range w.tags {
			known[t.ID] = true
		}
		for _, id := range tagIDs {
			if !known[id] {
				errs.Add("tags", fmt.Sprintf("Tag with id %d does not exist.", id))
			}
		}
	}

	if req.Name != "" {
		var count int64
		q := db.Model(&models.Recipe{}).Where("author_id = ? AND name = ?", authorID, req.Name)
		if recipeID != 0 {
			q = q.Where("id <> ?", recipeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check recipe name: %w", err)
		}
		if count > 0 {
			errs.Add("name", msgDuplicateRecipeName)
		}
	}

	if err := asError(errs); err != nil {
		return nil, err
	}
	return w, nil
}

// checkIngredientInputs records structural problems and returns the IDs worth looking up.
// Nothing is returned once a problem is found, so the existence check never doubles up messages.
func checkIngredientInputs(in []types.IngredientAmountInput, errs validation.FieldErrors) []uint {
	if len(in) == 0 {
		errs.Add("ingredients", msgNoIngredients)
		return nil
	}

	var missingID, duplicate, badAmount, tooLarge bool
	seen := make(map[uint]bool, len(in))
	ids := make([]uint, 0, len(in))
	for _, item := range in {
		if item.ID == 0 {
			missingID = true
			continue
		}
		duplicate = duplicate || seen[item.ID]
		seen[item.ID] = true
		badAmount = badAmount || item.Amount <= 0
		tooLarge = tooLarge || item.Amount > MaxAmount
		ids = append(ids, item.ID)
	}

	if missingID {
		errs.Add("ingredients", "Every ingredient needs an id.")
	}
	if duplicate {
		errs.Add("ingredients", msgDuplicateIngredients)
	}
	if badAmount {
		errs.Add("ingredients", msgAmountPositive)
	}
	if tooLarge {
		errs.Add("ingredients", msgAmountTooLarge)
	}
	if missingID || duplicate || badAmount || tooLarge {
		return nil
	}
	return ids
}

func checkTagInputs(in []uint, errs validation.FieldErrors) []uint {
	if len(in) == 0 {
		errs.Add("tags", msgNoTags)
		return nil
	}

	seen := make(map[uint]bool, len(in))
	for _, id := range in {
		if id == 0 {
			errs.Add("tags", "Tag id must be positive.")
			return nil
		}
		if seen[id] {
			errs.Add("tags", msgDuplicateTags)
			return nil
		}
		seen[id] = true
	}
	return in
}
