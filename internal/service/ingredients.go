package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ErrAlreadyImported is returned when importing into a table that already has rows.
var ErrAlreadyImported = errors.New("ingredients are already loaded")

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// SearchIngredients returns name-prefix matches first and substring-only matches after them,
// each group ordered by name. A query typed with the Latin layout active is retried in Cyrillic
// when it finds nothing. An empty query lists everything.
func (s *IngredientService) SearchIngredients(ctx context.Context, name string) ([]types.IngredientResponse, error) {
	q := normalizeSearch(name)
	db := s.db.WithContext(ctx)

	var found []models.Ingredient
	if q == "" {
		if err := db.Order("name").Order("id").Find(&found).Error; err != nil {
			return nil, fmt.Errorf("failed to list ingredients: %w", err)
		}
		return toIngredientResponses(found), nil
	}

	found, err := searchIngredients(db, q)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		if fixed, ok := FixKeyboardLayout(q); ok {
			if found, err = searchIngredients(db, fixed); err != nil {
				return nil, err
			}
		}
	}
	return toIngredientResponses(found), nil
}

// normalizeSearch decodes queries that arrive still percent-encoded (they start with "%")
// and lower-cases the result.
func normalizeSearch(name string) string {
	if strings.HasPrefix(name, "%") {
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func searchIngredients(db *gorm.DB, q string) ([]models.Ingredient, error) {
	pattern := likeEscaper.Replace(q)

	var prefix []models.Ingredient
	if err := db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern+"%").
		Order("name").Order("id").
		Find(&prefix).Error; err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}

	ids := make([]uint, 0, len(prefix))
	for _, ing := range prefix {
		ids = append(ids, ing.ID)
	}

	contains := db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+pattern+"%")
	if len(ids) > 0 {
		contains = contains.Where("id NOT IN ?", ids)
	}
	var rest []models.Ingredient
	if err := contains.Order("name").Order("id").Find(&rest).Error; err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}

	return append(prefix, rest...), nil
}

func (s *IngredientService) GetIngredient(ctx context.Context, id uint) (*types.IngredientResponse, error) {
	var ing models.Ingredient
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ingredient %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load ingredient: %w", err)
	}
	resp := toIngredientResponse(&ing)
	return &resp, nil
}

// ImportIngredients bulk-loads reference data. It refuses to run against a populated table.
func (s *IngredientService) ImportIngredients(ctx context.Context, items []models.Ingredient) (int, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Ingredient{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count ingredients: %w", err)
	}
	if count > 0 {
		return 0, ErrAlreadyImported
	}
	if len(items) == 0 {
		return 0, nil
	}

	if err := db.CreateInBatches(items, 500).Error; err != nil {
		return 0, fmt.Errorf("failed to import ingredients: %w", err)
	}
	return len(items), nil
}

func toIngredientResponses(in []models.Ingredient) []types.IngredientResponse {
	out := make([]types.IngredientResponse, 0, len(in))
	for i := range in {
		out = append(out, toIngredientResponse(&in[i]))
	}
	return out
}
