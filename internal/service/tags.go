package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// TagInput is a tag as loaded by the import command. An empty slug is derived from the name.
type TagInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,color"`
	Slug  string `json:"slug" validate:"omitempty,max=200"`
}

type TagService struct {
	db        *gorm.DB
	validator *validation.Validator
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db, validator: validation.New()}
}

func (s *TagService) ListTags(ctx context.Context) ([]types.TagResponse, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	out := make([]types.TagResponse, 0, len(tags))
	for i := range tags {
		out = append(out, toTagResponse(&tags[i]))
	}
	return out, nil
}

func (s *TagService) GetTag(ctx context.Context, id uint) (*types.TagResponse, error) {
	var tag models.Tag
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tag %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load tag: %w", err)
	}
	resp := toTagResponse(&tag)
	return &resp, nil
}

// CreateTag validates and stores a tag. Color and slug must be unique.
func (s *TagService) CreateTag(ctx context.Context, in *TagInput) (*types.TagResponse, error) {
	if errs := s.validator.Validate(in); errs != nil {
		return nil, &ValidationError{Fields: errs}
	}

	tag := models.Tag{Name: in.Name, Color: in.Color, Slug: in.Slug}
	if err := s.db.WithContext(ctx).Create(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newValidationError(NonFieldErrors, "A tag with this color or slug already exists.")
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	resp := toTagResponse(&tag)
	return &resp, nil
}
