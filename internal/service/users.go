package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ListUsers pages through all accounts, newest first, with is_subscribed for viewerID.
func (s *UserService) ListUsers(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := withSubscribed(db.Model(&models.User{}), viewerID).
		Order("users.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]types.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *UserService) GetUser(ctx context.Context, viewerID, userID uint) (*types.UserResponse, error) {
	var user models.User
	err := withSubscribed(s.db.WithContext(ctx).Model(&models.User{}), viewerID).
		Where("users.id = ?", userID).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	resp := toUserResponse(&user)
	return &resp, nil
}
