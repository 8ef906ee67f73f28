package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

const testSecret = "test-secret"

func setupAuthTest(t *testing.T) (*gorm.DB, *service.AuthService) {
	db := testhelpers.SetupTestDatabase(t)
	return db, service.NewAuthService(db, testSecret, time.Hour, nil)
}

func validRegistration() *types.RegisterRequest {
	return &types.RegisterRequest{
		Email:     "vasya@example.com",
		Username:  "vasya.pupkin",
		FirstName: "Вася",
		LastName:  "Пупкин",
		Password:  "s3cret-pass",
	}
}

func TestRegister(t *testing.T) {
	db, authSvc := setupAuthTest(t)
	ctx := context.Background()

	user, err := authSvc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "vasya.pupkin", user.Username)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Equal(t, "vasya@example.com", stored.Email)

	created := service.ToUserCreatedResponse(user)
	assert.Equal(t, types.UserCreatedResponse{
		ID:        user.ID,
		Email:     "vasya@example.com",
		Username:  "vasya.pupkin",
		FirstName: "Вася",
		LastName:  "Пупкин",
	}, created)

	t.Run("duplicate email and username", func(t *testing.T) {
		req := validRegistration()
		req.Email = "VASYA@example.com"
		_, err := authSvc.Register(ctx, req)
		errs := fieldErrors(t, err)
		assert.Equal(t, []string{"A user with that email already exists."}, errs["email"])
		assert.Equal(t, []string{"A user with that username already exists."}, errs["username"])
	})
}

func TestRegisterValidation(t *testing.T) {
	_, authSvc := setupAuthTest(t)

	tests := []struct {
		name   string
		mutate func(*types.RegisterRequest)
		field  string
	}{
		{"missing email", func(r *types.RegisterRequest) { r.Email = "" }, "email"},
		{"bad email", func(r *types.RegisterRequest) { r.Email = "not-an-email" }, "email"},
		{"username with spaces", func(r *types.RegisterRequest) { r.Username = "bad name" }, "username"},
		{"reserved username", func(r *types.RegisterRequest) { r.Username = "me" }, "username"},
		{"missing first name", func(r *types.RegisterRequest) { r.FirstName = "" }, "first_name"},
		{"missing last name", func(r *types.RegisterRequest) { r.LastName = "" }, "last_name"},
		{"short password", func(r *types.RegisterRequest) { r.Password = "short" }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(req)
			_, err := authSvc.Register(context.Background(), req)
			assert.Contains(t, fieldErrors(t, err), tt.field)
		})
	}
}

func TestLoginAndValidateToken(t *testing.T) {
	_, authSvc := setupAuthTest(t)
	ctx := context.Background()

	user, err := authSvc.Register(ctx, validRegistration())
	require.NoError(t, err)

	token, err := authSvc.Login(ctx, &types.LoginRequest{Email: "Vasya@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := authSvc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "vasya@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)

	t.Run("wrong password", func(t *testing.T) {
		_, err := authSvc.Login(ctx, &types.LoginRequest{Email: "vasya@example.com", Password: "wrong-pass"})
		assert.Equal(t, []string{"Unable to log in with provided credentials."}, fieldErrors(t, err)[service.NonFieldErrors])
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := authSvc.Login(ctx, &types.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"})
		assert.Contains(t, fieldErrors(t, err), service.NonFieldErrors)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := service.NewAuthService(nil, "other-secret", time.Hour, nil)
		_, err := other.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := authSvc.ValidateToken(ctx, "not.a.token")
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &types.TokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "foodgram",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
			UserID: user.ID,
		})
		signed, err := expired.SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = authSvc.ValidateToken(ctx, signed)
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestLogoutRevokesToken(t *testing.T) {
	_, authSvc := setupAuthTest(t)
	ctx := context.Background()

	_, err := authSvc.Register(ctx, validRegistration())
	require.NoError(t, err)

	first, err := authSvc.Login(ctx, &types.LoginRequest{Email: "vasya@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	second, err := authSvc.Login(ctx, &types.LoginRequest{Email: "vasya@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	claims, err := authSvc.ValidateToken(ctx, first)
	require.NoError(t, err)
	require.NoError(t, authSvc.Logout(ctx, claims))

	_, err = authSvc.ValidateToken(ctx, first)
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	// other sessions stay valid
	_, err = authSvc.ValidateToken(ctx, second)
	assert.NoError(t, err)
}

func TestSetPassword(t *testing.T) {
	_, authSvc := setupAuthTest(t)
	ctx := context.Background()

	user, err := authSvc.Register(ctx, validRegistration())
	require.NoError(t, err)

	err = authSvc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{CurrentPassword: "wrong-pass", NewPassword: "brand-new-pass"})
	assert.Equal(t, []string{"Invalid password."}, fieldErrors(t, err)["current_password"])

	err = authSvc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "short"})
	assert.Contains(t, fieldErrors(t, err), "new_password")

	require.NoError(t, authSvc.SetPassword(ctx, user.ID, &types.SetPasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "brand-new-pass"}))

	_, err = authSvc.Login(ctx, &types.LoginRequest{Email: "vasya@example.com", Password: "s3cret-pass"})
	assert.Error(t, err)
	_, err = authSvc.Login(ctx, &types.LoginRequest{Email: "vasya@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestRedisRevoker(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	revoker := service.NewRedisRevoker(client)
	ctx := context.Background()

	revoked, err := revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, revoker.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = revoker.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, "revoked_token:jti-1").Result()
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= time.Minute)
}
