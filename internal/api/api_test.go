package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	svc    Services
	images *testhelpers.MemoryImageStore
}

func setupTestAPI(t *testing.T, opts Options) *testAPI {
	gin.SetMode(gin.TestMode)
	db := testhelpers.SetupTestDatabase(t)
	images := testhelpers.NewMemoryImageStore()
	svc := NewServices(db, images, "test-secret", time.Hour, nil)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	SetupAPI(router, svc, opts)

	return &testAPI{router: router, db: db, svc: svc, images: images}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// signup registers through the API and logs in, returning the user id and token.
func (a *testAPI) signup(t *testing.T, username string) (uint, string) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "First",
		"last_name":  "Last",
		"password":   "password-" + username,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created types.UserCreatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = a.do(t, http.MethodPost, "/api/v1/auth/token/login", "", map[string]string{
		"email":    username + "@example.com",
		"password": "password-" + username,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var tok types.TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tok))
	return created.ID, tok.AuthToken
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type recipeSetup struct {
	tag   *models.Tag
	flour *models.Ingredient
	salt  *models.Ingredient
}

func seedReference(t *testing.T, db *gorm.DB) recipeSetup {
	return recipeSetup{
		tag:   testhelpers.CreateTag(t, db, "Завтрак", "#E26C2D"),
		flour: testhelpers.CreateIngredient(t, db, "flour", "g"),
		salt:  testhelpers.CreateIngredient(t, db, "salt", "g"),
	}
}

func recipeBody(s recipeSetup, name string, flour int) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"text":         "Knead and bake.",
		"cooking_time": 45,
		"image":        testhelpers.TinyPNG,
		"tags":         []uint{s.tag.ID},
		"ingredients": []map[string]interface{}{
			{"id": s.flour.ID, "amount": flour},
			{"id": s.salt.ID, "amount": 5},
		},
	}
}

func TestAuthFlow(t *testing.T) {
	a := setupTestAPI(t, Options{})
	userID, token := a.signup(t, "vasya")

	rr := a.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[types.UserResponse](t, rr)
	assert.Equal(t, userID, me.ID)
	assert.Equal(t, "vasya", me.Username)

	// Bearer works as well as Token
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	bearer := httptest.NewRecorder()
	a.router.ServeHTTP(bearer, req)
	assert.Equal(t, http.StatusOK, bearer.Code)

	rr = a.do(t, http.MethodPost, "/api/v1/users/set_password", token, map[string]string{
		"current_password": "password-vasya",
		"new_password":     "another-password",
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = a.do(t, http.MethodPost, "/api/v1/auth/token/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = a.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = a.do(t, http.MethodPost, "/api/v1/auth/token/login", "", map[string]string{
		"email":    "vasya@example.com",
		"password": "password-vasya",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[ErrorResponse](t, rr)
	assert.Equal(t, []string{"Unable to log in with provided credentials."}, body.Fields["non_field_errors"])
}

func TestRegisterValidation(t *testing.T) {
	a := setupTestAPI(t, Options{})

	rr := a.do(t, http.MethodPost, "/api/v1/users", "", map[string]string{"email": "bad"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[ErrorResponse](t, rr)
	for _, field := range []string{"email", "username", "first_name", "last_name", "password"} {
		assert.Contains(t, body.Fields, field)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("{not json"))
	bad := httptest.NewRecorder()
	a.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestDisabledUserEndpoints(t *testing.T) {
	a := setupTestAPI(t, Options{})
	userID, token := a.signup(t, "vasya")

	for _, action := range disabledUserActions {
		rr := a.do(t, http.MethodPost, "/api/v1/users/"+action, token, map[string]string{})
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, action)
	}
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rr := a.do(t, method, fmt.Sprintf("/api/v1/users/%d", userID), token, map[string]string{"first_name": "x"})
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, method)
	}
}

func TestUserListPagination(t *testing.T) {
	a := setupTestAPI(t, Options{PageSize: 2})
	for _, name := range []string{"a1", "a2", "a3"} {
		testhelpers.CreateUser(t, a.db, name)
	}

	rr := a.do(t, http.MethodGet, "/api/v1/users", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[types.Page[types.UserResponse]](t, rr)
	assert.Equal(t, int64(3), page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Equal(t, "http://example.com/api/v1/users?page=2", *page.Next)
	assert.Nil(t, page.Previous)

	rr = a.do(t, http.MethodGet, "/api/v1/users?page=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[types.Page[types.UserResponse]](t, rr)
	assert.Len(t, page.Results, 1)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/v1/users?limit=2", *page.Previous)

	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/users?page=5", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/users?page=0", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/users?page=abc", "", nil).Code)
	// offset would overflow int
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/users?page=3074457345618258603&limit=6", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/recipes?page=3074457345618258603&limit=6", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/users/abc", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/api/v1/users/999", "", nil).Code)
}

func TestTagsAndIngredients(t *testing.T) {
	a := setupTestAPI(t, Options{})
	s := seedReference(t, a.db)
	testhelpers.CreateIngredient(t, a.db, "молоко", "мл")
	testhelpers.CreateIngredient(t, a.db, "сгущенное молоко", "г")

	rr := a.do(t, http.MethodGet, "/api/v1/tags", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []types.TagResponse{{ID: s.tag.ID, Name: "Завтрак", Color: "#E26C2D", Slug: "zavtrak"}},
		decode[[]types.TagResponse](t, rr))

	rr = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/tags/%d", s.tag.ID), "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = a.do(t, http.MethodGet, "/api/v1/ingredients?name="+url.QueryEscape("мол"), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	found := decode[[]types.IngredientResponse](t, rr)
	require.Len(t, found, 2)
	assert.Equal(t, "молоко", found[0].Name)
	assert.Equal(t, "сгущенное молоко", found[1].Name)

	rr = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/ingredients/%d", s.salt.ID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "salt", decode[types.IngredientResponse](t, rr).Name)
}

func TestRecipeLifecycle(t *testing.T) {
	a := setupTestAPI(t, Options{})
	s := seedReference(t, a.db)
	authorID, author := a.signup(t, "author")
	_, reader := a.signup(t, "reader")

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodPost, "/api/v1/recipes", "", recipeBody(s, "Bread", 200)).Code)

	invalid := recipeBody(s, "Bread", 200)
	invalid["ingredients"] = []interface{}{}
	invalid["cooking_time"] = 0
	rr := a.do(t, http.MethodPost, "/api/v1/recipes", author, invalid)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	errBody := decode[ErrorResponse](t, rr)
	assert.Contains(t, errBody.Fields, "ingredients")
	assert.Contains(t, errBody.Fields, "cooking_time")

	rr = a.do(t, http.MethodPost, "/api/v1/recipes", author, recipeBody(s, "Bread", 200))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[types.RecipeResponse](t, rr)
	assert.Equal(t, authorID, created.Author.ID)
	assert.Len(t, created.Ingredients, 2)
	recipePath := fmt.Sprintf("/api/v1/recipes/%d", created.ID)

	rr = a.do(t, http.MethodGet, recipePath, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	anon := decode[types.RecipeResponse](t, rr)
	assert.False(t, anon.IsFavorited)
	assert.Equal(t, created.Name, anon.Name)

	update := recipeBody(s, "Rye bread", 300)
	delete(update, "image")
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPatch, recipePath, reader, update).Code)
	rr = a.do(t, http.MethodPatch, recipePath, author, update)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Rye bread", decode[types.RecipeResponse](t, rr).Name)

	// favorites
	favPath := recipePath + "/favorite"
	rr = a.do(t, http.MethodPost, favPath, reader, nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, created.ID, decode[types.RecipeShortResponse](t, rr).ID)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, favPath, reader, nil).Code)

	rr = a.do(t, http.MethodGet, "/api/v1/recipes?is_favorited=1", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[types.Page[types.RecipeResponse]](t, rr)
	require.Len(t, page.Results, 1)
	assert.True(t, page.Results[0].IsFavorited)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, favPath, reader, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, favPath, reader, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/v1/recipes/999/favorite", reader, nil).Code)

	// filters
	rr = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/recipes?tags=zavtrak&author=%d", authorID), "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[types.Page[types.RecipeResponse]](t, rr).Count)
	rr = a.do(t, http.MethodGet, "/api/v1/recipes?tags=obed", "", nil)
	assert.Equal(t, int64(0), decode[types.Page[types.RecipeResponse]](t, rr).Count)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/api/v1/recipes?author=abc", "", nil).Code)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodDelete, recipePath, reader, nil).Code)
	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, recipePath, author, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, recipePath, "", nil).Code)
	assert.Zero(t, a.images.Len())
}

func TestDownloadShoppingCart(t *testing.T) {
	a := setupTestAPI(t, Options{})
	s := seedReference(t, a.db)
	_, author := a.signup(t, "author")

	one := recipeBody(s, "Bread", 200)
	one["ingredients"] = []map[string]interface{}{{"id": s.flour.ID, "amount": 200}}
	rr := a.do(t, http.MethodPost, "/api/v1/recipes", author, one)
	require.Equal(t, http.StatusCreated, rr.Code)
	r1 := decode[types.RecipeResponse](t, rr)

	rr = a.do(t, http.MethodPost, "/api/v1/recipes", author, recipeBody(s, "Pretzel", 100))
	require.Equal(t, http.StatusCreated, rr.Code)
	r2 := decode[types.RecipeResponse](t, rr)

	for _, id := range []uint{r1.ID, r2.ID} {
		rr = a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/recipes/%d/shopping_cart", id), author, nil)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart", "", nil).Code)

	rr = a.do(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart", author, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "shopping_list.txt")
	assert.Equal(t, "Shopping list\n\n1. flour (g) - 300\n2. salt (g) - 5\n", rr.Body.String())

	rr = a.do(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart?format=csv", author, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "name,measurement_unit,amount\nflour,g,300\nsalt,g,5\n", rr.Body.String())

	assert.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodGet, "/api/v1/recipes/download_shopping_cart?format=pdf", author, nil).Code)
}

func TestSubscriptions(t *testing.T) {
	a := setupTestAPI(t, Options{})
	s := seedReference(t, a.db)
	authorID, author := a.signup(t, "author")
	readerID, reader := a.signup(t, "reader")

	for _, name := range []string{"One", "Two", "Three"} {
		require.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/v1/recipes", author, recipeBody(s, name, 100)).Code)
	}

	subscribe := fmt.Sprintf("/api/v1/users/%d/subscribe", authorID)
	assert.Equal(t, http.StatusBadRequest,
		a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%d/subscribe", readerID), reader, nil).Code)

	rr := a.do(t, http.MethodPost, subscribe+"?recipes_limit=1", reader, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sub := decode[types.SubscriptionResponse](t, rr)
	assert.True(t, sub.IsSubscribed)
	assert.Len(t, sub.Recipes, 1)
	assert.Equal(t, int64(3), sub.RecipesCount)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, subscribe, reader, nil).Code)

	rr = a.do(t, http.MethodGet, "/api/v1/users/subscriptions?recipes_limit=2", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode[types.Page[types.SubscriptionResponse]](t, rr)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Len(t, page.Results[0].Recipes, 2)

	rr = a.do(t, http.MethodGet, "/api/v1/users/subscriptions?recipes_limit=0", reader, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page = decode[types.Page[types.SubscriptionResponse]](t, rr)
	require.Len(t, page.Results, 1)
	assert.Empty(t, page.Results[0].Recipes)
	assert.Equal(t, int64(3), page.Results[0].RecipesCount)

	for _, query := range []string{"", "?recipes_limit=abc"} {
		rr = a.do(t, http.MethodGet, "/api/v1/users/subscriptions"+query, reader, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		page = decode[types.Page[types.SubscriptionResponse]](t, rr)
		require.Len(t, page.Results, 1)
		assert.Len(t, page.Results[0].Recipes, 3, query)
	}

	rr = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", authorID), reader, nil)
	assert.True(t, decode[types.UserResponse](t, rr).IsSubscribed)

	assert.Equal(t, http.StatusNoContent, a.do(t, http.MethodDelete, subscribe, reader, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, subscribe, reader, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/api/v1/users/999/subscribe", reader, nil).Code)

	rr = a.do(t, http.MethodPost, subscribe+"?recipes_limit=0", reader, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	sub = decode[types.SubscriptionResponse](t, rr)
	assert.Empty(t, sub.Recipes)
	assert.Equal(t, int64(3), sub.RecipesCount)
}

func TestRecipeCreationRateLimit(t *testing.T) {
	a := setupTestAPI(t, Options{
		CreationLimiter: middleware.NewRecipeCreationRateLimiter(nil, 1, time.Hour),
	})
	s := seedReference(t, a.db)
	_, author := a.signup(t, "author")

	assert.Equal(t, http.StatusCreated, a.do(t, http.MethodPost, "/api/v1/recipes", author, recipeBody(s, "One", 1)).Code)
	assert.Equal(t, http.StatusTooManyRequests, a.do(t, http.MethodPost, "/api/v1/recipes", author, recipeBody(s, "Two", 1)).Code)
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", func(c *gin.Context) {
		respondError(c, context.DeadlineExceeded)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}
