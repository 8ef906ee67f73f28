package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevokerExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevoker()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "a", time.Minute))
	require.NoError(t, r.Revoke(ctx, "ignored", 0))

	revoked, _ := r.IsRevoked(ctx, "a")
	assert.True(t, revoked)
	revoked, _ = r.IsRevoked(ctx, "ignored")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = r.IsRevoked(ctx, "a")
	assert.False(t, revoked)

	// expired entries are swept on the next write
	require.NoError(t, r.Revoke(ctx, "b", time.Minute))
	assert.NotContains(t, r.revoked, "a")
	assert.Contains(t, r.revoked, "b")
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string][]string{
		"tags": {"At least one tag is required."},
		"name": {"This field is required."},
	}}
	assert.Equal(t, "validation failed: name: This field is required.; tags: At least one tag is required.", err.Error())
	assert.Nil(t, asError(nil))
}
