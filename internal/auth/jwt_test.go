package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockmaster/lockmaster-server/internal/config"
	"github.com/lockmaster/lockmaster-server/internal/models"
	"github.com/lockmaster/lockmaster-server/internal/storage"
)

type userStore struct {
	storage.Store
	users map[uuid.UUID]*models.User
}

func (s *userStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

func testUser() *models.User {
	buildingID := uuid.New()
	return &models.User{
		ID:          uuid.New(),
		Email:       "manager@example.com",
		AccessLevel: models.AccessLevelPropertyManager,
		BuildingID:  &buildingID,
		Status:      models.UserStatusActive,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	user := testUser()
	manager := NewJWTManager(testConfig(), nil)

	access, refresh, err := manager.GenerateTokenPair(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	claims, err := manager.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.AccessLevelPropertyManager, claims.AccessLevel)
	require.NotNil(t, claims.BuildingID)
	assert.Equal(t, *user.BuildingID, *claims.BuildingID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	user := testUser()
	manager := NewJWTManager(testConfig(), nil)

	access, _, err := manager.GenerateTokenPair(user)
	require.NoError(t, err)

	other := NewJWTManager(&config.JWTConfig{
		Secret:          "different-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}, nil)

	_, err = other.ValidateToken(access)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager(testConfig(), nil)

	_, err := manager.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestRefreshTokenReloadsUser(t *testing.T) {
	user := testUser()
	store := &userStore{users: map[uuid.UUID]*models.User{user.ID: user}}
	manager := NewJWTManager(testConfig(), store)

	_, refresh, err := manager.GenerateTokenPair(user)
	require.NoError(t, err)

	// The new access token carries the user's current access level
	user.AccessLevel = models.AccessLevelSuperAdmin
	access, _, err := manager.RefreshToken(context.Background(), refresh)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, models.AccessLevelSuperAdmin, claims.AccessLevel)
}

func TestRefreshTokenRejectsSuspendedUser(t *testing.T) {
	user := testUser()
	store := &userStore{users: map[uuid.UUID]*models.User{user.ID: user}}
	manager := NewJWTManager(testConfig(), store)

	_, refresh, err := manager.GenerateTokenPair(user)
	require.NoError(t, err)

	user.Status = models.UserStatusSuspended
	_, _, err = manager.RefreshToken(context.Background(), refresh)
	assert.Error(t, err)
}

func TestRefreshTokenRejectsAccessTokenMisuse(t *testing.T) {
	user := testUser()
	store := &userStore{users: map[uuid.UUID]*models.User{user.ID: user}}
	manager := NewJWTManager(testConfig(), store)

	_, refresh, err := manager.GenerateTokenPair(user)
	require.NoError(t, err)

	// An unknown user in a valid refresh token fails the reload
	delete(store.users, user.ID)
	_, _, err = manager.RefreshToken(context.Background(), refresh)
	assert.Error(t, err)
}
