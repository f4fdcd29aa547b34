package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/field-dispatch-bot/internal/core/domain"
	apperrors "github.com/lorrc/field-dispatch-bot/internal/core/errors"
)

func TestUserRepository_RegisterAndFind(t *testing.T) {
	truncateTables(t)
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	user := domain.RegisteredUser{
		ChatID:     100500,
		FirstName:  "Ivan",
		LastName:   "Petrov",
		Username:   "ipetrov",
		Status:     domain.UserActive,
		Technician: "petrov",
	}
	require.NoError(t, repo.Register(ctx, user))

	registered, err := repo.IsRegistered(ctx, user.ChatID)
	require.NoError(t, err)
	assert.True(t, registered)

	byChat, err := repo.FindByChat(ctx, user.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "petrov", byChat.Technician)
	assert.True(t, byChat.Active())
	assert.False(t, byChat.CreatedAt.IsZero())

	byTech, err := repo.FindByTechnician(ctx, "petrov")
	require.NoError(t, err)
	assert.Equal(t, user.ChatID, byTech.ChatID)
}

func TestUserRepository_RegisterUpsertsExistingChat(t *testing.T) {
	truncateTables(t)
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	user := domain.RegisteredUser{ChatID: 1, Technician: "old", Status: domain.UserActive}
	require.NoError(t, repo.Register(ctx, user))

	user.Technician = "new"
	require.NoError(t, repo.Register(ctx, user))

	found, err := repo.FindByChat(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", found.Technician)
}

func TestUserRepository_NotFound(t *testing.T) {
	truncateTables(t)
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	registered, err := repo.IsRegistered(ctx, 42)
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = repo.FindByChat(ctx, 42)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = repo.FindByTechnician(ctx, "nobody")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_SetStatus(t *testing.T) {
	truncateTables(t)
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	user := domain.RegisteredUser{ChatID: 7, Technician: "ivanov", Status: domain.UserActive}
	require.NoError(t, repo.Register(ctx, user))

	require.NoError(t, repo.SetStatus(ctx, 7, domain.UserInactive))

	// Deactivated technicians no longer resolve for personal digests.
	_, err := repo.FindByTechnician(ctx, "ivanov")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	err = repo.SetStatus(ctx, 999, domain.UserActive)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}
