// internal/services/user_service_test.go
package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/testutil"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	users := services.NewUserService(db, testutil.NewStorage())

	user := testutil.CreateUser(t, db, "asha@nepshop.test", models.RoleUser)
	testutil.CreateUser(t, db, "taken@nepshop.test", models.RoleUser)

	updated, err := users.UpdateProfile(ctx, user.ID, &services.UpdateProfileRequest{City: "Pokhara"})
	require.NoError(t, err)
	assert.Equal(t, "Pokhara", updated.City)
	assert.Equal(t, user.Name, updated.Name)

	_, err = users.UpdateProfile(ctx, user.ID, &services.UpdateProfileRequest{Email: "Taken@nepshop.test"})
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))

	_, err = users.UpdateProfile(ctx, user.ID, &services.UpdateProfileRequest{Phone: "nope"})
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	_, err = users.UpdateProfile(ctx, uuid.New(), &services.UpdateProfileRequest{City: "Pokhara"})
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	users := services.NewUserService(db, testutil.NewStorage())
	user := testutil.CreateUser(t, db, "asha@nepshop.test", models.RoleUser)

	err := users.ChangePassword(ctx, user.ID, &services.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "brandnew"})
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))

	require.NoError(t, users.ChangePassword(ctx, user.ID, &services.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "brandnew"}))

	stored, err := users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NoError(t, stored.CheckPassword("brandnew"))
}

func TestUpdateAvatarReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t, testutil.Config())
	storage := testutil.NewStorage()
	users := services.NewUserService(db, storage)
	user := testutil.CreateUser(t, db, "asha@nepshop.test", models.RoleUser)

	first, err := users.UpdateAvatar(ctx, user.ID, testutil.PNG("one.png"))
	require.NoError(t, err)
	firstKey := first.Avatar.StorageKey
	assert.Empty(t, storage.DeletedKeys())

	second, err := users.UpdateAvatar(ctx, user.ID, testutil.PNG("two.png"))
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, second.Avatar.StorageKey)
	assert.Equal(t, []string{firstKey}, storage.DeletedKeys())

	stored, err := users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second.Avatar.URL, stored.Avatar.URL)

	_, err = users.UpdateAvatar(ctx, user.ID, nil)
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
}
