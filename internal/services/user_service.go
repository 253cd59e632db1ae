// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type UserService struct {
	db      *gorm.DB
	storage ObjectStorage
}

// UpdateProfileRequest is a partial update; empty fields are left untouched.
type UpdateProfileRequest struct {
	Name    string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
	PinCode string `json:"pin_code,omitempty"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,phone"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func NewUserService(db *gorm.DB, storage ObjectStorage) *UserService {
	return &UserService{
		db:      db,
		storage: storage,
	}
}

func (s *UserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewNotFoundError("User")
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationErrorFrom(err)
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	updates := map[string]interface{}{}
	set := func(column, value string) {
		if value = strings.TrimSpace(value); value != "" {
			updates[column] = value
		}
	}
	set("name", req.Name)
	set("address", req.Address)
	set("city", req.City)
	set("country", req.Country)
	set("pin_code", req.PinCode)
	set("phone", req.Phone)

	if req.Email != "" && req.Email != user.Email {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", req.Email, userID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return nil, utils.NewConflictError("This email already exists")
		}
		updates["email"] = req.Email
	}

	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.GetUserByID(ctx, userID)
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorFrom(err)
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.CheckPassword(req.OldPassword); err != nil {
		return utils.NewValidationError("Incorrect old password")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// UpdateAvatar uploads the new picture, saves it and only then removes the old one.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, avatar *FileUpload) (*models.User, error) {
	if avatar == nil {
		return nil, utils.NewValidationError("Please provide an image")
	}
	if err := avatar.Validate(); err != nil {
		return nil, utils.NewValidationError("%s", err.Error())
	}

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := user.Avatar

	stored, err := s.storage.Upload(ctx, avatar, FolderAvatars)
	if err != nil {
		return nil, utils.NewExternalServiceError("object storage", err)
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"avatar_storage_key": stored.StorageKey,
		"avatar_url":         stored.URL,
	}).Error
	if err != nil {
		if delErr := s.storage.Delete(ctx, stored.StorageKey); delErr != nil {
			logrus.WithError(delErr).WithField("key", stored.StorageKey).Error("Failed to remove orphaned avatar")
		}
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	user.Avatar = stored

	if previous.StorageKey != "" {
		if err := s.storage.Delete(ctx, previous.StorageKey); err != nil {
			logrus.WithError(err).WithField("key", previous.StorageKey).Warn("Failed to delete previous avatar")
		}
	}

	return user, nil
}
