// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

type AuthService struct {
	db                  *gorm.DB
	cfg                 *config.Config
	jwt                 *utils.JWTManager
	storage             ObjectStorage
	notificationService *NotificationService
	now                 func() time.Time
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `form:"name" json:"name" validate:"required,max=100"`
	Email    string `form:"email" json:"email" validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=6"`
	Address  string `form:"address" json:"address" validate:"required"`
	City     string `form:"city" json:"city" validate:"required"`
	Country  string `form:"country" json:"country" validate:"required"`
	PinCode  string `form:"pin_code" json:"pin_code"`
	Phone    string `form:"phone" json:"phone" validate:"required,phone"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=6"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, jwt *utils.JWTManager, storage ObjectStorage, notificationService *NotificationService) *AuthService {
	return &AuthService{
		db:                  db,
		cfg:                 cfg,
		jwt:                 jwt,
		storage:             storage,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req *RegisterRequest, avatar *FileUpload) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationErrorFrom(err)
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, utils.NewConflictError("This email already exists")
	}

	user := &models.User{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		City:    req.City,
		Country: req.Country,
		PinCode: req.PinCode,
		Phone:   req.Phone,
		Role:    models.RoleUser,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if avatar != nil {
		if err := avatar.Validate(); err != nil {
			return nil, utils.NewValidationError("%s", err.Error())
		}
		stored, err := s.storage.Upload(ctx, avatar, FolderAvatars)
		if err != nil {
			return nil, utils.NewExternalServiceError("object storage", err)
		}
		user.Avatar = stored
	}

	if err := db.Create(user).Error; err != nil {
		if user.Avatar.StorageKey != "" {
			if delErr := s.storage.Delete(ctx, user.Avatar.StorageKey); delErr != nil {
				logrus.WithError(delErr).WithField("key", user.Avatar.StorageKey).Error("Failed to remove orphaned avatar")
			}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, utils.ValidationErrorFrom(err)
	}

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", req.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NewValidationError("Incorrect email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, utils.NewValidationError("Incorrect email or password")
	}

	return s.issueToken(&user)
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	token, err := s.jwt.Generate(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600,
	}, nil
}

// ForgotPassword stores a fresh one-time code and emails it. If the email cannot be
// sent the stored code is cleared again before the error is returned.
func (s *AuthService) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorFrom(err)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("email = ?", req.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NewNotFoundError("User")
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	expiresAt := s.now().Add(time.Duration(s.cfg.Store.OTPTTLMinutes) * time.Minute)
	if err := user.SetOTP(otp, expiresAt); err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}
	if err := s.saveOTP(db, &user); err != nil {
		return err
	}

	if err := s.notificationService.SendPasswordResetOTP(ctx, &user, otp); err != nil {
		user.ClearOTP()
		if clearErr := s.saveOTP(s.db.WithContext(context.WithoutCancel(ctx)), &user); clearErr != nil {
			logrus.WithError(clearErr).WithField("user_id", user.ID).Error("Failed to clear otp after email failure")
		}
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to send password reset email")
		return utils.NewExternalServiceError("email", err)
	}

	return nil
}

func (s *AuthService) saveOTP(db *gorm.DB, user *models.User) error {
	err := db.Model(user).Select("otp_hash", "otp_expires_at").Updates(map[string]interface{}{
		"otp_hash":       user.OTPHash,
		"otp_expires_at": user.OTPExpiresAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req *ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ValidationErrorFrom(err)
	}

	db := s.db.WithContext(ctx)
	invalid := utils.NewValidationError("Invalid otp or the otp has expired")

	var user models.User
	err := db.Where("email = ?", req.Email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return invalid
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	if !user.CheckOTP(req.OTP, s.now()) {
		return invalid
	}

	if err := user.SetPassword(req.Password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.ClearOTP()

	err = db.Model(&user).Select("password_hash", "otp_hash", "otp_expires_at").Updates(map[string]interface{}{
		"password_hash":  user.PasswordHash,
		"otp_hash":       user.OTPHash,
		"otp_expires_at": user.OTPExpiresAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
