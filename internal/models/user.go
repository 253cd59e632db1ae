// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Name         string     `json:"name" gorm:"size:100;not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	Address      string     `json:"address" gorm:"size:255;not null"`
	City         string     `json:"city" gorm:"size:100;not null"`
	Country      string     `json:"country" gorm:"size:100;not null"`
	PinCode      string     `json:"pin_code,omitempty" gorm:"size:20"`
	Phone        string     `json:"phone" gorm:"size:20;not null"`
	Role         Role       `json:"role" gorm:"type:varchar(10);not null;default:'user'"`
	Avatar       Image      `json:"avatar" gorm:"embedded;embeddedPrefix:avatar_"`
	OTPHash      string     `json:"-" gorm:"size:255"`
	OTPExpiresAt *time.Time `json:"-"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// SetOTP stores a hash of the one-time reset code together with its expiry.
func (u *User) SetOTP(otp string, expiresAt time.Time) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(otp), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.OTPHash = string(hashed)
	u.OTPExpiresAt = &expiresAt
	return nil
}

// CheckOTP reports whether otp matches the stored code and has not expired at now.
func (u *User) CheckOTP(otp string, now time.Time) bool {
	if u.OTPHash == "" || u.OTPExpiresAt == nil || !now.Before(*u.OTPExpiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.OTPHash), []byte(otp)) == nil
}

func (u *User) ClearOTP() {
	u.OTPHash = ""
	u.OTPExpiresAt = nil
}

func (u *User) Identity() Identity {
	return Identity{
		UserID:    u.ID,
		Role:      u.Role,
		Name:      u.Name,
		AvatarURL: u.Avatar.URL,
	}
}
