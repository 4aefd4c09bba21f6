package store

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
	"github.com/trentd187/fifa-roster/internal/models"
)

// Register creates a user. The password is stored as a bcrypt hash.
// Returns Conflict when the username is already taken.
func (s *Store) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperr.Invalid("Username and password required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "Password cannot be used", err)
	}

	user := models.User{Username: username, Password: string(hash)}
	err = s.write(ctx, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.New(apperr.Conflict, "Username exists")
		}
		// The unique index still guards against two concurrent registrations.
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, classify(err, "Username exists")
	}
	return &user, nil
}

// Login returns the user whose username and password match, or Unauthorized.
// An unknown username and a wrong password produce the same error.
func (s *Store) Login(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperr.Invalid("Username and password required")
	}

	var user models.User
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Where("username = ?", username).Take(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.Unauthorized, "Invalid credentials")
	}
	if err != nil {
		return nil, classify(err, "")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperr.New(apperr.Unauthorized, "Invalid credentials")
	}
	return &user, nil
}

// GetUser looks a user up by id.
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.read(ctx, func(db *gorm.DB) error {
		return db.Take(&user, "user_id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Missing("User not found")
	}
	if err != nil {
		return nil, classify(err, "")
	}
	return &user, nil
}
