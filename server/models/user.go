package models

import (
	"fmt"

	"github.com/Daskott/phonebook/server/auth"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("email/password is invalid")

var allFieldsExceptPassword = []string{"id",
	"first_name",
	"last_name",
	"email",
	"created_at",
	"updated_at",
}

type User struct {
	BaseModel
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password  string `json:"password,omitempty" validate:"required,password" gorm:"not null"`
}

func FindUserBy(db *gorm.DB, field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserPassword(db *gorm.DB, email string) (string, error) {
	user := &User{}
	err := db.Select("Password").First(user, "email = ?", email).Error

	if err != nil {
		return "", err
	}
	return user.Password, nil
}

// Authenticate returns the user for email when password matches its stored hash.
func Authenticate(db *gorm.DB, email, password string) (*User, error) {
	passwordHash, err := FindUserPassword(db, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordHash(password, passwordHash) {
		return nil, ErrInvalidCredentials
	}

	return FindUserBy(db, "email", email)
}

func CreateUser(db *gorm.DB, user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	user.Password = passwordHash

	return db.Create(user).Error
}

func UserExists(db *gorm.DB, email string) (bool, error) {
	var count int64
	err := db.Model(&User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
