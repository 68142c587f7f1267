package server

import (
	"fmt"
	"strings"

	"github.com/Daskott/phonebook/server/models"
	"github.com/spf13/viper"
)

// CreateUser adds an account from the command line, outside of the register form.
func CreateUser(config *viper.Viper, devMode bool, user *models.User) error {
	if err := validate.Struct(user); err != nil {
		return fmt.Errorf("invalid user:\n%v", strings.TrimSpace(err.Error()))
	}

	serverConfig, err := LoadConfig(config)
	if err != nil {
		return err
	}

	db, err := models.Open(*serverConfig, configDirectory(devMode))
	if err != nil {
		return err
	}

	exists, err := models.UserExists(db, user.Email)
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("a user with email %v already exists", user.Email)
	}

	return models.CreateUser(db, user)
}
