package server

import (
	"strings"
	"testing"

	devConfig "github.com/Daskott/phonebook/dev/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yml string) *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	require.Nil(t, v.ReadConfig(strings.NewReader(yml)))

	return v
}

func TestLoadDevConfig(t *testing.T) {
	serverConfig, err := LoadConfig(newViper(t, devConfig.SERVER_YML))
	require.Nil(t, err)

	assert.Equal(t, "sqlite", serverConfig.Database.Driver)
	assert.Equal(t, "memory", serverConfig.Session.Backend)
	assert.Equal(t, 3000, serverConfig.Phonebook.Listener.Port)
	assert.Equal(t, 24, serverConfig.Phonebook.TokenTTLHours)
	assert.False(t, serverConfig.Google.Storage.EnableSqliteBackupAndSync)
}

func TestLoadConfigValidation(t *testing.T) {
	v := newViper(t, devConfig.SERVER_YML)
	v.Set("database.driver", "postgres")
	_, err := LoadConfig(v)
	assert.NotNil(t, err)

	v = newViper(t, devConfig.SERVER_YML)
	v.Set("session.backend", "redis")
	v.Set("redis.addr", "")
	_, err = LoadConfig(v)
	assert.NotNil(t, err)

	v = newViper(t, devConfig.SERVER_YML)
	v.Set("phonebook.tokenTTLHours", 0)
	_, err = LoadConfig(v)
	assert.NotNil(t, err)
}

func TestLoadKeyPair(t *testing.T) {
	_, err := loadKeyPair("", false)
	assert.NotNil(t, err, "Expected a signing key to be required outside dev mode")

	_, err = loadKeyPair("not a pem", true)
	assert.NotNil(t, err)
}
