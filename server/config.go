package server

import (
	"fmt"
	"strings"

	"github.com/Daskott/phonebook/shared"
	"github.com/spf13/viper"
)

// LoadConfig decodes & validates the server config held by v.
func LoadConfig(v *viper.Viper) (*shared.ServerConfig, error) {
	serverConfig := shared.ServerConfig{}

	if err := v.Unmarshal(&serverConfig); err != nil {
		return nil, fmt.Errorf("unable to decode server config: %v", err)
	}

	if err := validate.Struct(serverConfig); err != nil {
		return nil, fmt.Errorf("invalid server config:\n%v", strings.TrimSpace(err.Error()))
	}

	if serverConfig.Session.Backend == "redis" && serverConfig.Redis.Addr == "" {
		return nil, fmt.Errorf("invalid server config: redis.addr is required for the redis session backend")
	}

	if serverConfig.Database.Driver == "mysql" && serverConfig.Mysql.DSN == "" {
		return nil, fmt.Errorf("invalid server config: mysql.dsn is required for the mysql driver")
	}

	return &serverConfig, nil
}
