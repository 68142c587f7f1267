/*
Copyright © 2021 Edmond Cotterell

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"strings"

	devConfig "github.com/Daskott/phonebook/dev/config"
	"github.com/Daskott/phonebook/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const ENV_PREFIX = "PHONEBOOK"

var serverConfigFile string

func createServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start a phonebook server",
		Long: `Start the phonebook web server. Contacts, phone numbers & accounts are
stored in sqlite (default) or mysql, as set in the server config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := serverConfig()
			if err != nil {
				return err
			}

			server.Start(config, isDevEnv)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "config for server, required unless --dev is set")

	return cmd
}

// serverConfig reads the server config file & ENV variables, e.g.
// PHONEBOOK_SESSION_BACKEND overrides session.backend.
// With --dev the bundled dev config is used instead of a file.
func serverConfig() (*viper.Viper, error) {
	config := viper.New()
	config.SetConfigType("yaml")
	config.SetEnvPrefix(ENV_PREFIX)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv() // read in environment variables that match

	if isDevEnv && serverConfigFile == "" {
		if err := config.ReadConfig(strings.NewReader(devConfig.SERVER_YML)); err != nil {
			return nil, formattedError("error reading dev server config: %v", err)
		}
		return config, nil
	}

	if serverConfigFile == "" {
		return nil, formattedError("--sconfig is required when not in dev mode")
	}

	config.SetConfigFile(serverConfigFile)
	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("error reading server config file: %v", err)
	}

	return config, nil
}
