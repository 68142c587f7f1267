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
	"github.com/Daskott/phonebook/server"
	"github.com/Daskott/phonebook/server/models"
	"github.com/spf13/cobra"
)

var newUser models.User

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage phonebook accounts",
	}

	cmd.AddCommand(createUserCreateCmd())

	return cmd
}

func createUserCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a phonebook account",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := serverConfig()
			if err != nil {
				return err
			}

			err = server.CreateUser(config, isDevEnv, &newUser)
			if err != nil {
				return formattedError("%v", err)
			}

			cmd.Printf("Created account for %v\n", newUser.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&newUser.FirstName, "first-name", "", "first name of the account owner")
	cmd.Flags().StringVar(&newUser.LastName, "last-name", "", "last name of the account owner")
	cmd.Flags().StringVar(&newUser.Email, "email", "", "email used to log in")
	cmd.Flags().StringVar(&newUser.Password, "password", "", "password used to log in, no spaces")
	cmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "config for server, required unless --dev is set")

	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
