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
	"fmt"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	isDevEnv bool
	envFile  string

	yellow       = color.New(color.FgYellow).SprintFunc()
	red          = color.New(color.FgRed).SprintFunc()
	warningLabel = yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(loadEnvFile)

	rootCmd = createRootCmd()
	rootCmd.Version = fmt.Sprintf("v%s", Version)
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "safecircle",
		Short: `safecircle lets you alert your emergency contacts with your live location.

Contacts are alerted through WhatsApp or a direct call, based on the
report option (Fire, Accident, ...) picked for the emergency.`,
	}

	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")
	cmd.PersistentFlags().StringVar(&envFile, "env", ".env", "file to load environment variables from")

	return cmd
}

// loadEnvFile loads env vars from 'envFile' if it exists.
// Vars already set in the environment are left untouched.
func loadEnvFile() {
	if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
		fmt.Println(warningLabel, fmt.Sprintf("unable to load %v: %v", envFile, err))
	}
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(red("Error: ")+format, a...)
}
