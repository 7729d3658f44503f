package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	devConfig "github.com/Daskott/safecircle/dev/config"
	"github.com/Daskott/safecircle/server"
	"github.com/Daskott/safecircle/shared"
	"github.com/Daskott/safecircle/utils"
	"github.com/go-playground/validator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a safecircle server",
	Long: `The safecircle server stores users, their report options & alert history,
and relays alerts to their contacts through WhatsApp`,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := serverConfig()
		cobra.CheckErr(err)

		server.Start(*config, isDevEnv)
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "Config for server")
}

func serverConfig() (*shared.ServerConfig, error) {
	configFile := serverConfigFile
	if isDevEnv && configFile == "" {
		var err error
		configFile, err = devConfigFilePath()
		if err != nil {
			return nil, err
		}
	}

	if configFile == "" {
		return nil, formattedError("the server config file is required, use --sconfig")
	}

	config := viper.New()
	config.SetConfigFile(configFile)

	// e.g. 'whatsapp.accessToken' can be set with WHATSAPP_ACCESSTOKEN
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()

	if err := config.ReadInConfig(); err != nil {
		return nil, formattedError("unable to read server config file: %v", err)
	}

	return decodeServerConfig(config)
}

func decodeServerConfig(config *viper.Viper) (*shared.ServerConfig, error) {
	serverConfig := shared.ServerConfig{}
	if err := config.Unmarshal(&serverConfig); err != nil {
		return nil, formattedError("unable to decode server config: %v", err)
	}

	if err := validator.New().Struct(serverConfig); err != nil {
		return nil, formattedError("invalid server config:\n%v", err)
	}

	if serverConfig.WhatsApp.Provider == "cloud" &&
		(serverConfig.WhatsApp.PhoneNumberID == "" || serverConfig.WhatsApp.AccessToken == "") {
		return nil, formattedError("'whatsapp.phoneNumberId' & 'whatsapp.accessToken' are required for the cloud provider")
	}

	twilioConfig := serverConfig.Twilio
	if serverConfig.WhatsApp.Provider == "twilio" &&
		(twilioConfig.AccountSid == "" || twilioConfig.AuthToken == "" || twilioConfig.WhatsAppNumber == "") {
		return nil, formattedError("'twilio.accountSid', 'twilio.authToken' & 'twilio.whatsAppNumber' are required for the twilio provider")
	}

	return &serverConfig, nil
}

// devConfigFilePath returns the path of the dev server config,
// creating the config from the dev template if it doesn't exist
func devConfigFilePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(cwd, "dev", "config")
	if err := utils.CreateDirIfNotExist(configDir); err != nil {
		return "", err
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	if !utils.FileExist(configFilePath) {
		fmt.Println(warningLabel, "creating dev config in", configFilePath)
		if err := os.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0600); err != nil {
			return "", err
		}
	}

	return configFilePath, nil
}
