package protocol

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/drivers/abstract"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

var (
	configPath    string
	catalogPath   string
	statePath     string
	aboutFormat   string
	discoverMode  bool
	aboutMode     bool
	testMode      bool
	noSave        bool
	encryptionKey string

	connector *abstract.AbstractDriver
)

// RootCmd carries the whole command surface; flags select the mode so the
// binary is invoked as `tap-pushbullet --config ... [--discover|--about|--test]`
// and defaults to a sync run.
var RootCmd = &cobra.Command{
	Use:     constants.TapName,
	Short:   "Singer tap for the Pushbullet REST API",
	Version: constants.TapVersion,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// set global variables

		viper.SetDefault(constants.ConfigFolder, os.TempDir())
		viper.SetDefault(constants.StatePath, filepath.Join(os.TempDir(), "state.json"))
		viper.SetDefault(constants.CatalogPath, filepath.Join(os.TempDir(), "catalog.json"))
		if !noSave && configPath != "not-set" {
			configFolder := filepath.Dir(configPath)
			statePathEnv := utils.Ternary(statePath == "", filepath.Join(configFolder, "state.json"), statePath).(string)
			catalogPathEnv := utils.Ternary(catalogPath == "", filepath.Join(configFolder, "catalog.json"), catalogPath).(string)
			viper.Set(constants.ConfigFolder, configFolder)
			viper.Set(constants.StatePath, statePathEnv)
			viper.Set(constants.CatalogPath, catalogPathEnv)
		}

		if encryptionKey != "" {
			viper.Set(constants.EncryptionKey, encryptionKey)
		}

		// logger uses CONFIG_FOLDER
		logger.Init()

		if aboutMode {
			return runAbout()
		}

		if configPath == "not-set" {
			return fmt.Errorf("--config not passed")
		}
		if err := utils.UnmarshalFile(configPath, connector.GetConfigRef(), true); err != nil {
			return err
		}
		if err := connector.GetConfigRef().Validate(); err != nil {
			return fmt.Errorf("invalid config: %s", err)
		}

		switch {
		case testMode:
			return runCheck(cmd.Context())
		case discoverMode:
			return runDiscover(cmd.Context())
		default:
			return runSync(cmd.Context())
		}
	},
}

func CreateRootCommand(driver abstract.DriverInterface) *cobra.Command {
	connector = abstract.NewAbstractDriver(RootCmd.Context(), driver)

	return RootCmd
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "", "not-set", "(Required) Config for connector")
	RootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "", "", "Catalog file selecting the streams to sync")
	RootCmd.PersistentFlags().StringVarP(&statePath, "state", "", "", "State file carrying bookmarks from an earlier sync")
	RootCmd.PersistentFlags().BoolVarP(&discoverMode, "discover", "", false, "Print the stream catalog and exit")
	RootCmd.PersistentFlags().BoolVarP(&aboutMode, "about", "", false, "Print connector metadata and the settings schema")
	RootCmd.PersistentFlags().BoolVarP(&testMode, "test", "", false, "Test upstream connectivity and exit")
	RootCmd.PersistentFlags().StringVarP(&aboutFormat, "format", "", "json", "Output format for --about (json or markdown)")
	RootCmd.PersistentFlags().BoolVarP(&noSave, "no-save", "", false, "(Optional) Flag to skip logging artifacts in file")
	RootCmd.PersistentFlags().StringVarP(&encryptionKey, "encryption-key", "", "", "(Optional) Decryption key. Provide the ARN of a KMS key, a UUID, or a custom string based on your encryption configuration.")
	// Disable Cobra CLI's built-in usage and error handling
	RootCmd.SilenceUsage = true
	RootCmd.SilenceErrors = true
}
