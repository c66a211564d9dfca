package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flightlog/fmsave/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fmsave",
	Short: "Keep an enriched local copy of your flightmemory.com flight log.",
	Long: `fmsave reads saved flightmemory.com flight list pages, resolves airports, airlines and
aircraft against open reference data, adds time zones from GeoNames and merges the
result into a local SQLite flight log that can be exported to OpenFlights or MyFlightPath.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fmsave.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/fmsave/flights.sqlite)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	home, err := homedir.Dir()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".fmsave")
		viper.SetConfigType("yaml")
	}

	_ = viper.BindEnv("geonames.username", "FMSAVE_GN_USERNAME")
	_ = viper.BindEnv("flightmemory.username", "FMSAVE_FM_USERNAME")
	_ = viper.BindEnv("chrome.path", "FMSAVE_CHROME_PATH")
	_ = viper.BindEnv("data.path", "FMSAVE_DATA_PATH")

	// Set default values for all keys
	viper.SetDefault("geonames.username", "")
	viper.SetDefault("flightmemory.username", "")
	viper.SetDefault("chrome.path", "")
	viper.SetDefault("data.path", filepath.Join(home, ".config", "fmsave", "data"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			configPath := filepath.Join(home, ".fmsave.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		} else {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	if err := utils.SetLogLevel(levelString); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
