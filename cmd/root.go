package cmd

import (
	"fmt"
	"os"
	"path"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	appName = "bandix"

	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "A network telemetry agent persisting eBPF traffic counters.",
	Long: `Bandix collects per-device traffic, connection and DNS statistics from
eBPF maps pinned by its capture programs. Aggregates are kept in memory and
flushed to disk periodically, on request and once more before exiting.`,
	PersistentPreRun: rootPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default bandix.yml in $HOME/.config/ or /etc/bandix/)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// initConfig sets up Viper with config search paths and an env prefix.
func initConfig() {

	if cfgFile != "" {
		// Use given config file directly.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search directories for config file.
		viper.AddConfigPath(path.Join(home, ".config")) // $HOME/.config/
		viper.AddConfigPath("/etc/" + appName)          // /etc/bandix/

		viper.SetConfigName(appName) // bandix.{yml,toml,json,...}
	}

	// BANDIX_DATA_DIR, BANDIX_FLUSH_INTERVAL, ...
	viper.SetEnvPrefix(appName)

	// Automatically pull in known env variables.
	viper.AutomaticEnv()

	// If a config file is found, read it in and return.
	if err := viper.ReadInConfig(); err == nil {
		log.Infof("Using config file: %s", viper.ConfigFileUsed())
		return
	}
}

// rootPreRun runs after all commands have been initialized and config
// flags have been bound.
func rootPreRun(*cobra.Command, []string) {
	// Enable debug logging if debug flag enabled.
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	// Send log output to a rotated file if configured.
	if lf := viper.GetString(cfgLogFile); lf != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   lf,
			MaxSize:    viper.GetInt(cfgLogMaxSizeMB),
			MaxBackups: viper.GetInt(cfgLogMaxBackups),
			Compress:   true,
		})
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, DisableColors: true})
	}
}
