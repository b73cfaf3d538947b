package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "litesoph",
	Short: "litesoph orchestrates multi-stage simulation pipelines",
	Long: `litesoph drives multi-stage scientific-simulation pipelines: each stage
prepares input for an external compute engine, launches it as a local or
remote process, and exposes its output artifacts to later stages.

Common workflows:

  Run a pipeline described by a manifest:
    litesoph run --project ./water --manifest pipeline.yaml

  Push the engine runs to the configured remote host:
    litesoph run --project ./water --manifest pipeline.yaml --remote

  Inspect task states and recorded outcomes:
    litesoph status --project ./water

Configuration:
  Engine and remote settings come from environment variables or a config
  file:
    LITESOPH_NWCHEM         nwchem executable path
    LITESOPH_GPAW           gpaw executable path
    LITESOPH_MPIRUN         parallel launcher path
    LITESOPH_REMOTE_HOST    remote host address
    LITESOPH_REMOTE_USER    remote user
    LITESOPH_REMOTE_PATH    remote base path for the mirrored project tree`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".litesoph"
		viper.AddConfigPath(home)
		viper.SetConfigName(".litesoph")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "LITESOPH_VARNAME"
	viper.SetEnvPrefix("LITESOPH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.litesoph.yaml)")
}
