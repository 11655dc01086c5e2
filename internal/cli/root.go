// Package cli provides the cobra command tree for the pairchoice agent.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkoster/pairchoice/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pairchoice",
	Short: "Local agent for browser-based forced-choice experiments",
	Long: `pairchoice drives a browser-based two-alternative forced-choice
experiment: it sequences randomized stimulus pairs, collects the subject's
choices and reaction times, passively samples pointer telemetry, and submits
the accumulated data to a crowdsourcing endpoint when the run finishes.

The browser front-end talks to the agent over a localhost HTTP API.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pairchoice.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pairchoice")
	}

	viper.SetEnvPrefix("PAIRCHOICE")
	viper.AutomaticEnv()

	// A missing default config file is fine; flags and env can carry
	// everything. An explicitly named file that fails to read is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
			os.Exit(1)
		}
	}
}
