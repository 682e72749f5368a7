package cmd

import (
	"fmt"
	"os"
	"strings"

	"invoice-reconciliation-service/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// Build metadata, overridden at release time with
// -ldflags "-X .../cmd/reconciler/cmd.version=..."
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Bank statement reconciliation tool",
	Long: `Reconciler matches incoming bank transfers from statement exports
against pending invoices and marks the confirmed ones as paid.

It accepts the spreadsheet exports banks actually produce (.xlsx and .xls),
locates the movement table by its headers or falls back to a heuristic scan,
and pairs each deposit with the pending invoice of matching amount.

Examples:
  reconciler reconcile --statements cartola.xlsx --sources santander
  reconciler reconcile --statements marzo.xls,abril.xlsx --sources bancoestado,bci --commit
  reconciler sources`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("RECONCILER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if viper.GetBool("verbose") {
		if log, err := logger.NewLogger(logger.DebugConfig()); err == nil {
			logger.SetGlobalLogger(log)
		}
	}
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
