// Package command holds the cobra commands of the ladies-drive binary.
//
//	./ladies-drive serve --mode ride-service [-c config.yaml]
//	./ladies-drive migrate [-c config.yaml]
package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "ladies-drive",
	Short:        "Women-only ride hailing backend",
	Long:         config.HelpMessage,
	SilenceUsage: true,
}

// Execute runs the most specific command matched by the CLI arguments.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(fixConfigPath)
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// fixConfigPath falls back to CONFIG_FILE when -c is not given. An empty
// path means environment variables and defaults only.
func fixConfigPath() {
	if cfgPath != "" {
		return
	}
	cfgPath = os.Getenv("CONFIG_FILE")
}

func newLogger(service, logLevel string) (logger.Logger, error) {
	if !logger.ValidateLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid log level %q", logLevel)
	}
	return logger.InitLogger(service, logLevel), nil
}
