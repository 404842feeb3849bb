package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/site-sync/internal/app"
	"github.com/Kamar-Folarin/site-sync/internal/config"
)

var Version = "dev"

type rootOptions struct {
	configFile string
	logLevel   string
	asJSON     bool
	logger     *logrus.Logger
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logOutput io.Writer) *cobra.Command {
	opts := &rootOptions{logger: logrus.New()}
	opts.logger.SetOutput(logOutput)
	opts.logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	rootCmd := &cobra.Command{
		Use:           "sitesync",
		Short:         "Sync WordPress/WooCommerce sites into the local cache and manage content batches",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
			}
			opts.logger.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", os.Getenv("CONFIG_FILE"), "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&opts.asJSON, "json", "j", false, "Output as JSON")

	rootCmd.AddCommand(sitesCmd(opts))
	rootCmd.AddCommand(syncCmd(opts))
	rootCmd.AddCommand(cacheCmd(opts))
	rootCmd.AddCommand(sessionCmd(opts))
	rootCmd.AddCommand(batchCmd(opts))

	return rootCmd
}

// open loads the configuration and wires the application; the caller closes it
func (o *rootOptions) open() (*app.App, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, o.logger)
}
