package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sitio/sitio/internal/config"
	"github.com/sitio/sitio/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sitio",
	Short: "Static portfolio site: server, build and gallery checks",
	Long: `sitio serves the portfolio site with its contact endpoint, builds a
deployable copy with minified assets and thumbnails, and checks that every
gallery item on the site pages can be loaded.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "sitio.yaml", "config file path")
}

// loadConfig читает конфигурацию и инициализирует логгер
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Init(cfg.Logs.Path); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}
