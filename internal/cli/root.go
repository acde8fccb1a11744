// Package cli is the gosky command tree: archive fetching, map
// generation, observer projection and the HTTP server, all over the
// same configuration.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radiosky/gosky/internal/archive"
	"github.com/radiosky/gosky/internal/sky"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "gosky",
	Short:        "Diffuse radio sky model synthesis and observer projection",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `gosky synthesizes all-sky radio brightness maps from principal-component
basis archives (GSM 2008/2016, LFSM, Haslam) at any frequency in each
model's band, and projects them onto a ground observer's local sky.`,
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.gosky/gosky.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
}

func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func newLogger(cfg *Config) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func definitionFor(name string) (sky.Definition, error) {
	switch name {
	case "gsm08":
		return sky.GSM08(), nil
	case "gsm16":
		return sky.GSM16(), nil
	case "lfsm":
		return sky.LFSM(), nil
	case "haslam":
		return sky.Haslam(sky.DefaultSpectralIndex), nil
	}
	return sky.Definition{}, fmt.Errorf("unknown model %q (known: gsm08, gsm16, lfsm, haslam)", name)
}

// openArchive returns the model's basis archive, downloading it when
// the local cache is missing or stale.
func openArchive(ctx context.Context, cfg *Config, name string) (*archive.Archive, error) {
	url := cfg.ModelURL(name)
	if url == "" {
		return nil, fmt.Errorf("model %q has no archive URL configured", name)
	}
	cache := archive.NewCache(filepath.Join(cfg.Cache.Dir, name), cfg.Cache.MaxFiles)
	return cache.FetchOrCache(ctx, archive.NewFetcher(url), cfg.MaxAge())
}

// openModel builds a ready-to-generate model from the cached archive.
func openModel(ctx context.Context, cfg *Config, name string, opts sky.Options, logger *slog.Logger) (*sky.Model, error) {
	def, err := definitionFor(name)
	if err != nil {
		return nil, err
	}
	arch, err := openArchive(ctx, cfg, name)
	if err != nil {
		return nil, err
	}
	return sky.New(def, arch, opts, logger)
}
