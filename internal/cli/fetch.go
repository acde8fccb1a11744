package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiosky/gosky/internal/archive"
)

var fetchForce bool

var fetchCmd = &cobra.Command{
	Use:   "fetch [model...]",
	Short: "Download basis archives into the local cache",
	Long: `Fetch downloads the basis archive for the named models (all
configured models when none are given). Cached copies within the
refresh window are kept unless --force is set.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "re-download even when a fresh cached copy exists")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		for _, m := range cfg.Models {
			names = append(names, m.Name)
		}
	}

	for _, name := range names {
		if _, err := definitionFor(name); err != nil {
			return err
		}
		url := cfg.ModelURL(name)
		if url == "" {
			return fmt.Errorf("model %q has no archive URL configured", name)
		}

		cache := archive.NewCache(filepath.Join(cfg.Cache.Dir, name), cfg.Cache.MaxFiles)
		fetcher := archive.NewFetcher(url)

		var arch *archive.Archive
		if fetchForce {
			data, err := fetcher.Fetch(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			arch, err = archive.Read(bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if err := cache.Write(data, time.Now()); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		} else {
			arch, err = cache.FetchOrCache(cmd.Context(), fetcher, cfg.MaxAge())
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}

		for _, set := range arch.MapNames() {
			b, err := arch.BasisMaps(set)
			if err != nil {
				return err
			}
			fmt.Printf("%s: set %s nside=%d components=%d\n", name, set, b.Nside, len(b.Maps))
		}
		if table, err := arch.SpectralTable(); err == nil {
			fmt.Printf("%s: spectral table with %d anchors, %g-%g\n",
				name, len(table.Freqs), table.MinFreq(), table.MaxFreq())
		}
	}
	return nil
}
