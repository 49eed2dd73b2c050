// Command civtrace runs the municipal records pipeline: portal scraping,
// ordinance library sync, lifecycle linking, resolution extraction, and
// monthly report resolution.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/kgodwin/civtrace/internal/app"
	"github.com/kgodwin/civtrace/internal/config"
	"github.com/kgodwin/civtrace/internal/store"
)

var configPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	root := &cobra.Command{
		Use:           "civtrace",
		Short:         "Aggregate one city's public records into a local database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: user config dir)")

	root.AddCommand(
		newInitCmd(),
		newScrapeCmd(),
		newDiscoverCmd(),
		newLibraryCmd(),
		newLinkCmd(),
		newResolutionsCmd(),
		newReportsCmd(),
		newRunCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("civtrace: %v", err)
	}
}

// loadConfig reads the config file and validates it. Validation failures
// are fatal before any network activity starts.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		if os.IsNotExist(err) {
			path, _ := config.ConfigPath()
			return nil, fmt.Errorf("no config found; run `civtrace init` to create %s", path)
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openApp builds the store and the assembled pipeline.
func openApp() (*app.App, *store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	s, err := store.New(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store at %s: %w", cfg.Storage.DBPath, err)
	}

	return app.New(cfg, s), s, cfg, nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config already exists at %s", path)
			}

			cfg := config.Default()
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("writing default config: %w", err)
			}

			fmt.Printf("Wrote %s\n", path)
			fmt.Println("Set portal.base_url (and library/reports base URLs) before running.")
			return nil
		},
	}
}
