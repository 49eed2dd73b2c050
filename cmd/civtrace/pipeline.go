package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the meeting portal's current event listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := a.RunScrape(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d meetings scraped, %d failed\n", res.RunID, res.Succeeded, res.Failed)
			for _, f := range res.Failures {
				fmt.Printf("  event %d: %s\n", f.EventID, f.Reason)
			}
			return nil
		},
	}
}

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Probe the archive id range for unlisted events and scrape them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := a.RunDiscover(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d meetings scraped, %d failed\n", res.RunID, res.Succeeded, res.Failed)
			return nil
		},
	}
}

func newLibraryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "library",
		Short: "Sync the codified-ordinance library",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := a.RunLibrary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d ordinances synced\n", n)
			return nil
		},
	}
}

func newLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link",
		Short: "Recompute ordinance-meeting links and lifecycle statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := a.RunLink(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d items seen, %d links created, %d ordinances created, %d statuses updated, %d failed\n",
				res.ItemsSeen, res.LinksCreated, res.OrdsCreated, res.StatusUpdated, res.Failed)
			return nil
		},
	}
}

func newResolutionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolutions",
		Short: "Materialize resolution records from agenda items",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := a.RunResolutions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d resolutions created, %d updated, %d failed\n", res.Created, res.Updated, res.Failed)
			return nil
		},
	}
}

func newReportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Resolve and store the configured monthly reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := a.RunReports(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%d reports fetched, %d missing, %d skipped, %d failed\n",
				res.Fetched, res.Missing, res.Skipped, res.Failed)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline once: scrape, library, link, resolutions, reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, _, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			return a.RunAll(cmd.Context())
		},
	}
}
