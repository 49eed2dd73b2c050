package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kgodwin/civtrace/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline on the configured cron schedules until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, s, cfg, err := openApp()
			if err != nil {
				return err
			}
			defer s.Close()

			sched, err := scheduler.New(cfg.Schedule.Timezone)
			if err != nil {
				return err
			}

			// The scrape job carries linking and extraction with it so the
			// derived records never lag the agenda corpus.
			if err := sched.AddJob("scrape", cfg.Schedule.ScrapeCron, 2*time.Hour, func(ctx context.Context) error {
				if _, err := a.RunScrape(ctx); err != nil {
					return err
				}
				if _, err := a.RunLink(ctx); err != nil {
					return err
				}
				_, err := a.RunResolutions(ctx)
				return err
			}); err != nil {
				return err
			}

			if err := sched.AddJob("reports", cfg.Schedule.ReportCron, time.Hour, func(ctx context.Context) error {
				if _, err := a.RunLibrary(ctx); err != nil {
					log.Printf("[serve] library sync: %v", err)
				}
				_, err := a.RunReports(ctx)
				return err
			}); err != nil {
				return err
			}

			sched.Start()
			for _, j := range sched.ListJobs() {
				fmt.Printf("scheduled %s, next run %s\n", j.Name, j.NextRun.Format(time.RFC1123))
			}

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			log.Println("[serve] shutting down")
			<-sched.Stop().Done()
			return nil
		},
	}
}
