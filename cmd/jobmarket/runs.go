package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmarket/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	Long:  "Reads the ingestion_runs table and prints the most recent runs first.",
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.Table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	runs, err := s.RecentRuns(ctx, runsLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list runs: %v\n", err)
		s.Close()
		os.Exit(1)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	renderRuns(os.Stdout, runs)
	return nil
}
