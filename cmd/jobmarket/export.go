package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload a snapshot of the whole stored dataset",
	Long:  "Reads every row of the job table and writes it as today's jobdata_full_<date>.parquet export. Run snapshots are left untouched.",
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, nil, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	rep, err := a.runner.Export(ctx, a.store)
	if err != nil {
		logger.Error("export failed", "error", err)
		a.close()
		os.Exit(1)
	}
	if rep.NothingToInsert {
		fmt.Println("Store is empty, nothing exported.")
		return nil
	}
	fmt.Printf("Exported %s (%d bytes)\n", rep.SnapshotKey, rep.SnapshotBytes)
	return nil
}
