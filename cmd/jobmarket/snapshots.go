package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmarket/internal/blob"
	"github.com/amishk599/jobmarket/internal/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Snapshot subcommands",
}

var snapshotsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent dated snapshot",
	Long: `Finds the newest jobdata_<date>.parquet under blob.prefix and prints its row count and columns.
With --full, looks at jobdata_full_<date>.parquet exports instead.`,
	RunE:  runSnapshotsLatest,
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dated snapshots",
	RunE:  runSnapshotsList,
}

var (
	showColumns bool
	latestFull  bool
)

func init() {
	rootCmd.AddCommand(snapshotsCmd)
	snapshotsCmd.AddCommand(snapshotsLatestCmd, snapshotsListCmd)
	snapshotsLatestCmd.Flags().BoolVar(&showColumns, "columns", false, "print every column name")
	snapshotsLatestCmd.Flags().BoolVar(&latestFull, "full", false, "pick the newest full export rather than run snapshot")
}

func openBucket() (blob.Bucket, string) {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	b, err := setupBucket(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to open blob storage", "error", err)
		os.Exit(1)
	}
	return b, cfg.Blob.Prefix
}

func runSnapshotsLatest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	b, prefix := openBucket()

	kind := snapshot.RunSnapshot
	if latestFull {
		kind = snapshot.FullSnapshot
	}

	key, err := blob.LatestSnapshot(ctx, b, prefix, kind)
	if errors.Is(err, blob.ErrNotFound) {
		fmt.Println("No snapshot found.")
		return nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list snapshots: %v\n", err)
		os.Exit(1)
	}

	body, err := b.Get(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", key, err)
		os.Exit(1)
	}
	info, err := snapshot.Inspect(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", key, err)
		os.Exit(1)
	}

	renderFields(os.Stdout, [][2]string{
		{"Snapshot", key},
		{"Kind", kind.String()},
		{"Size", fmt.Sprintf("%d bytes", len(body))},
		{"Rows", fmt.Sprintf("%d", info.Rows)},
		{"Columns", fmt.Sprintf("%d", len(info.Columns))},
	})
	if showColumns {
		fmt.Println(strings.Join(info.Columns, "\n"))
	}
	return nil
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	b, prefix := openBucket()

	keys, err := b.List(context.Background(), prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list snapshots: %v\n", err)
		os.Exit(1)
	}

	n := 0
	for _, k := range keys {
		kind, d, ok := snapshot.ParseKey(k)
		if !ok {
			continue
		}
		fmt.Printf("%-12s %-5s %s\n", d.Format("2006-01-02"), kind, k)
		n++
	}
	fmt.Printf("\nTotal: %d snapshots\n", n)
	return nil
}
