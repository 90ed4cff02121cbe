package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/burakenal/data/core/config"
	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/logger"
	"github.com/burakenal/data/core/reconcile"
	"github.com/burakenal/data/core/storage"
	"github.com/burakenal/data/feature/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for snapshot import and delete
	pruneImport  bool
	dryRunImport bool
	yesConfirm   bool
)

// snapshotCmd is the parent command for snapshot operations.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Export tables to storage or bring them back from it",
}

var snapshotExportCmd = &cobra.Command{
	Use:   "export <table>",
	Short: "Store a JSON snapshot of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotExport,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import <table>",
	Short: "Reconcile a table with its stored snapshot (report + optionally apply)",
	Long: `Reconcile a table with its stored snapshot.

Rows missing from the table are inserted and differing rows are updated.
With --prune, rows missing from the snapshot are deleted.

Examples:
  # Report only
  snapshot import users --dry-run

  # Apply with interactive confirmation
  snapshot import users

  # Apply and prune with auto-confirm (non-interactive)
  snapshot import users --prune --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshotImport,
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <table>",
	Short: "Remove the stored snapshot of a table",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotDelete,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshotList,
}

func init() {
	snapshotCmd.AddCommand(snapshotExportCmd, snapshotImportCmd, snapshotDeleteCmd, snapshotListCmd)

	snapshotImportCmd.Flags().BoolVar(&pruneImport, "prune", false, "Delete rows that are missing from the snapshot")
	snapshotImportCmd.Flags().BoolVar(&dryRunImport, "dry-run", false, "Report the plan without writing")
	snapshotCmd.PersistentFlags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(snapshotCmd)
}

// newSnapshotService wires the snapshot service from configuration.
func newSnapshotService() (*snapshot.Service, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	adapter, err := database.NewAdapter(db, cfg.Adapter, l)
	if err != nil {
		return nil, nil, err
	}

	client, err := storage.NewClient(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to storage: %w", err)
	}

	// The CLI is an operator tool; the HTTP read-only switch does not apply.
	serverCfg := cfg.Server
	serverCfg.ReadOnly = false
	return snapshot.NewService(adapter, client, cfg.Storage, serverCfg, l), l, nil
}

func runSnapshotExport(cmd *cobra.Command, args []string) error {
	svc, l, err := newSnapshotService()
	if err != nil {
		return err
	}
	defer l.Sync()

	res, err := svc.Export(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", args[0], err)
	}
	l.Info("Snapshot stored",
		zap.String("object", res.Object),
		zap.Int("rows", res.Rows),
		zap.Int64("size", res.Size))
	return nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	svc, l, err := newSnapshotService()
	if err != nil {
		return err
	}
	defer l.Sync()

	// Step 1: Plan (always runs)
	l.Info("Planning import...", zap.String("table", name))
	res, err := svc.Import(ctx, name, snapshot.ImportOptions{Prune: pruneImport})
	if err != nil {
		return fmt.Errorf("failed to plan import: %w", err)
	}

	// Step 2: Print report
	printPlanReport(l, res.Plan)

	if dryRunImport {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}
	if res.Plan.Summary.Total() == 0 {
		l.Info("Table already matches the snapshot.")
		return nil
	}

	// Step 3: Apply (if confirmed)
	if !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	l.Info("Applying plan...")
	res, err = svc.Import(ctx, name, snapshot.ImportOptions{Prune: pruneImport, Confirmed: true})
	if err != nil {
		return fmt.Errorf("failed to apply import: %w", err)
	}
	l.Info("Successfully imported snapshot",
		zap.Int("actions", res.Plan.Summary.Total()),
		zap.Int64("affected", res.Affected))
	return nil
}

func runSnapshotDelete(cmd *cobra.Command, args []string) error {
	svc, l, err := newSnapshotService()
	if err != nil {
		return err
	}
	defer l.Sync()

	if !confirmDestructiveAction() {
		l.Warn("Operation cancelled by user. Snapshot kept.")
		return nil
	}
	if err := svc.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete snapshot of %s: %w", args[0], err)
	}
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	svc, l, err := newSnapshotService()
	if err != nil {
		return err
	}
	defer l.Sync()

	entries, err := svc.List(context.Background())
	if err != nil {
		return err
	}
	for _, e := range entries {
		l.Info("Snapshot",
			zap.String("table", e.Table),
			zap.String("object", e.Object),
			zap.Int64("size", e.Size),
			zap.Time("last_modified", e.LastModified))
	}
	l.Info("Snapshots listed", zap.Int("count", len(entries)))
	return nil
}

// printPlanReport prints a formatted plan report using logger.
func printPlanReport(l *zap.Logger, plan *reconcile.Plan) {
	s := plan.Summary

	l.Info("Import report",
		zap.String("table", plan.Table),
		zap.Int("inserts", s.Inserts),
		zap.Int("updates", s.Updates),
		zap.Int("deletes", s.Deletes),
		zap.Int("unchanged", s.Unchanged),
	)

	// Show sample of actions (max 5 for logger)
	maxShow := min(5, len(plan.Actions))
	for _, action := range plan.Actions[:maxShow] {
		l.Info("Sample action",
			zap.String("type", string(action.Type)),
			zap.Int("row", action.Row),
			zap.Any("key", action.Key),
		)
	}
	if len(plan.Actions) > maxShow {
		l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
