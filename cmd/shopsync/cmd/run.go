package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/suprameds/shopsync/internal/cmd/output"
	"github.com/suprameds/shopsync/internal/destination/medusa"
	"github.com/suprameds/shopsync/internal/executor"
	"github.com/suprameds/shopsync/internal/resolver"
	"github.com/suprameds/shopsync/internal/source/odoo"
	syncengine "github.com/suprameds/shopsync/internal/sync"
	"github.com/suprameds/shopsync/internal/transport"
	"github.com/suprameds/shopsync/pkg/constants"
	syncpkg "github.com/suprameds/shopsync/pkg/sync"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a catalog sync from the ERP to the storefront",
	Long: `Run executes one sync pass: it authenticates against the ERP,
streams every sellable product, and creates or updates the matching
storefront product. Invalid records are skipped and reported; per-record
destination failures are recorded and the run continues. Credential or
connectivity failures abort the run.

The exit code is zero when the run completes, even with per-record
failures; inspect the report for those. An aborted run exits non-zero.`,
	Example: `  shopsync run
  shopsync run --dry-run
  shopsync run --concurrency 4 --page-size 200
  shopsync run -o json > report.json`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("dry-run", false, "Report what would change without writing to the storefront")
	runCmd.Flags().Int("page-size", constants.DefaultPageSize, "Records fetched per ERP page")
	runCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Concurrent destination writers")
	runCmd.Flags().String("currency", constants.DefaultCurrency, "Currency code attached to variant prices")

	// Flags override env and config file values.
	for viperKey, flagName := range map[string]string{
		"dry_run":     "dry-run",
		"page_size":   "page-size",
		"concurrency": "concurrency",
		"currency":    "currency",
	} {
		if err := viper.BindPFlag(viperKey, runCmd.Flags().Lookup(flagName)); err != nil {
			panic(fmt.Sprintf("Failed to bind %s flag: %v", flagName, err))
		}
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	retries := transport.WithMaxRetries(cfg.MaxRetries)

	source := odoo.New(cfg.Source.URL, cfg.Source.Database, cfg.Source.Username, cfg.Source.APIKey, retries)
	if err := source.Authenticate(ctx); err != nil {
		return fmt.Errorf("ERP authentication failed: %w", err)
	}

	destination := medusa.New(cfg.Destination.URL, cfg.Destination.Token, retries)

	orchestrator := syncengine.New(
		odoo.NewReader(source, cfg.PageSize),
		resolver.New(destination),
		executor.New(destination, cfg.DryRun),
		syncpkg.WithDryRun(cfg.DryRun),
		syncpkg.WithConcurrency(cfg.Concurrency),
		syncpkg.WithCurrency(cfg.Currency),
		syncpkg.WithTimeout(cfg.Timeout),
	)

	report, runErr := orchestrator.Run(ctx)
	if report != nil {
		if err := output.WriteReport(os.Stdout, output.Format(outputFormat), report); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintln(os.Stderr, report.Summary())
		}
	}

	if runErr != nil {
		return fmt.Errorf("sync aborted: %w", runErr)
	}
	return nil
}
