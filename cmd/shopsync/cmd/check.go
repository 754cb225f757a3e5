package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suprameds/shopsync/internal/cmd/output"
	"github.com/suprameds/shopsync/internal/destination/medusa"
	"github.com/suprameds/shopsync/internal/source/odoo"
	"github.com/suprameds/shopsync/pkg/constants"
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify connectivity and credentials for both systems",
	Long: `Check authenticates against the ERP and probes the storefront admin
API without syncing anything. Use it to validate configuration before
scheduling runs.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	System string `json:"system"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), constants.CheckTimeout)
	defer cancel()

	results := []checkResult{
		probe("source", func() error {
			return odoo.New(cfg.Source.URL, cfg.Source.Database, cfg.Source.Username, cfg.Source.APIKey).
				Authenticate(ctx)
		}),
		probe("destination", func() error {
			return medusa.New(cfg.Destination.URL, cfg.Destination.Token).Ping(ctx)
		}),
	}

	if err := output.NewFormatter(output.Format(outputFormat)).Format(os.Stdout, results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Status != "ok" {
			return fmt.Errorf("%s check failed: %s", r.System, r.Detail)
		}
	}
	return nil
}

func probe(system string, fn func() error) checkResult {
	if err := fn(); err != nil {
		return checkResult{System: system, Status: "failed", Detail: err.Error()}
	}
	return checkResult{System: system, Status: "ok"}
}
