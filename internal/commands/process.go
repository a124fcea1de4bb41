package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvabook-dev/tvabook/internal/archive"
	"github.com/tvabook-dev/tvabook/internal/config"
	"github.com/tvabook-dev/tvabook/internal/importer"
	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/period"
	"github.com/tvabook-dev/tvabook/internal/pipeline"
	"github.com/tvabook-dev/tvabook/internal/report"
)

func newProcessCommand() *cobra.Command {
	var workDir string
	var account string
	var periodStr string
	var filePath string
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Classify a statement and build the VAT synthesis report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(workDir, account, periodStr, filePath, noArchive)
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", ".", "working directory")
	cmd.Flags().StringVar(&account, "account", "", "bank account number (default: all configured accounts)")
	cmd.Flags().StringVar(&periodStr, "period", "", "statement period YYYY-MM (default: previous month)")
	cmd.Flags().StringVar(&filePath, "file", "", "explicit statement file (requires --account)")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "skip archiving the generated report")

	return cmd
}

func runProcess(workDir, account, periodStr, filePath string, noArchive bool) error {
	absDir, cfg, store, err := loadWorkdir(workDir)
	if err != nil {
		return err
	}

	per := period.Previous(time.Now())
	if periodStr != "" {
		per, err = period.Parse(periodStr)
		if err != nil {
			return err
		}
	}

	p := &pipeline.Pipeline{
		Registry: importer.DefaultRegistry(),
		Store:    store,
	}
	if !noArchive {
		arch, err := archive.Open(cfg.ArchiveFile)
		if err != nil {
			return err
		}
		defer arch.Close()
		p.Archive = arch
	}

	if filePath != "" {
		if account == "" {
			return fmt.Errorf("--file requires --account")
		}
		result, err := p.ProcessFile(filePath, account, per)
		if err != nil {
			return err
		}
		return writeSynthesis(absDir, result, per)
	}

	accounts := cfg.Accounts
	if account != "" {
		accounts = []string{account}
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts configured in %s", config.FileName)
	}

	for _, acc := range accounts {
		result, err := p.ProcessAccount(cfg.BasePath, acc, per)
		if err != nil {
			return fmt.Errorf("account %s: %w", acc, err)
		}
		if err := writeSynthesis(absDir, result, per); err != nil {
			return fmt.Errorf("account %s: %w", acc, err)
		}
	}
	return nil
}

// writeSynthesis renders the synthesis CSV next to the statements and
// prints the headline figures.
func writeSynthesis(workDir string, result pipeline.Result, per model.Period) error {
	name := fmt.Sprintf("synthesis_%s_%s.csv", result.Report.Account, period.Format(per))
	path := filepath.Join(workDir, "statements", name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating synthesis file: %w", err)
	}
	defer f.Close()

	if err := report.WriteCSV(f, result.Report); err != nil {
		return fmt.Errorf("writing synthesis: %w", err)
	}

	fmt.Printf("%s %s: %d transactions, total %s, VAT due %s -> %s\n",
		result.Report.Account, period.Format(per),
		len(result.Classified),
		result.Report.GrandTotal.StringFixed(2),
		result.Report.VATDue.StringFixed(2),
		path)
	if result.ReportID != "" {
		fmt.Printf("archived as %s\n", result.ReportID)
	}
	return nil
}
