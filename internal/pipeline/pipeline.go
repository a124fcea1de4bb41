// Package pipeline wires one statement run end to end: parse the export,
// classify every transaction against the current ruleset snapshot,
// aggregate, build the synthesis report and archive it.
package pipeline

import (
	"fmt"
	"os"

	"github.com/tvabook-dev/tvabook/internal/archive"
	"github.com/tvabook-dev/tvabook/internal/classify"
	"github.com/tvabook-dev/tvabook/internal/importer"
	"github.com/tvabook-dev/tvabook/internal/model"
	"github.com/tvabook-dev/tvabook/internal/period"
	"github.com/tvabook-dev/tvabook/internal/report"
	"github.com/tvabook-dev/tvabook/internal/rules"
	"github.com/tvabook-dev/tvabook/internal/vat"
)

// Pipeline processes statement files into synthesis reports.
type Pipeline struct {
	Registry *importer.Registry
	Store    *rules.Store
	Archive  *archive.Store // nil disables archiving
	Format   string         // parser format, defaults to credit-agricole
}

// Result is one processed statement.
type Result struct {
	Report     model.SynthesisReport
	ReportID   string // empty when archiving is disabled
	Classified []model.ClassifiedTransaction
}

// ProcessFile runs the pipeline over one statement export.
func (p *Pipeline) ProcessFile(path, account string, per model.Period) (Result, error) {
	format := p.Format
	if format == "" {
		format = "credit-agricole"
	}
	parser := p.Registry.Get(format)
	if parser == nil {
		return Result{}, fmt.Errorf("no parser registered for format %q", format)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening statement %s: %w", path, err)
	}
	defer f.Close()

	txns, err := parser.Parse(f)
	if err != nil {
		return Result{}, fmt.Errorf("parsing statement %s: %w", path, err)
	}
	for i := range txns {
		txns[i].Account = account
	}

	// One snapshot for the whole run: classification and rate lookup see
	// the same ruleset even if an admin mutation lands mid-run.
	snapshot := p.Store.Snapshot()
	classified := classify.All(snapshot, txns)

	summary, err := vat.Aggregate(classified, snapshot)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Report:     report.Build(summary, per, account),
		Classified: classified,
	}

	if p.Archive != nil {
		id, err := p.Archive.Save(res.Report)
		if err != nil {
			return Result{}, fmt.Errorf("archiving report: %w", err)
		}
		res.ReportID = id
	}
	return res, nil
}

// ProcessAccount resolves the statement file for an account and period
// under the base path, then runs ProcessFile.
func (p *Pipeline) ProcessAccount(basePath, account string, per model.Period) (Result, error) {
	path := importer.AccountFile(period.Dir(basePath, per), account)
	return p.ProcessFile(path, account, per)
}
