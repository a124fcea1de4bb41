// Package archive persists generated synthesis reports in SQLite. The
// admin service consults it before deleting a category: a category still
// referenced by a pending report must stay.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/tvabook-dev/tvabook/internal/model"
)

// Report lifecycle states.
const (
	StatusPending  = "pending"  // generated, not yet declared
	StatusDeclared = "declared" // figures filed with the tax authority
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id TEXT PRIMARY KEY,
	account TEXT NOT NULL,
	period_start TEXT NOT NULL,
	period_end TEXT NOT NULL,
	status TEXT NOT NULL,
	grand_total TEXT NOT NULL,
	grand_net TEXT NOT NULL,
	grand_vat TEXT NOT NULL,
	vat_due TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_lines (
	report_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	category TEXT NOT NULL,
	rate TEXT NOT NULL,
	total TEXT NOT NULL,
	net TEXT NOT NULL,
	vat TEXT NOT NULL,
	collected TEXT NOT NULL,
	deductible TEXT NOT NULL,
	tx_count INTEGER NOT NULL,
	PRIMARY KEY (report_id, position),
	FOREIGN KEY (report_id) REFERENCES reports(id)
);
`

const dateFormat = "2006-01-02"

// NotFoundError reports an operation on a report ID the archive does not
// hold.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("report %q not found", e.ID)
}

// Store is a SQLite-backed report archive.
type Store struct {
	db *sql.DB
}

// Record is one archived report's header row.
type Record struct {
	ID         string
	Account    string
	Period     model.Period
	Status     string
	GrandTotal decimal.Decimal
	GrandVAT   decimal.Decimal
	VATDue     decimal.Decimal
	CreatedAt  time.Time
}

// Open opens (and migrates) the archive database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating archive db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a synthesis report with status pending. Returns the
// report ID.
func (s *Store) Save(rep model.SynthesisReport) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO reports (id, account, period_start, period_end, status, grand_total, grand_net, grand_vat, vat_due, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rep.Account,
		rep.Period.Start.Format(dateFormat), rep.Period.End.Format(dateFormat),
		StatusPending,
		rep.GrandTotal.String(), rep.GrandNet.String(), rep.GrandVAT.String(), rep.VATDue.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("inserting report: %w", err)
	}

	for i, line := range rep.Lines {
		_, err = tx.Exec(
			`INSERT INTO report_lines (report_id, position, category, rate, total, net, vat, collected, deductible, tx_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, line.Category, line.Rate.String(),
			line.Total.String(), line.Net.String(), line.VAT.String(),
			line.Collected.String(), line.Deductible.String(), line.Count,
		)
		if err != nil {
			return "", fmt.Errorf("inserting report line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing report: %w", err)
	}
	return id, nil
}

// List returns all archived report headers, newest first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT id, account, period_start, period_end, status, grand_total, grand_vat, vat_due, created_at
		 FROM reports ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkDeclared moves a report to the declared state, releasing its hold
// on the categories it references.
func (s *Store) MarkDeclared(id string) error {
	res, err := s.db.Exec(`UPDATE reports SET status = ? WHERE id = ?`, StatusDeclared, id)
	if err != nil {
		return fmt.Errorf("updating report %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating report %s: %w", id, err)
	}
	if n == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// ReferencesCategory reports whether any pending report has transactions
// in the given category.
func (s *Store) ReferencesCategory(category string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM report_lines l
		 JOIN reports r ON r.id = l.report_id
		 WHERE r.status = ? AND l.category = ? AND l.tx_count > 0`,
		StatusPending, category,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking category references: %w", err)
	}
	return n > 0, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var start, end, total, vat, due, created string
	if err := rows.Scan(&rec.ID, &rec.Account, &start, &end, &rec.Status, &total, &vat, &due, &created); err != nil {
		return Record{}, fmt.Errorf("scanning report: %w", err)
	}

	var err error
	if rec.Period.Start, err = time.Parse(dateFormat, start); err != nil {
		return Record{}, fmt.Errorf("parsing period_start %q: %w", start, err)
	}
	if rec.Period.End, err = time.Parse(dateFormat, end); err != nil {
		return Record{}, fmt.Errorf("parsing period_end %q: %w", end, err)
	}
	if rec.GrandTotal, err = decimal.NewFromString(total); err != nil {
		return Record{}, fmt.Errorf("parsing grand_total %q: %w", total, err)
	}
	if rec.GrandVAT, err = decimal.NewFromString(vat); err != nil {
		return Record{}, fmt.Errorf("parsing grand_vat %q: %w", vat, err)
	}
	if rec.VATDue, err = decimal.NewFromString(due); err != nil {
		return Record{}, fmt.Errorf("parsing vat_due %q: %w", due, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return Record{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return rec, nil
}
