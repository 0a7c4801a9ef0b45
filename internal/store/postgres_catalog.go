package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/govbizai/matchcore/pkg/types"
)

// PostgresCatalog implements OpportunityCatalog over the opportunities
// table, query style grounded on the teacher's
// internal/audit/postgres_store.go (parameterized ExecContext/QueryContext
// calls, lib/pq as the driver).
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog wraps db as an OpportunityCatalog.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) buildQuery(filter ScanFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.NAICSPrefix) > 0 {
		var ors []string
		for _, p := range filter.NAICSPrefix {
			ors = append(ors, fmt.Sprintf("naics_code LIKE %s", arg(p+"%")))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if filter.PostedAfter != nil {
		conds = append(conds, fmt.Sprintf("posted_date > %s", arg(*filter.PostedAfter)))
	}
	if len(filter.SetAsideIn) > 0 {
		conds = append(conds, fmt.Sprintf("set_aside = ANY(%s)", arg(pq.Array(filter.SetAsideIn))))
	}
	if len(filter.States) > 0 {
		conds = append(conds, fmt.Sprintf("place_state = ANY(%s)", arg(pq.Array(filter.States))))
	}
	if filter.ExcludeArchived {
		asOf := filter.ArchivedAsOf
		if asOf.IsZero() {
			asOf = time.Now().UTC()
		}
		conds = append(conds, fmt.Sprintf("archive_date > %s", arg(asOf)))
	}

	query := "SELECT notice_id, title, description, naics_code, set_aside, posted_date, archive_date, place_state, place_city, contract_value, office, department, vector_uri FROM opportunities"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY notice_id"
	return query, args
}

// Scan implements OpportunityCatalog.
func (c *PostgresCatalog) Scan(ctx context.Context, filter ScanFilter) ([]*types.Opportunity, error) {
	var out []*types.Opportunity
	err := c.ScanFunc(ctx, filter, 500, func(o *types.Opportunity) error {
		out = append(out, o)
		return nil
	})
	return out, err
}

// ScanFunc implements OpportunityCatalog's paginated streaming form.
func (c *PostgresCatalog) ScanFunc(ctx context.Context, filter ScanFilter, pageSize int, fn func(*types.Opportunity) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}

	query, args := c.buildQuery(filter)
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: scan opportunities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return err
		}
		if err := fn(opp); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Get implements OpportunityCatalog.
func (c *PostgresCatalog) Get(ctx context.Context, noticeID string) (*types.Opportunity, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT notice_id, title, description, naics_code, set_aside, posted_date, archive_date,
		       place_state, place_city, contract_value, office, department, vector_uri
		FROM opportunities WHERE notice_id = $1`, noticeID)

	opp, err := scanOpportunity(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: opportunity %q not found: %w", noticeID, err)
	}
	return opp, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row rowScanner) (*types.Opportunity, error) {
	var o types.Opportunity
	var contractValue sql.NullFloat64

	err := row.Scan(
		&o.NoticeID, &o.Title, &o.Description, &o.NAICSCode, &o.SetAside,
		&o.PostedDate, &o.ArchiveDate, &o.PlaceOfPerformance.State, &o.PlaceOfPerformance.City,
		&contractValue, &o.Office, &o.Department, &o.VectorURI,
	)
	if err != nil {
		return nil, fmt.Errorf("store: scan opportunity row: %w", err)
	}
	if contractValue.Valid {
		v := contractValue.Float64
		o.ContractValue = &v
	}
	return &o, nil
}

// Upsert inserts or replaces an opportunity, used by the crawler
// adapter (out of scope per spec.md §1, but the catalog needs a write
// path for tests and for whatever ingests crawler output).
func (c *PostgresCatalog) Upsert(ctx context.Context, o *types.Opportunity) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO opportunities (notice_id, title, description, naics_code, set_aside,
			posted_date, archive_date, place_state, place_city, contract_value, office, department, vector_uri)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (notice_id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, naics_code = EXCLUDED.naics_code,
			set_aside = EXCLUDED.set_aside, posted_date = EXCLUDED.posted_date, archive_date = EXCLUDED.archive_date,
			place_state = EXCLUDED.place_state, place_city = EXCLUDED.place_city, contract_value = EXCLUDED.contract_value,
			office = EXCLUDED.office, department = EXCLUDED.department, vector_uri = EXCLUDED.vector_uri
	`, o.NoticeID, o.Title, o.Description, o.NAICSCode, o.SetAside, o.PostedDate, o.ArchiveDate,
		o.PlaceOfPerformance.State, o.PlaceOfPerformance.City, nullFloat(o.ContractValue), o.Office, o.Department, o.VectorURI)
	if err != nil {
		return fmt.Errorf("store: upsert opportunity %q: %w", o.NoticeID, err)
	}
	return nil
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
