package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/govbizai/matchcore/pkg/types"
)

// PostgresCompanyStore implements CompanyStore over the
// company_profiles table.
type PostgresCompanyStore struct {
	db *sql.DB
}

// NewPostgresCompanyStore wraps db as a CompanyStore.
func NewPostgresCompanyStore(db *sql.DB) *PostgresCompanyStore {
	return &PostgresCompanyStore{db: db}
}

// Get implements CompanyStore.
func (s *PostgresCompanyStore) Get(ctx context.Context, companyID string) (*types.CompanyProfile, error) {
	var c types.CompanyProfile
	var naicsJSON, certsJSON, locsJSON, pastJSON []byte

	err := s.db.QueryRowContext(ctx, `
		SELECT company_id, tenant_id, company_name, capability_statement, naics_codes,
		       certifications, employee_count, revenue_range, locations, past_performance,
		       active, vector_uri
		FROM company_profiles WHERE company_id = $1`, companyID,
	).Scan(&c.CompanyID, &c.TenantID, &c.Name, &c.CapabilityStatement, &naicsJSON,
		&certsJSON, &c.EmployeeBucket, &c.RevenueBucket, &locsJSON, &pastJSON, &c.Active, &c.VectorURI)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: company %q not found: %w", companyID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get company %q: %w", companyID, err)
	}

	if err := unmarshalAll(
		jsonField{naicsJSON, &c.NAICSCodes},
		jsonField{certsJSON, &c.Certifications},
		jsonField{locsJSON, &c.Locations},
		jsonField{pastJSON, &c.PastPerformance},
	); err != nil {
		return nil, fmt.Errorf("store: decode company %q: %w", companyID, err)
	}

	return &c, nil
}

// Upsert inserts or replaces a company profile (the profile API of
// spec.md §3, which owns mutation; this adapter only persists it).
func (s *PostgresCompanyStore) Upsert(ctx context.Context, c *types.CompanyProfile) error {
	naics, err := json.Marshal(c.NAICSCodes)
	if err != nil {
		return fmt.Errorf("store: encode naics codes: %w", err)
	}
	certs, err := json.Marshal(c.Certifications)
	if err != nil {
		return fmt.Errorf("store: encode certifications: %w", err)
	}
	locs, err := json.Marshal(c.Locations)
	if err != nil {
		return fmt.Errorf("store: encode locations: %w", err)
	}
	past, err := json.Marshal(c.PastPerformance)
	if err != nil {
		return fmt.Errorf("store: encode past performance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO company_profiles (company_id, tenant_id, company_name, capability_statement,
			naics_codes, certifications, employee_count, revenue_range, locations, past_performance,
			active, vector_uri)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (company_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id, company_name = EXCLUDED.company_name,
			capability_statement = EXCLUDED.capability_statement, naics_codes = EXCLUDED.naics_codes,
			certifications = EXCLUDED.certifications, employee_count = EXCLUDED.employee_count,
			revenue_range = EXCLUDED.revenue_range, locations = EXCLUDED.locations,
			past_performance = EXCLUDED.past_performance, active = EXCLUDED.active, vector_uri = EXCLUDED.vector_uri
	`, c.CompanyID, c.TenantID, c.Name, c.CapabilityStatement, naics, certs, c.EmployeeBucket,
		c.RevenueBucket, locs, past, c.Active, c.VectorURI)
	if err != nil {
		return fmt.Errorf("store: upsert company %q: %w", c.CompanyID, err)
	}
	return nil
}

type jsonField struct {
	raw []byte
	dst interface{}
}

func unmarshalAll(fields ...jsonField) error {
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return err
		}
	}
	return nil
}
