package weights

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/govbizai/matchcore/pkg/types"
)

// PostgresStore implements TenantConfigStore against a
// tenant_weight_overrides table, following the connection/query style
// of internal/store's other Postgres-backed tables (parameterized
// queries over database/sql with lib/pq as the driver).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps db as a TenantConfigStore.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetWeights implements TenantConfigStore.
func (s *PostgresStore) GetWeights(tenantID string) (types.Weights, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(context.Background(),
		`SELECT weights FROM tenant_weight_overrides WHERE tenant_id = $1`,
		tenantID,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("weights: query tenant override: %w", err)
	}

	var w types.Weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false, fmt.Errorf("weights: decode tenant override: %w", err)
	}
	return w, true, nil
}

// Upsert installs or replaces tenantID's weight override.
func (s *PostgresStore) Upsert(tenantID string, w types.Weights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("weights: encode override: %w", err)
	}

	_, err = s.db.ExecContext(context.Background(), `
		INSERT INTO tenant_weight_overrides (tenant_id, weights, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (tenant_id) DO UPDATE
		SET weights = EXCLUDED.weights, updated_at = now()
	`, tenantID, raw)
	if err != nil {
		return fmt.Errorf("weights: upsert tenant override: %w", err)
	}
	return nil
}
