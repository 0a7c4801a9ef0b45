package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/govbizai/matchcore/pkg/types"
)

// PostgresMatchesStore implements MatchesStore over match_results,
// primary key (company_id, opportunity_id), secondary index on
// (company_id, total_score DESC) per spec.md §6.3.
type PostgresMatchesStore struct {
	db *sql.DB
}

// NewPostgresMatchesStore wraps db as a MatchesStore.
func NewPostgresMatchesStore(db *sql.DB) *PostgresMatchesStore {
	return &PostgresMatchesStore{db: db}
}

// Put implements MatchesStore. Per spec.md §5, per-key writes are
// last-writer-wins: an upsert is correct even under concurrent workers
// scoring the same (company, opportunity) pair.
func (s *PostgresMatchesStore) Put(ctx context.Context, r *types.MatchResult) error {
	componentScores, err := json.Marshal(r.ComponentScores)
	if err != nil {
		return fmt.Errorf("store: encode component scores: %w", err)
	}
	componentDetail, err := json.Marshal(r.ComponentDetail)
	if err != nil {
		return fmt.Errorf("store: encode component detail: %w", err)
	}
	matchReasons, err := json.Marshal(r.MatchReasons)
	if err != nil {
		return fmt.Errorf("store: encode match reasons: %w", err)
	}
	recommendations, err := json.Marshal(r.Recommendations)
	if err != nil {
		return fmt.Errorf("store: encode recommendations: %w", err)
	}
	actionItems, err := json.Marshal(r.ActionItems)
	if err != nil {
		return fmt.Errorf("store: encode action items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO match_results (company_id, opportunity_id, total_score, confidence_level,
			component_scores, component_detail, match_reasons, recommendations, action_items,
			processing_time_ms, cached, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (company_id, opportunity_id) DO UPDATE SET
			total_score = EXCLUDED.total_score, confidence_level = EXCLUDED.confidence_level,
			component_scores = EXCLUDED.component_scores, component_detail = EXCLUDED.component_detail,
			match_reasons = EXCLUDED.match_reasons, recommendations = EXCLUDED.recommendations,
			action_items = EXCLUDED.action_items, processing_time_ms = EXCLUDED.processing_time_ms,
			cached = EXCLUDED.cached, status = EXCLUDED.status, created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, r.CompanyID, r.OpportunityID, r.TotalScore, string(r.ConfidenceLevel), componentScores,
		componentDetail, matchReasons, recommendations, actionItems, r.ProcessingTimeMs, r.Cached,
		r.Status, r.CreatedAt, r.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store: put match result (%s,%s): %w", r.CompanyID, r.OpportunityID, err)
	}
	return nil
}

// Query implements MatchesStore's top-N retrieval.
func (s *PostgresMatchesStore) Query(ctx context.Context, companyID string, limit int, order MatchOrder) ([]*types.MatchResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, opportunity_id, total_score, confidence_level, component_scores,
		       component_detail, match_reasons, recommendations, action_items, processing_time_ms,
		       cached, status, created_at, expires_at
		FROM match_results WHERE company_id = $1 ORDER BY total_score DESC LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query match results for %q: %w", companyID, err)
	}
	defer rows.Close()

	var out []*types.MatchResult
	for rows.Next() {
		var r types.MatchResult
		var confidence string
		var componentScores, componentDetail, matchReasons, recommendations, actionItems []byte

		if err := rows.Scan(&r.CompanyID, &r.OpportunityID, &r.TotalScore, &confidence,
			&componentScores, &componentDetail, &matchReasons, &recommendations, &actionItems,
			&r.ProcessingTimeMs, &r.Cached, &r.Status, &r.CreatedAt, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("store: scan match result row: %w", err)
		}
		r.ConfidenceLevel = types.ConfidenceLevel(confidence)
		if err := unmarshalAll(
			jsonField{componentScores, &r.ComponentScores},
			jsonField{componentDetail, &r.ComponentDetail},
			jsonField{matchReasons, &r.MatchReasons},
			jsonField{recommendations, &r.Recommendations},
			jsonField{actionItems, &r.ActionItems},
		); err != nil {
			return nil, fmt.Errorf("store: decode match result row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Delete implements MatchesStore's bulk delete, used by force_refresh
// (spec.md §4.6 step 2).
func (s *PostgresMatchesStore) Delete(ctx context.Context, companyID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM match_results WHERE company_id = $1`, companyID)
	if err != nil {
		return fmt.Errorf("store: delete match results for %q: %w", companyID, err)
	}
	return nil
}
