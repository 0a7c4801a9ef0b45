package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/govbizai/matchcore/internal/cache"
	"github.com/govbizai/matchcore/internal/matchcache"
	"github.com/govbizai/matchcore/internal/scoring"
	"github.com/govbizai/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrchestrator() (*Orchestrator, *matchcache.Cache) {
	mc := matchcache.New(cache.NewLRU(1000, time.Hour), nil)
	cfg := types.DefaultConfig()
	o := New(mc, cfg)
	return o, mc
}

func sampleRequest() *types.MatchRequest {
	value := 250000.0
	return &types.MatchRequest{
		Opportunity: types.Opportunity{
			NoticeID:    "NOTICE-1",
			Title:       "IT Support Services",
			Description: "Provide IT support and help desk services nationwide",
			NAICSCode:   "541512",
			PostedDate:  time.Now().Add(-24 * time.Hour),
			ContractValue: &value,
		},
		CompanyProfile: types.CompanyProfile{
			CompanyID:           "COMPANY-1",
			TenantID:             "TENANT-1",
			Name:                 "Acme IT Services",
			CapabilityStatement:  "We provide IT support and help desk services",
			NAICSCodes:           []string{"541512"},
			EmployeeBucket:       types.Employees11To50,
			Active:               true,
			Locations:            []types.Location{{State: "VA"}},
			PastPerformance: []types.PastPerformanceRecord{
				{Agency: "GSA", Description: "help desk", Year: time.Now().Year() - 1},
			},
		},
		UseCache: true,
	}
}

func TestMatch_ProducesScoredResult(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()

	result, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, req.CompanyProfile.CompanyID, result.CompanyID)
	assert.Equal(t, req.Opportunity.NoticeID, result.OpportunityID)
	assert.GreaterOrEqual(t, result.TotalScore, 0.0)
	assert.LessOrEqual(t, result.TotalScore, 1.0)
	assert.False(t, result.Cached)
	assert.NotEmpty(t, result.ComponentScores)
}

func TestMatch_CacheHitSkipsRescoring(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()

	first, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.TotalScore, second.TotalScore)
}

func TestMatch_ForceRefreshBypassesCache(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()

	_, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)

	req.ForceRefresh = true
	second, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)
	assert.False(t, second.Cached)
}

func TestMatch_QuickFilterShortCircuitsOnSetAsideMismatch(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()
	req.Opportunity.SetAside = types.SetAsideSDVOSB // company has no certifications

	result, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.TotalScore)
	assert.Equal(t, types.ConfidenceLow, result.ConfidenceLevel)
	assert.NotEmpty(t, result.MatchReasons)
}

func TestMatch_QuickFilterShortCircuitOnArchived(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()
	req.Opportunity.ArchiveDate = time.Now().Add(-time.Hour)

	result, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.TotalScore)
}

func TestMatch_MissingEmbeddingDegradesGracefully(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()

	result, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)

	sem, ok := result.ComponentDetail["semantic_similarity"]
	require.True(t, ok)
	assert.Equal(t, "missing_embedding", sem.Status)
}

func TestMatch_RejectsMissingIdentifiers(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()
	req.Opportunity.NoticeID = ""

	_, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.Error(t, err)

	var matchErr *types.MatchError
	require.ErrorAs(t, err, &matchErr)
	assert.Equal(t, types.ErrInvalidInput, matchErr.Kind)
}

func TestMatch_DeterministicAcrossRuns(t *testing.T) {
	o, _ := testOrchestrator()
	req := sampleRequest()
	req.UseCache = false

	first, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)
	second, err := o.Match(context.Background(), req, types.DefaultWeights())
	require.NoError(t, err)

	assert.Equal(t, first.TotalScore, second.TotalScore)
	assert.Equal(t, first.MatchReasons, second.MatchReasons)
}

func TestMatch_EmbeddingLookupWired(t *testing.T) {
	mc := matchcache.New(cache.NewLRU(1000, time.Hour), nil)
	cfg := types.DefaultConfig()
	called := false
	o := New(mc, cfg, WithEmbeddingLookup(func(ctx context.Context, opp *types.Opportunity, company *types.CompanyProfile) (scoring.EmbeddingInputs, error) {
		called = true
		return scoring.EmbeddingInputs{}, nil
	}))

	_, err := o.Match(context.Background(), sampleRequest(), types.DefaultWeights())
	require.NoError(t, err)
	assert.True(t, called)
}
