package filter

import (
	"testing"
	"time"

	"github.com/govbizai/matchcore/pkg/types"
	"github.com/stretchr/testify/assert"
)

func baseOpp() *types.Opportunity {
	return &types.Opportunity{
		NoticeID:    "FA8750-24-R-0001",
		Title:       "Cybersecurity Support Services",
		Description: "Network defense operations support for a federal agency.",
		NAICSCode:   "541512",
		PlaceOfPerformance: types.Location{
			State: "VA",
		},
	}
}

func baseCompany() *types.CompanyProfile {
	return &types.CompanyProfile{
		CompanyID:       "company-1",
		NAICSCodes:      []string{"541511"},
		Certifications:  []string{},
		EmployeeBucket:  types.Employees11To50,
		Locations:       []types.Location{{State: "VA"}},
		Active:          true,
	}
}

func TestRun_AllChecksPass(t *testing.T) {
	result := Run(baseOpp(), baseCompany(), DefaultConfig())

	assert.True(t, result.IsPotentialMatch)
	assert.Empty(t, result.FailReasons)
	assert.Len(t, result.PassReasons, 5)
}

func TestIndustryCheck_NAICSPrefixMatch(t *testing.T) {
	opp := baseOpp()
	company := baseCompany()
	result := industryCheck(opp, company, DefaultConfig())
	assert.True(t, result.Passed)
	assert.Equal(t, 1.0, result.Score)
}

func TestIndustryCheck_NAICSPrefixMismatch(t *testing.T) {
	opp := baseOpp()
	opp.NAICSCode = "236220" // construction
	company := baseCompany()
	company.NAICSCodes = []string{"541511"}

	result := industryCheck(opp, company, DefaultConfig())
	assert.False(t, result.Passed)
	assert.Equal(t, 0.0, result.Score)
}

func TestIndustryCheck_MissingDataPassesWithReducedScore(t *testing.T) {
	opp := baseOpp()
	opp.NAICSCode = ""
	company := baseCompany()
	company.NAICSCodes = nil

	result := industryCheck(opp, company, DefaultConfig())
	assert.True(t, result.Passed)
	assert.Equal(t, 0.5, result.Score)
}

func TestIndustryCheck_VocabularyOverlap(t *testing.T) {
	opp := baseOpp()
	opp.NAICSCode = ""
	opp.Description = "Looking for expert cybersecurity support."
	company := baseCompany()
	company.NAICSCodes = nil
	company.CapabilityStatement = "We provide cybersecurity consulting."

	cfg := DefaultConfig()
	cfg.IndustryTokens = map[string][]string{"cybersecurity": {"54"}}

	result := industryCheck(opp, company, cfg)
	assert.True(t, result.Passed)
	assert.Equal(t, 1.0, result.Score)
}

func TestSetAsideCheck_OpenSolicitationPasses(t *testing.T) {
	opp := baseOpp()
	opp.SetAside = ""
	company := baseCompany()

	result := setAsideCheck(opp, company)
	assert.True(t, result.Passed)
}

func TestSetAsideCheck_CertifiedCompanyPasses(t *testing.T) {
	opp := baseOpp()
	opp.SetAside = types.SetAsideSDVOSB
	company := baseCompany()
	company.Certifications = []string{types.SetAsideSDVOSB}

	result := setAsideCheck(opp, company)
	assert.True(t, result.Passed)
}

func TestSetAsideCheck_UncertifiedCompanyFails(t *testing.T) {
	opp := baseOpp()
	opp.SetAside = types.SetAsideWOSB
	company := baseCompany()
	company.Certifications = nil

	result := setAsideCheck(opp, company)
	assert.False(t, result.Passed)
	assert.Equal(t, 0.0, result.Score)
}

func TestSetAsideCheck_UnrecognizedSetAsidePasses(t *testing.T) {
	opp := baseOpp()
	opp.SetAside = "SOMETHING ELSE"
	company := baseCompany()

	result := setAsideCheck(opp, company)
	assert.True(t, result.Passed)
}

func TestGeographyCheck_StateMatch(t *testing.T) {
	opp := baseOpp()
	company := baseCompany()

	result := geographyCheck(opp, company)
	assert.True(t, result.Passed)
	assert.Equal(t, 1.0, result.Score)
}

func TestGeographyCheck_NationwideKeyword(t *testing.T) {
	opp := baseOpp()
	opp.Description = "Nationwide support required."
	company := baseCompany()
	company.Locations = []types.Location{{State: "CA"}}

	result := geographyCheck(opp, company)
	assert.True(t, result.Passed)
	assert.Equal(t, 1.0, result.Score)
}

func TestGeographyCheck_NoMatchPassesReduced(t *testing.T) {
	opp := baseOpp()
	company := baseCompany()
	company.Locations = []types.Location{{State: "CA"}}

	result := geographyCheck(opp, company)
	assert.True(t, result.Passed)
	assert.Equal(t, 0.4, result.Score)
}

func TestGeographyCheck_MissingDataPassesReduced(t *testing.T) {
	opp := baseOpp()
	opp.PlaceOfPerformance.State = ""
	company := baseCompany()

	result := geographyCheck(opp, company)
	assert.True(t, result.Passed)
	assert.Equal(t, 0.4, result.Score)
}

func TestActiveCheck_NoArchiveDatePasses(t *testing.T) {
	opp := baseOpp()
	result := activeCheck(opp)
	assert.True(t, result.Passed)
}

func TestActiveCheck_ArchivedFails(t *testing.T) {
	defer func() { Now = time.Now }()
	Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	opp := baseOpp()
	opp.ArchiveDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	result := activeCheck(opp)
	assert.False(t, result.Passed)
	assert.Equal(t, 0.0, result.Score)
}

func TestActiveCheck_FutureArchiveDatePasses(t *testing.T) {
	defer func() { Now = time.Now }()
	Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	opp := baseOpp()
	opp.ArchiveDate = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)

	result := activeCheck(opp)
	assert.True(t, result.Passed)
}

func TestCapacityCheck_UnparseableDataPassesReduced(t *testing.T) {
	opp := baseOpp()
	opp.ContractValue = nil
	company := baseCompany()
	company.EmployeeBucket = ""

	result := capacityCheck(opp, company, DefaultConfig())
	assert.True(t, result.Passed)
	assert.Equal(t, 0.8, result.Score)
}

func TestCapacityCheck_LargeValueSmallCompanyFails(t *testing.T) {
	opp := baseOpp()
	value := 15_000_000.0
	opp.ContractValue = &value
	opp.Description = "Professional services requirement."
	company := baseCompany()
	company.EmployeeBucket = types.Employees1To10

	result := capacityCheck(opp, company, DefaultConfig())
	assert.False(t, result.Passed)
}

func TestCapacityCheck_LargeValueSmallCompanyWithPartneringPasses(t *testing.T) {
	opp := baseOpp()
	value := 15_000_000.0
	opp.ContractValue = &value
	opp.Description = "Prime contractor should plan to partner with small businesses."
	company := baseCompany()
	company.EmployeeBucket = types.Employees1To10

	result := capacityCheck(opp, company, DefaultConfig())
	assert.True(t, result.Passed)
	assert.Equal(t, 0.6, result.Score)
}

func TestCapacityCheck_SmallValueLargeCompanyPassesReduced(t *testing.T) {
	opp := baseOpp()
	value := 50_000.0
	opp.ContractValue = &value
	company := baseCompany()
	company.EmployeeBucket = types.Employees500Plus

	result := capacityCheck(opp, company, DefaultConfig())
	assert.True(t, result.Passed)
	assert.Equal(t, 0.6, result.Score)
}

func TestCapacityCheck_NormalRangePasses(t *testing.T) {
	opp := baseOpp()
	value := 2_000_000.0
	opp.ContractValue = &value
	company := baseCompany()

	result := capacityCheck(opp, company, DefaultConfig())
	assert.True(t, result.Passed)
	assert.Equal(t, 0.8, result.Score)
}

func TestRun_SetAsideFailureMakesOverallFail(t *testing.T) {
	opp := baseOpp()
	opp.SetAside = types.SetAsideHUBZone
	company := baseCompany()
	company.Certifications = nil

	result := Run(opp, company, DefaultConfig())
	assert.False(t, result.IsPotentialMatch)
	assert.NotEmpty(t, result.FailReasons)
}

func TestRun_ArchivedOpportunityMakesOverallFail(t *testing.T) {
	defer func() { Now = time.Now }()
	Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	opp := baseOpp()
	opp.ArchiveDate = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	company := baseCompany()

	result := Run(opp, company, DefaultConfig())
	assert.False(t, result.IsPotentialMatch)
}

func TestRun_MissingIndustryAndGeographyDataNeverHardFails(t *testing.T) {
	opp := baseOpp()
	opp.NAICSCode = ""
	opp.PlaceOfPerformance.State = ""
	company := baseCompany()
	company.NAICSCodes = nil
	company.Locations = nil

	result := Run(opp, company, DefaultConfig())
	assert.True(t, result.IsPotentialMatch)
}

func TestDefaultConfig_UsesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10_000_000.0, cfg.Capacity.LargeContractValue)
	assert.Equal(t, 100_000.0, cfg.Capacity.SmallContractValue)
}
