// Command matchctl runs a single synchronous match (spec.md §6.1) from
// JSON files on disk and prints the resulting MatchResult. It exists
// for local debugging of the scoring pipeline without standing up the
// full matchengine worker/scheduler process or its external stores.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/govbizai/matchcore/internal/config"
	"github.com/govbizai/matchcore/internal/matchcache"
	"github.com/govbizai/matchcore/internal/cache"
	"github.com/govbizai/matchcore/internal/embedlookup"
	"github.com/govbizai/matchcore/internal/orchestrator"
	vectoradapter "github.com/govbizai/matchcore/internal/vector"
	"github.com/govbizai/matchcore/pkg/types"
	pkgvector "github.com/govbizai/matchcore/pkg/vector"
)

func main() {
	var (
		opportunityPath = flag.String("opportunity", "", "Path to a JSON-encoded Opportunity (required)")
		companyPath     = flag.String("company", "", "Path to a JSON-encoded CompanyProfile (required)")
		configPath      = flag.String("config", "", "Path to a YAML config file (spec.md §6.5); defaults used if omitted")
		useCache        = flag.Bool("use-cache", false, "Consult/populate the in-process match cache (it lasts only for this run)")
		forceRefresh    = flag.Bool("force-refresh", false, "Bypass the cache and recompute")
	)
	flag.Parse()

	if *opportunityPath == "" || *companyPath == "" {
		fmt.Fprintln(os.Stderr, "usage: matchctl -opportunity=opp.json -company=company.json")
		os.Exit(2)
	}

	logger := zap.NewNop()

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		fatal("load config: %v", err)
	}

	opp, err := readOpportunity(*opportunityPath)
	if err != nil {
		fatal("read opportunity: %v", err)
	}
	company, err := readCompany(*companyPath)
	if err != nil {
		fatal("read company: %v", err)
	}

	backend, err := cache.NewForConfig(cfg, "")
	if err != nil {
		fatal("build cache: %v", err)
	}
	matchCache := matchcache.New(backend, logger)

	vectorStore, err := vectoradapter.NewVectorStore(pkgvector.Config{Backend: "memory", Dimension: cfg.EmbeddingDimension})
	if err != nil {
		fatal("build vector store: %v", err)
	}
	defer vectorStore.Close()

	orch := orchestrator.New(matchCache, cfg,
		orchestrator.WithEmbeddingLookup(embedlookup.New(vectorStore, logger).Resolve),
		orchestrator.WithLogger(logger),
	)

	req := &types.MatchRequest{
		Opportunity:    *opp,
		CompanyProfile: *company,
		UseCache:       *useCache,
		ForceRefresh:   *forceRefresh,
	}

	result, err := orch.Match(context.Background(), req, cfg.DefaultWeights)
	if err != nil {
		fatal("match: %v", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fatal("encode result: %v", err)
	}
	fmt.Println(string(out))
}

func readOpportunity(path string) (*types.Opportunity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var opp types.Opportunity
	if err := json.Unmarshal(data, &opp); err != nil {
		return nil, err
	}
	return &opp, nil
}

func readCompany(path string) (*types.CompanyProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var company types.CompanyProfile
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
