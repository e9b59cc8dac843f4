package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"merchant-verdict/internal/product"
	"merchant-verdict/internal/version"
)

// Analyzer produces a report for a single snapshot.
type Analyzer interface {
	Analyze(ctx context.Context, s *product.Snapshot) (*Report, error)
}

var _ Analyzer = (*Engine)(nil)

// Engine runs the full pipeline for one snapshot. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	policy        Policy
	profitability *ProfitabilityCalculator
	opportunity   *OpportunityScorer
	risk          *RiskAssessor
	verdict       *VerdictEngine
	logger        zerolog.Logger
	now           func() time.Time
}

// NewEngine validates the policy and wires the components.
func NewEngine(policy Policy, logger zerolog.Logger) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return &Engine{
		policy:        policy,
		profitability: NewProfitabilityCalculator(policy),
		opportunity:   NewOpportunityScorer(policy),
		risk:          NewRiskAssessor(policy),
		verdict:       NewVerdictEngine(policy),
		logger:        logger.With().Str("component", "engine").Logger(),
		now:           time.Now,
	}, nil
}

// Policy returns the policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Analyze validates the snapshot, runs the three assessments concurrently, then
// the verdict. The snapshot is not modified.
func (e *Engine) Analyze(ctx context.Context, s *product.Snapshot) (*Report, error) {
	if s == nil {
		return nil, product.ErrNilSnapshot
	}
	snap := *s
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("validate snapshot: %w", err)
	}

	f := resolve(&snap, e.policy.Defaults)

	var (
		prof Profitability
		opp  Opportunity
		risk RiskProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prof = e.profitability.calculate(f)
		return gctx.Err()
	})
	g.Go(func() error {
		opp = e.opportunity.score(f)
		return gctx.Err()
	})
	g.Go(func() error {
		risk = e.risk.assess(f)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze %s: %w", snap.ASIN(), err)
	}

	report := &Report{
		ID:               uuid.New(),
		ASIN:             snap.ASIN(),
		Marketplace:      snap.Marketplace,
		Title:            snap.Identification.Title,
		Brand:            snap.Identification.Brand,
		Category:         snap.Category(),
		Profitability:    prof,
		Opportunity:      opp,
		Risk:             risk,
		Verdict:          e.verdict.Decide(prof, opp, risk),
		DataQualityScore: f.dataQuality,
		AnalyzedAt:       e.now().UTC(),
		EngineVersion:    version.Version,
	}

	e.logger.Debug().
		Str("asin", report.ASIN).
		Str("overall", string(report.Verdict.Overall)).
		Int("pl_score", opp.Score).
		Int("risk_score", risk.OverallRiskScore).
		Msg("analysis complete")

	return report, nil
}
