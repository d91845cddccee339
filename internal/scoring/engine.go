package scoring

import (
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/money"
)

// Engine scores user histories. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	classifier *Classifier
}

// NewEngine creates an engine with the default classification cascade.
func NewEngine() (*Engine, error) {
	return NewEngineWithRules(DefaultRules())
}

// NewEngineWithRules creates an engine with a custom cascade.
func NewEngineWithRules(rules []Rule) (*Engine, error) {
	c, err := NewClassifier(rules)
	if err != nil {
		return nil, err
	}
	return &Engine{classifier: c}, nil
}

// Classifier returns the engine's classifier.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Score assembles a complete profile for one user. txs is not modified.
func (e *Engine) Score(id domain.Identity, txs []domain.Transaction) domain.UserProfile {
	sorted := SortByDate(txs)
	stats := Aggregate(sorted)
	contribs := Attribute(stats)
	cls := e.classifier.Classify(stats, Composite(contribs))
	tier := domain.TierFor(cls.Overall)

	return domain.UserProfile{
		ID:          id.ID,
		Name:        id.Name,
		Email:       id.Email,
		MemberSince: id.MemberSince,

		TotalPurchases:  stats.TotalPurchases,
		TotalReturns:    stats.TotalReturns,
		ReturnRate:      money.RoundTo(min(stats.ReturnRate, 1), 3),
		TotalSpend:      stats.TotalSpend,
		AvgDaysToReturn: money.RoundTo(max(stats.AvgDaysToReturn, 0), 1),

		Transactions: sorted,

		RiskScore: domain.RiskScore{
			Overall:              cls.Overall,
			Tier:                 tier,
			FeatureContributions: contribs,
			BaselineScore:        Baseline,
		},
		IsFlagged:        tier == domain.TierHigh,
		PrimaryFraudType: cls.FraudType,
		Explanation:      cls.Explanation,
		Cluster:          cls.Cluster,
	}
}
