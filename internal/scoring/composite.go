package scoring

import (
	"math"

	"github.com/opensource-finance/heron/internal/domain"
)

const (
	// Baseline is the population-average score contributions are added to.
	Baseline = 25

	// Scale maps the contribution sum onto the 0-100 range.
	Scale = 80.0

	minScore = 0
	maxScore = 100
)

// Composite combines contributions into a score in [0,100].
// A non-finite intermediate value yields Baseline.
func Composite(contribs []domain.FeatureContribution) int {
	sum := 0.0
	for _, c := range contribs {
		sum += c.Value
	}

	raw := Baseline + Scale*sum
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Baseline
	}

	raw = math.Round(raw)
	raw = math.Max(minScore, math.Min(maxScore, raw))
	return int(raw)
}
