package scoring

import (
	"fmt"

	"github.com/opensource-finance/heron/internal/domain"
)

// Feature names, in the order contributions are reported.
const (
	FeatureReturnRate       = "Return Rate"
	FeatureReturnTiming     = "Return Timing"
	FeatureReturnVolume     = "Return Volume"
	FeatureReceiptIntegrity = "Receipt Integrity"
	FeatureCategoryFocus    = "Category Concentration"
)

// PlatformReturnRate is the average return rate descriptions compare against.
const PlatformReturnRate = 0.12

// feature scores one statistic. The branch that picks the value also
// picks the wording, so the two cannot disagree.
type feature struct {
	name  string
	score func(Stats) (float64, string)
}

var features = []feature{
	{FeatureReturnRate, returnRate},
	{FeatureReturnTiming, returnTiming},
	{FeatureReturnVolume, returnVolume},
	{FeatureReceiptIntegrity, receiptIntegrity},
	{FeatureCategoryFocus, categoryConcentration},
}

// Attribute computes the five feature contributions in fixed order.
func Attribute(s Stats) []domain.FeatureContribution {
	out := make([]domain.FeatureContribution, 0, len(features))
	for _, f := range features {
		v, desc := f.score(s)
		out = append(out, domain.FeatureContribution{
			Feature:     f.name,
			Value:       v,
			Description: desc,
		})
	}
	return out
}

func returnRate(s Stats) (float64, string) {
	var v float64
	var phrase string
	switch r := s.ReturnRate; {
	case r > 0.5:
		v, phrase = 0.35, "far exceeds"
	case r > 0.3:
		v, phrase = 0.18, "significantly exceeds"
	case r > 0.15:
		v, phrase = 0.05, "slightly exceeds"
	default:
		v, phrase = -0.05, "is within"
	}
	return v, fmt.Sprintf("Return rate of %.0f%% %s the platform average of %.0f%%.",
		s.ReturnRate*100, phrase, PlatformReturnRate*100)
}

func returnTiming(s Stats) (float64, string) {
	d := s.AvgDaysToReturn
	switch {
	case d > 0 && d < 5:
		return 0.20, fmt.Sprintf("Extremely fast returns (avg %.0f days). Items barely used before return.", d)
	case d >= 5 && d < 15:
		return 0.10, fmt.Sprintf("Average return timing of %.0f days is somewhat quick.", d)
	case d > 25:
		return 0.15, fmt.Sprintf("Returns cluster near the 30-day policy deadline (avg %.0f days).", d)
	default:
		return -0.03, fmt.Sprintf("Average return timing of %.0f days is within normal range.", d)
	}
}

func returnVolume(s Stats) (float64, string) {
	n := s.TotalReturns
	switch {
	case n > 15:
		return 0.22, fmt.Sprintf("%d total returns, abnormally high volume.", n)
	case n > 8:
		return 0.10, fmt.Sprintf("%d total returns, elevated volume.", n)
	default:
		return -0.02, fmt.Sprintf("%d total returns, within normal range.", n)
	}
}

func receiptIntegrity(s Stats) (float64, string) {
	n := s.Mismatches
	switch {
	case n > 3:
		return 0.28, fmt.Sprintf("%d returns with receipt amount mismatches detected, a repeated pattern.", n)
	case n > 0:
		return 0.12, fmt.Sprintf("%d return(s) with receipt amount mismatches detected.", n)
	default:
		return -0.05, "All receipts match, no manipulation signals."
	}
}

func categoryConcentration(s Stats) (float64, string) {
	f := s.TopCategoryFraction
	switch {
	case s.TotalReturns == 0:
		return -0.03, "No returns to evaluate."
	case f > 0.7:
		return 0.15, fmt.Sprintf("%.0f%% of returns are in %q, highly concentrated.", f*100, s.TopCategory)
	case f > 0.4:
		return 0.05, fmt.Sprintf("%.0f%% of returns are in %q, moderately concentrated.", f*100, s.TopCategory)
	default:
		return -0.03, fmt.Sprintf("%.0f%% of returns are in %q, spread across categories.", f*100, s.TopCategory)
	}
}
