package scoring

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/heron/internal/domain"
)

// Cluster labels attached to each fraud pattern.
const (
	ClusterReceiptAnomalies = "Receipt Anomalies"
	ClusterHighVolume       = "High Volume Returners"
	ClusterDeadlineGamers   = "Deadline Gamers"
	ClusterEventDriven      = "Event-Driven Returners"
	ClusterNormal           = "Normal Shoppers"
)

const normalExplanation = "Normal purchasing behavior. Return rate and timing are within expected ranges. No suspicious patterns detected."

// Rule is one entry of the classification cascade. Expression is a CEL
// predicate over the variables declared in NewClassifier.
type Rule struct {
	ID         string
	Expression string
	FraudType  domain.FraudType
	Cluster    string
	Floor      int
	Explain    func(Stats) string
}

// DefaultRules returns the cascade in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:         "receipt-manipulation",
			Expression: "mismatches > 0",
			FraudType:  domain.FraudReceiptManipulation,
			Cluster:    ClusterReceiptAnomalies,
			Floor:      75,
			Explain: func(s Stats) string {
				return fmt.Sprintf("Returns show receipt-amount mismatches where the refunded amount exceeds the original purchase price. "+
					"%d transaction(s) flagged for potential receipt swapping.", s.Mismatches)
			},
		},
		{
			ID:         "serial-returner",
			Expression: "return_rate > 0.5 && avg_days < 10.0 && total_returns > 5",
			FraudType:  domain.FraudSerialReturner,
			Cluster:    ClusterHighVolume,
			Floor:      80,
			Explain: func(s Stats) string {
				return fmt.Sprintf("This customer has returned %d items (%.0f%% return rate) with an average ownership of only %.0f days. "+
					"The high volume and rapid return pattern strongly suggests systematic abuse of the return policy.",
					s.TotalReturns, s.ReturnRate*100, s.AvgDaysToReturn)
			},
		},
		{
			ID:         "timing-anomaly",
			Expression: "return_rate > 0.4 && avg_days >= 25.0",
			FraudType:  domain.FraudTimingAnomaly,
			Cluster:    ClusterDeadlineGamers,
			Floor:      72,
			Explain: func(s Stats) string {
				return fmt.Sprintf("%.0f%% of purchases are returned, with returns filed %.0f days post-purchase on average, "+
					"clustering around the return policy deadline.", s.ReturnRate*100, s.AvgDaysToReturn)
			},
		},
		{
			ID:         "wardrobing",
			Expression: "return_rate > 0.4 && top_category_fraction > 0.5 && top_category in ['Apparel', 'Shoes', 'Jewelry']",
			FraudType:  domain.FraudWardrobing,
			Cluster:    ClusterEventDriven,
			Floor:      70,
			Explain: func(s Stats) string {
				return fmt.Sprintf("%.0f%% of returns are %s with a consistent ownership window of about %.0f days, "+
					"suggesting items are used temporarily for events and then returned.",
					s.TopCategoryFraction*100, s.TopCategory, s.AvgDaysToReturn)
			},
		},
	}
}

// Classification is the outcome of running the cascade.
type Classification struct {
	RuleID      string
	FraudType   domain.FraudType
	Cluster     string
	Explanation string

	// Overall is the input score raised to the matched rule's floor.
	Overall int
}

type compiledRule struct {
	Rule
	program cel.Program
}

// Classifier evaluates an ordered rule cascade; the first match wins.
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles rules. Every expression must return bool.
func NewClassifier(rules []Rule) (*Classifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("return_rate", cel.DoubleType),
		cel.Variable("avg_days", cel.DoubleType),
		cel.Variable("total_returns", cel.IntType),
		cel.Variable("total_purchases", cel.IntType),
		cel.Variable("mismatches", cel.IntType),
		cel.Variable("top_category_fraction", cel.DoubleType),
		cel.Variable("top_category", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	c := &Classifier{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		ast, issues := env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", r.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("rule %s: expression must return bool, got %s", r.ID, ast.OutputType())
		}
		program, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("failed to create program for rule %s: %w", r.ID, err)
		}
		c.rules = append(c.rules, compiledRule{Rule: r, program: program})
	}
	return c, nil
}

// Rules returns the loaded rule IDs in evaluation order.
func (c *Classifier) Rules() []string {
	ids := make([]string, len(c.rules))
	for i, r := range c.rules {
		ids[i] = r.ID
	}
	return ids
}

// Classify runs the cascade against s. Without a match the user is
// labelled None and overall is returned unchanged.
func (c *Classifier) Classify(s Stats, overall int) Classification {
	activation := map[string]any{
		"return_rate":           s.ReturnRate,
		"avg_days":              s.AvgDaysToReturn,
		"total_returns":         int64(s.TotalReturns),
		"total_purchases":       int64(s.TotalPurchases),
		"mismatches":            int64(s.Mismatches),
		"top_category_fraction": s.TopCategoryFraction,
		"top_category":          s.TopCategory,
	}

	for _, r := range c.rules {
		out, _, err := r.program.Eval(activation)
		if err != nil {
			slog.Warn("classifier rule evaluation failed", "rule", r.ID, "error", err)
			continue
		}
		if matched, ok := out.(types.Bool); !ok || !bool(matched) {
			continue
		}

		result := Classification{
			RuleID:    r.ID,
			FraudType: r.FraudType,
			Cluster:   r.Cluster,
			Overall:   max(overall, r.Floor),
		}
		if r.Explain != nil {
			result.Explanation = r.Explain(s)
		}
		return result
	}

	return Classification{
		FraudType:   domain.FraudNone,
		Cluster:     ClusterNormal,
		Explanation: normalExplanation,
		Overall:     overall,
	}
}
