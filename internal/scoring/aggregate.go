// Package scoring turns one user's transaction history into an explainable
// risk assessment: summary statistics, five signed feature contributions,
// a clamped composite score and a rule-based fraud classification.
package scoring

import (
	"slices"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/money"
)

// NoReturnsAvgDays is the average days-to-return of a user with no returns.
const NoReturnsAvgDays = 0.0

// unknownCategory keys returns that carry no category.
const unknownCategory = "Unknown"

// Stats are the summary statistics every later stage reads from.
type Stats struct {
	TotalPurchases int
	TotalReturns   int

	// ReturnRate is returns over purchases, 0 without purchases. It is not
	// clamped; a history with more returns than purchases exceeds 1.
	ReturnRate float64

	// TotalSpend is the sum of purchase amounts at minor-unit precision.
	TotalSpend float64

	// AvgDaysToReturn averages DaysOwned over returns, an unset value
	// counting as 0.
	AvgDaysToReturn float64

	// Mismatches counts returns whose receipt did not match.
	Mismatches int

	// TopCategory is the most frequent category among returns and
	// TopCategoryFraction its share. Both are zero without returns.
	TopCategory         string
	TopCategoryFraction float64
}

// SortByDate returns a copy of txs stably sorted by date.
func SortByDate(txs []domain.Transaction) []domain.Transaction {
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	slices.SortStableFunc(sorted, func(a, b domain.Transaction) int {
		return strings.Compare(a.Date, b.Date)
	})
	return sorted
}

// Aggregate derives Stats from a transaction list. Order does not matter
// except for breaking ties between equally frequent return categories,
// where the category seen first wins.
func Aggregate(txs []domain.Transaction) Stats {
	var (
		s        Stats
		spend    money.Accumulator
		daysSum  float64
		counts   = make(map[string]int)
		seenCats []string
	)

	for i := range txs {
		tx := &txs[i]
		if !tx.IsReturn() {
			s.TotalPurchases++
			spend.Add(tx.Amount)
			continue
		}

		s.TotalReturns++
		daysSum += float64(tx.Days())
		if !tx.ReceiptMatches() {
			s.Mismatches++
		}

		cat := tx.ItemCategory
		if cat == "" {
			cat = unknownCategory
		}
		if counts[cat] == 0 {
			seenCats = append(seenCats, cat)
		}
		counts[cat]++
	}

	s.TotalSpend = spend.Total()

	if s.TotalPurchases > 0 {
		s.ReturnRate = float64(s.TotalReturns) / float64(s.TotalPurchases)
	}

	s.AvgDaysToReturn = NoReturnsAvgDays
	if s.TotalReturns > 0 {
		s.AvgDaysToReturn = daysSum / float64(s.TotalReturns)

		top := 0
		for _, cat := range seenCats {
			if counts[cat] > top {
				top = counts[cat]
				s.TopCategory = cat
			}
		}
		s.TopCategoryFraction = float64(top) / float64(s.TotalReturns)
	}

	return s
}
