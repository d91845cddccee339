// Package rollup aggregates scored profiles into portfolio views.
// Every function is pure and leaves its input untouched.
package rollup

import (
	"slices"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/money"
)

// Dashboard computes portfolio metrics over profiles.
func Dashboard(profiles []domain.UserProfile) domain.DashboardMetrics {
	m := domain.DashboardMetrics{
		TotalUsers:            len(profiles),
		FraudTypeDistribution: []domain.Bucket{},
		Timeline:              make([]domain.TimelinePoint, 0, len(profiles)),
	}

	var atRisk money.Accumulator
	scoreSum := 0
	fraudCounts := make(map[domain.FraudType]int)
	tierCounts := make(map[domain.Tier]int)

	for i := range profiles {
		p := &profiles[i]
		scoreSum += p.RiskScore.Overall
		fraudCounts[p.PrimaryFraudType]++
		tierCounts[p.RiskScore.Tier]++

		if !p.IsFlagged {
			continue
		}
		m.FlaggedUsers++
		for j := range p.Transactions {
			if p.Transactions[j].IsReturn() {
				atRisk.Add(p.Transactions[j].Amount)
			}
		}
	}

	m.TotalAtRisk = atRisk.Total()
	if len(profiles) > 0 {
		m.AvgRiskScore = money.RoundTo(float64(scoreSum)/float64(len(profiles)), 1)
	}

	for _, ft := range domain.FraudTypes() {
		if ft == domain.FraudNone || fraudCounts[ft] == 0 {
			continue
		}
		m.FraudTypeDistribution = append(m.FraudTypeDistribution, domain.Bucket{Name: string(ft), Value: fraudCounts[ft]})
	}

	for _, tier := range domain.Tiers() {
		m.TierDistribution = append(m.TierDistribution, domain.Bucket{Name: string(tier), Value: tierCounts[tier]})
	}

	for i := range profiles {
		p := &profiles[i]
		m.Timeline = append(m.Timeline, domain.TimelinePoint{
			ID:          p.ID,
			Score:       p.RiskScore.Overall,
			MemberSince: p.MemberSince,
			Name:        p.Name,
		})
	}
	slices.SortStableFunc(m.Timeline, func(a, b domain.TimelinePoint) int {
		return strings.Compare(a.MemberSince, b.MemberSince)
	})

	return m
}

// UserTimeline sums a user's purchase and return amounts per calendar
// month, oldest month first.
func UserTimeline(p domain.UserProfile) []domain.MonthlyActivity {
	type sums struct{ purchases, returns money.Accumulator }
	byMonth := make(map[string]*sums)
	var months []string

	for i := range p.Transactions {
		tx := &p.Transactions[i]
		month := tx.Month()
		s, ok := byMonth[month]
		if !ok {
			s = &sums{}
			byMonth[month] = s
			months = append(months, month)
		}
		if tx.IsReturn() {
			s.returns.Add(tx.Amount)
		} else {
			s.purchases.Add(tx.Amount)
		}
	}

	slices.Sort(months)
	out := make([]domain.MonthlyActivity, 0, len(months))
	for _, month := range months {
		s := byMonth[month]
		out = append(out, domain.MonthlyActivity{
			Month:     month,
			Purchases: s.purchases.Total(),
			Returns:   s.returns.Total(),
		})
	}
	return out
}
