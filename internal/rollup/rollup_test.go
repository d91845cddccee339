package rollup

import (
	"reflect"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
)

func profile(id, name, since string, overall int, ft domain.FraudType, txs ...domain.Transaction) domain.UserProfile {
	tier := domain.TierFor(overall)
	return domain.UserProfile{
		ID:               id,
		Name:             name,
		Email:            id + "@example.com",
		MemberSince:      since,
		Transactions:     txs,
		RiskScore:        domain.RiskScore{Overall: overall, Tier: tier},
		IsFlagged:        tier == domain.TierHigh,
		PrimaryFraudType: ft,
	}
}

func tx(date string, kind domain.Kind, amount float64) domain.Transaction {
	return domain.Transaction{Date: date, Kind: kind, Amount: amount}
}

func sample() []domain.UserProfile {
	return []domain.UserProfile{
		profile("U-1", "Ana", "2024-03-01", 80, domain.FraudSerialReturner,
			tx("2024-01-02", domain.KindPurchase, 100),
			tx("2024-01-09", domain.KindReturn, 40.10),
			tx("2024-02-01", domain.KindReturn, 20.20),
		),
		profile("U-2", "Ben", "2023-01-01", 75, domain.FraudReceiptManipulation,
			tx("2024-01-05", domain.KindReturn, 0.1),
		),
		profile("U-3", "Cy", "2024-01-01", 45, domain.FraudNone,
			tx("2024-01-05", domain.KindReturn, 999),
		),
		profile("U-4", "Di", "2023-06-01", 12, domain.FraudNone),
	}
}

func TestDashboard(t *testing.T) {
	m := Dashboard(sample())

	if m.TotalUsers != 4 || m.FlaggedUsers != 2 {
		t.Errorf("expected 4 users / 2 flagged, got %d / %d", m.TotalUsers, m.FlaggedUsers)
	}
	if m.TotalAtRisk != 60.4 {
		t.Errorf("expected at-risk 60.4 from flagged users only, got %v", m.TotalAtRisk)
	}
	if m.AvgRiskScore != 53 {
		t.Errorf("expected avg 53, got %v", m.AvgRiskScore)
	}

	wantFraud := []domain.Bucket{
		{Name: "Serial Returner", Value: 1},
		{Name: "Receipt Manipulation", Value: 1},
	}
	if !reflect.DeepEqual(m.FraudTypeDistribution, wantFraud) {
		t.Errorf("unexpected fraud histogram: %+v", m.FraudTypeDistribution)
	}

	wantTier := []domain.Bucket{
		{Name: "Low", Value: 1},
		{Name: "Medium", Value: 1},
		{Name: "High", Value: 2},
	}
	if !reflect.DeepEqual(m.TierDistribution, wantTier) {
		t.Errorf("unexpected tier histogram: %+v", m.TierDistribution)
	}

	order := []string{"U-2", "U-4", "U-3", "U-1"}
	for i, id := range order {
		if m.Timeline[i].ID != id {
			t.Fatalf("timeline %d: expected %s, got %s", i, id, m.Timeline[i].ID)
		}
	}
}

func TestDashboardEmpty(t *testing.T) {
	m := Dashboard(nil)

	if m.TotalUsers != 0 || m.AvgRiskScore != 0 || m.TotalAtRisk != 0 {
		t.Errorf("expected zero metrics, got %+v", m)
	}
	if len(m.TierDistribution) != 3 {
		t.Errorf("expected all three tiers, got %+v", m.TierDistribution)
	}
	if m.FraudTypeDistribution == nil || m.Timeline == nil {
		t.Error("expected empty, non-nil series")
	}
}

func TestDashboardIdempotent(t *testing.T) {
	profiles := sample()
	first := Dashboard(profiles)
	second := Dashboard(profiles)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("rollup not idempotent:\n%+v\n%+v", first, second)
	}
	if profiles[0].ID != "U-1" {
		t.Error("input was reordered")
	}
}

func TestUserTimeline(t *testing.T) {
	p := profile("U-1", "Ana", "2024-01-01", 10, domain.FraudNone,
		tx("2024-03-04", domain.KindPurchase, 10.10),
		tx("2024-01-02", domain.KindPurchase, 0.1),
		tx("2024-01-20", domain.KindPurchase, 0.2),
		tx("2024-01-21", domain.KindReturn, 5),
	)

	got := UserTimeline(p)
	want := []domain.MonthlyActivity{
		{Month: "2024-01", Purchases: 0.3, Returns: 5},
		{Month: "2024-03", Purchases: 10.1, Returns: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if len(UserTimeline(domain.UserProfile{})) != 0 {
		t.Error("expected empty timeline")
	}
}

func TestFilterUsers(t *testing.T) {
	profiles := sample()

	tests := []struct {
		term string
		want int
	}{
		{"", 4},
		{"ana", 1},
		{"U-", 4},
		{"u-3@EXAMPLE", 1},
		{"zed", 0},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			if got := FilterUsers(profiles, tt.term); len(got) != tt.want {
				t.Errorf("FilterUsers(%q) returned %d, want %d", tt.term, len(got), tt.want)
			}
		})
	}
}

func TestSortUsers(t *testing.T) {
	profiles := sample()
	profiles[1].TotalReturns = 9
	profiles[2].TotalReturns = 9

	ids := func(ps []domain.UserProfile) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		return out
	}

	tests := []struct {
		field string
		desc  bool
		want  []string
	}{
		{SortRiskScore, true, []string{"U-1", "U-2", "U-3", "U-4"}},
		{SortRiskScore, false, []string{"U-4", "U-3", "U-2", "U-1"}},
		{SortName, false, []string{"U-1", "U-2", "U-3", "U-4"}},
		{SortTotalReturns, true, []string{"U-2", "U-3", "U-1", "U-4"}},
		{"bogus", true, []string{"U-1", "U-2", "U-3", "U-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got := ids(SortUsers(profiles, tt.field, tt.desc))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if profiles[0].ID != "U-1" || profiles[3].ID != "U-4" {
		t.Error("input was reordered")
	}
}
