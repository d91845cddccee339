package rollup

import (
	"cmp"
	"slices"
	"strings"

	"github.com/opensource-finance/heron/internal/domain"
)

// Sort fields accepted by SortUsers.
const (
	SortRiskScore    = "riskScore"
	SortReturnRate   = "returnRate"
	SortName         = "name"
	SortTotalReturns = "totalReturns"
)

// FilterUsers keeps profiles whose name, id or email contains term,
// ignoring case. An empty term keeps everything.
func FilterUsers(profiles []domain.UserProfile, term string) []domain.UserProfile {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]domain.UserProfile, 0, len(profiles))
	for _, p := range profiles {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Name), term) ||
			strings.Contains(strings.ToLower(p.ID), term) ||
			strings.Contains(strings.ToLower(p.Email), term) {
			out = append(out, p)
		}
	}
	return out
}

// SortUsers returns a stably sorted copy of profiles. Unknown fields sort
// by risk score.
func SortUsers(profiles []domain.UserProfile, field string, desc bool) []domain.UserProfile {
	out := slices.Clone(profiles)
	if out == nil {
		out = []domain.UserProfile{}
	}

	compare := func(a, b domain.UserProfile) int {
		switch field {
		case SortReturnRate:
			return cmp.Compare(a.ReturnRate, b.ReturnRate)
		case SortName:
			return strings.Compare(a.Name, b.Name)
		case SortTotalReturns:
			return cmp.Compare(a.TotalReturns, b.TotalReturns)
		default:
			return cmp.Compare(a.RiskScore.Overall, b.RiskScore.Overall)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.UserProfile) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
	return out
}

// ValidSortField reports whether field is a known sort field.
func ValidSortField(field string) bool {
	switch field {
	case SortRiskScore, SortReturnRate, SortName, SortTotalReturns:
		return true
	}
	return false
}
