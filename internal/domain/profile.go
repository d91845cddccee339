// Package domain defines the core types and interfaces for Heron.
package domain

// Tier is the coarse risk bucket derived from a score.
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Tier boundaries on the 0-100 score.
const (
	HighTierMin   = 70
	MediumTierMin = 40
)

// TierFor maps an overall score to its tier.
func TierFor(overall int) Tier {
	switch {
	case overall >= HighTierMin:
		return TierHigh
	case overall >= MediumTierMin:
		return TierMedium
	default:
		return TierLow
	}
}

// Tiers lists every tier in ascending order.
func Tiers() []Tier {
	return []Tier{TierLow, TierMedium, TierHigh}
}

// FraudType is a named behavioral archetype.
type FraudType string

const (
	FraudSerialReturner      FraudType = "Serial Returner"
	FraudWardrobing          FraudType = "Wardrobing"
	FraudReceiptManipulation FraudType = "Receipt Manipulation"
	FraudTimingAnomaly       FraudType = "Timing Anomaly"
	FraudNone                FraudType = "None"
)

// FraudTypes lists the labels in reporting order.
func FraudTypes() []FraudType {
	return []FraudType{
		FraudSerialReturner,
		FraudWardrobing,
		FraudReceiptManipulation,
		FraudTimingAnomaly,
		FraudNone,
	}
}

// FeatureContribution is one signed push on the composite score.
// Value is a raw scalar; descriptions carry the human-readable percentage.
type FeatureContribution struct {
	Feature     string  `json:"feature"`
	Value       float64 `json:"value"`
	Description string  `json:"description"`
}

// RiskScore is the scored outcome for a user.
type RiskScore struct {
	Overall              int                   `json:"overall"`
	Tier                 Tier                  `json:"tier"`
	FeatureContributions []FeatureContribution `json:"featureContributions"`
	BaselineScore        int                   `json:"baselineScore"`
}

// UserProfile is an immutable snapshot of one user's assessment.
type UserProfile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	MemberSince string `json:"memberSince"`

	TotalPurchases  int     `json:"totalPurchases"`
	TotalReturns    int     `json:"totalReturns"`
	ReturnRate      float64 `json:"returnRate"`
	TotalSpend      float64 `json:"totalSpend"`
	AvgDaysToReturn float64 `json:"avgDaysToReturn"`

	Transactions []Transaction `json:"transactions"`

	RiskScore        RiskScore `json:"riskScore"`
	IsFlagged        bool      `json:"isFlagged"`
	PrimaryFraudType FraudType `json:"primaryFraudType"`
	Explanation      string    `json:"explanation"`
	Cluster          string    `json:"cluster"`
}

// Identity carries the descriptive fields of a user being scored.
type Identity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	MemberSince string `json:"memberSince"`
}
