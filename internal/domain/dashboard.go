package domain

import "time"

// DashboardMetrics is the portfolio-level rollup of scored profiles.
type DashboardMetrics struct {
	TotalUsers   int     `json:"totalUsers"`
	FlaggedUsers int     `json:"flaggedUsers"`
	TotalAtRisk  float64 `json:"totalAtRisk"`
	AvgRiskScore float64 `json:"avgRiskScore"`

	FraudTypeDistribution []Bucket        `json:"distributionData"`
	TierDistribution      []Bucket        `json:"tierData"`
	Timeline              []TimelinePoint `json:"timelineData"`
}

// Bucket is one histogram bar.
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// TimelinePoint places a user's score on the member-since axis.
type TimelinePoint struct {
	ID          string `json:"id"`
	Score       int    `json:"score"`
	MemberSince string `json:"memberSince"`
	Name        string `json:"name"`
}

// MonthlyActivity sums a user's purchase and return dollars for one month.
type MonthlyActivity struct {
	Month     string  `json:"month"`
	Purchases float64 `json:"purchases"`
	Returns   float64 `json:"returns"`
}

// Upload is a scored ingestion kept in the cache for reporting views.
type Upload struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenantId"`
	FileName    string        `json:"fileName,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	RowsRead    int           `json:"rowsRead"`
	RowsSkipped int           `json:"rowsSkipped"`
	Profiles    []UserProfile `json:"profiles"`
}

// Profile finds a user in the upload.
func (u *Upload) Profile(userID string) (*UserProfile, bool) {
	for i := range u.Profiles {
		if u.Profiles[i].ID == userID {
			return &u.Profiles[i], true
		}
	}
	return nil, false
}

// Alert severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// AlertStatusNew is the status of every freshly raised alert.
const AlertStatusNew = "new"

// Alert is raised for each flagged user.
type Alert struct {
	ID        string    `json:"id"`
	UploadID  string    `json:"uploadId,omitempty"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Severity  string    `json:"type"`
	Category  FraudType `json:"category"`
	Score     int       `json:"score"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}
