// Package alert raises review alerts for flagged users.
package alert

import (
	"fmt"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

const (
	// CriticalScore is the score from which an alert is critical.
	CriticalScore = 80

	// MaxMessageRunes bounds the alert message taken from the explanation.
	MaxMessageRunes = 120

	firstID = 1000
)

// FromProfiles builds one alert per flagged profile, in input order.
func FromProfiles(profiles []domain.UserProfile, now time.Time) []domain.Alert {
	alerts := make([]domain.Alert, 0, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		if !p.IsFlagged {
			continue
		}

		severity := domain.SeverityWarning
		if p.RiskScore.Overall >= CriticalScore {
			severity = domain.SeverityCritical
		}

		alerts = append(alerts, domain.Alert{
			ID:        fmt.Sprintf("ALT-%d", firstID+len(alerts)),
			UserID:    p.ID,
			UserName:  p.Name,
			Severity:  severity,
			Category:  p.PrimaryFraudType,
			Score:     p.RiskScore.Overall,
			Message:   truncate(p.Explanation, MaxMessageRunes),
			Status:    domain.AlertStatusNew,
			CreatedAt: now.UTC(),
		})
	}
	return alerts
}

// ForUpload builds alerts for an upload and stamps them with its id.
func ForUpload(u *domain.Upload, now time.Time) []domain.Alert {
	alerts := FromProfiles(u.Profiles, now)
	for i := range alerts {
		alerts[i].UploadID = u.ID
	}
	return alerts
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
