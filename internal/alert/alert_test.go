package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
)

func flagged(id string, overall int, explanation string) domain.UserProfile {
	tier := domain.TierFor(overall)
	return domain.UserProfile{
		ID:               id,
		Name:             "User " + id,
		RiskScore:        domain.RiskScore{Overall: overall, Tier: tier},
		IsFlagged:        tier == domain.TierHigh,
		PrimaryFraudType: domain.FraudSerialReturner,
		Explanation:      explanation,
	}
}

func TestFromProfiles(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	long := strings.Repeat("é", 130)

	profiles := []domain.UserProfile{
		flagged("U-1", 80, "short"),
		flagged("U-2", 30, "not flagged"),
		flagged("U-3", 72, long),
	}

	alerts := FromProfiles(profiles, now)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}

	first, second := alerts[0], alerts[1]
	if first.ID != "ALT-1000" || second.ID != "ALT-1001" {
		t.Errorf("unexpected ids %s, %s", first.ID, second.ID)
	}
	if first.Severity != domain.SeverityCritical || second.Severity != domain.SeverityWarning {
		t.Errorf("unexpected severities %s, %s", first.Severity, second.Severity)
	}
	if first.Message != "short" {
		t.Errorf("short explanation should be kept whole, got %q", first.Message)
	}
	if second.Message != strings.Repeat("é", 120)+"..." {
		t.Errorf("expected truncation at 120 runes, got %d runes", len([]rune(second.Message)))
	}
	if first.Status != domain.AlertStatusNew || !first.CreatedAt.Equal(now) {
		t.Errorf("unexpected status/time: %+v", first)
	}
	if first.Category != domain.FraudSerialReturner || first.UserID != "U-1" {
		t.Errorf("unexpected alert: %+v", first)
	}
}

func TestForUpload(t *testing.T) {
	u := &domain.Upload{ID: "up-1", Profiles: []domain.UserProfile{flagged("U-1", 90, "x")}}

	alerts := ForUpload(u, time.Now())
	if len(alerts) != 1 || alerts[0].UploadID != "up-1" {
		t.Errorf("expected one alert stamped with upload id, got %+v", alerts)
	}

	if len(FromProfiles(nil, time.Now())) != 0 {
		t.Error("expected no alerts")
	}
}
