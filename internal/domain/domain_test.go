package domain

import (
	"slices"
	"testing"
	"time"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{100, TierHigh},
		{70, TierHigh},
		{69, TierMedium},
		{40, TierMedium},
		{39, TierLow},
		{0, TierLow},
	}

	for _, tt := range tests {
		if got := TierFor(tt.score); got != tt.want {
			t.Errorf("TierFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestTransactionHelpers(t *testing.T) {
	purchase := Transaction{ID: "T1", Date: "2024-03-15", Kind: KindPurchase, Amount: 50}
	if purchase.IsReturn() {
		t.Error("purchase reported as return")
	}
	if !purchase.ReceiptMatches() {
		t.Error("absent receipt flag should count as a match")
	}
	if purchase.Days() != 0 {
		t.Errorf("expected 0 days for unset DaysOwned, got %d", purchase.Days())
	}
	if purchase.Month() != "2024-03" {
		t.Errorf("expected month 2024-03, got %s", purchase.Month())
	}

	ret := Transaction{
		ID:           "T2",
		Date:         "2024-03-20",
		Kind:         KindReturn,
		Amount:       50,
		DaysOwned:    IntPtr(5),
		ReceiptMatch: BoolPtr(false),
	}
	if !ret.IsReturn() || ret.ReceiptMatches() || ret.Days() != 5 {
		t.Errorf("unexpected return helpers: %+v", ret)
	}

	short := Transaction{Date: "2024"}
	if short.Month() != "2024" {
		t.Errorf("short date should pass through, got %s", short.Month())
	}
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoadConfig(t *testing.T) {
	t.Run("Community", func(t *testing.T) {
		cfg := LoadConfig(env(nil))
		if cfg.Tier != TierCommunity || cfg.Cache.Type != "memory" || cfg.EventBus.Type != "channel" {
			t.Errorf("unexpected community config: %+v", cfg)
		}
		if cfg.Tracing.Enabled {
			t.Error("community tier should not trace by default")
		}
		if cfg.Ingest.UploadTTL != 24*time.Hour || cfg.Ingest.MemberSince != DefaultMemberSince {
			t.Errorf("unexpected ingest defaults: %+v", cfg.Ingest)
		}
	})

	t.Run("Pro", func(t *testing.T) {
		cfg := LoadConfig(env(map[string]string{"HERON_TIER": "pro"}))
		if cfg.Tier != TierPro || cfg.Cache.Type != "redis" || cfg.EventBus.Type != "nats" {
			t.Errorf("unexpected pro config: %+v", cfg)
		}
		if !cfg.Cache.EnableTwoPhase || !cfg.Tracing.Enabled {
			t.Error("pro tier should enable two-phase cache and tracing")
		}
	})

	t.Run("UnknownTier", func(t *testing.T) {
		cfg := LoadConfig(env(map[string]string{"HERON_TIER": "enterprise"}))
		if cfg.Tier != TierCommunity {
			t.Errorf("unknown tier should fall back to community, got %s", cfg.Tier)
		}
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("Overrides", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ApplyEnv(env(map[string]string{
			"HERON_HOST":              "127.0.0.1",
			"HERON_PORT":              "9090",
			"HERON_REDIS_ADDR":        "redis:6379",
			"HERON_NATS_URL":          "nats://nats:4222",
			"HERON_LOG_FORMAT":        "text",
			"HERON_DEBUG":             "true",
			"HERON_WORKERS":           "3",
			"HERON_UPLOAD_TTL":        "60",
			"HERON_TRACING":           "true",
			"HERON_OTLP_ENDPOINT":     "collector:4317",
			"HERON_TRACE_SAMPLE_RATE": "0.5",
			"HERON_TENANTS":           " acme, ,globex ",
		}))

		if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
			t.Errorf("unexpected server: %+v", cfg.Server)
		}
		if cfg.Cache.RedisAddr != "redis:6379" || cfg.EventBus.NATSUrl != "nats://nats:4222" {
			t.Errorf("unexpected backends: %s %s", cfg.Cache.RedisAddr, cfg.EventBus.NATSUrl)
		}
		if cfg.Logging.Format != "text" || cfg.Logging.Level != "debug" {
			t.Errorf("unexpected logging: %+v", cfg.Logging)
		}
		if cfg.Ingest.MaxWorkers != 3 || cfg.Ingest.UploadTTL != time.Minute {
			t.Errorf("unexpected ingest: %+v", cfg.Ingest)
		}
		if !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "collector:4317" || cfg.Tracing.SampleRate != 0.5 {
			t.Errorf("unexpected tracing: %+v", cfg.Tracing)
		}
		if !slices.Equal(cfg.AlertTenants, []string{"acme", "globex"}) {
			t.Errorf("unexpected tenants: %v", cfg.AlertTenants)
		}
	})

	t.Run("MalformedValuesIgnored", func(t *testing.T) {
		cfg := ProConfig()
		cfg.ApplyEnv(env(map[string]string{
			"HERON_PORT":              "eighty",
			"HERON_LOG_FORMAT":        "xml",
			"HERON_WORKERS":           "-2",
			"HERON_UPLOAD_TTL":        "0",
			"HERON_TRACING":           "yes",
			"HERON_TRACE_SAMPLE_RATE": "1.5",
		}))

		if cfg.Server.Port != 8080 || cfg.Logging.Format != "json" {
			t.Errorf("malformed values changed config: %+v %+v", cfg.Server, cfg.Logging)
		}
		if cfg.Ingest.MaxWorkers != 8 || cfg.Ingest.UploadTTL != 24*time.Hour {
			t.Errorf("malformed values changed ingest: %+v", cfg.Ingest)
		}
		if !cfg.Tracing.Enabled || cfg.Tracing.SampleRate != 1.0 {
			t.Errorf("malformed values changed tracing: %+v", cfg.Tracing)
		}
	})

	t.Run("TracingOff", func(t *testing.T) {
		cfg := ProConfig()
		cfg.ApplyEnv(env(map[string]string{"HERON_TRACING": "false"}))
		if cfg.Tracing.Enabled {
			t.Error("HERON_TRACING=false should disable tracing")
		}
	})
}

func TestFraudTypes(t *testing.T) {
	types := FraudTypes()
	if len(types) != 5 || types[len(types)-1] != FraudNone {
		t.Errorf("unexpected fraud types: %v", types)
	}
	if !slices.Equal(Tiers(), []Tier{TierLow, TierMedium, TierHigh}) {
		t.Errorf("unexpected tiers: %v", Tiers())
	}
}
