package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/heron/internal/bus"
	"github.com/opensource-finance/heron/internal/cache"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/fixture"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/scoring"
	"github.com/opensource-finance/heron/internal/worker"
)

// TestUploadToAlerts runs a generated portfolio through a live HTTP server
// and the alert worker, the same wiring cmd/heron uses.
//
//	CSV upload -> score -> cache -> upload.scored -> worker -> heron.alert
func TestUploadToAlerts(t *testing.T) {
	engine, err := scoring.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	pipeline := ingest.NewPipeline(ingest.NewParser(""), engine, 4)

	store := cache.NewLRUCache(16)
	eventBus := bus.NewChannelBus(256)
	defer eventBus.Close()

	w := worker.NewWorker(eventBus, store)
	if err := w.Start(worker.Config{}); err != nil {
		t.Fatalf("worker Start failed: %v", err)
	}
	defer w.Stop()

	var mu sync.Mutex
	var published []domain.Alert
	_, err = eventBus.Subscribe(context.Background(), tenant, domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		var a domain.Alert
		if err := json.Unmarshal(msg.Payload, &a); err != nil {
			return err
		}
		mu.Lock()
		published = append(published, a)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	srv := httptest.NewServer(NewServer(domain.DefaultConfig(), store, eventBus, pipeline, engine, "e2e").Router())
	defer srv.Close()

	var csv bytes.Buffer
	if err := fixture.WriteCSV(&csv, fixture.NewSeeded(2025).Dataset(fixture.DefaultMix())); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	call := func(method, path string, body []byte, wantStatus int, v any) {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "text/csv")
		req.Header.Set(TenantIDHeader, tenant)

		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != wantStatus {
			t.Fatalf("%s %s: expected status %d, got %d", method, path, wantStatus, resp.StatusCode)
		}
		if resp.Header.Get(TraceIDHeader) == "" {
			t.Errorf("%s %s: missing %s header", method, path, TraceIDHeader)
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}

	var up UploadResponse
	call(http.MethodPost, "/uploads?name=portfolio.csv", csv.Bytes(), http.StatusCreated, &up)

	if up.Users != 40 || up.RowsSkipped != 0 {
		t.Fatalf("expected 40 users and no skipped rows, got %d / %d", up.Users, up.RowsSkipped)
	}
	if up.FlaggedUsers == 0 {
		t.Fatal("expected the fraud archetypes to produce flagged users")
	}

	var listed struct {
		Alerts []domain.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	call(http.MethodGet, "/uploads/"+up.UploadID+"/alerts", nil, http.StatusOK, &listed)
	if listed.Count != up.FlaggedUsers {
		t.Errorf("expected %d alerts, got %d", up.FlaggedUsers, listed.Count)
	}

	var dash domain.DashboardMetrics
	call(http.MethodGet, "/uploads/"+up.UploadID+"/dashboard", nil, http.StatusOK, &dash)
	if dash.TotalUsers != 40 || dash.FlaggedUsers != up.FlaggedUsers {
		t.Errorf("dashboard disagrees with upload: %+v", dash)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(published)
		mu.Unlock()
		if n >= up.FlaggedUsers || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(published) != up.FlaggedUsers {
		t.Fatalf("worker published %d alerts, want %d", len(published), up.FlaggedUsers)
	}

	userIDs := func(alerts []domain.Alert) []string {
		var ids []string
		for _, a := range alerts {
			if a.UploadID != up.UploadID {
				t.Errorf("alert %s carries upload %q", a.ID, a.UploadID)
			}
			ids = append(ids, a.UserID)
		}
		slices.Sort(ids)
		return ids
	}
	if !slices.Equal(userIDs(published), userIDs(listed.Alerts)) {
		t.Error("worker alerts and listed alerts name different users")
	}
}
