package ingest

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("heron-ingest")

// Result is the outcome of one ingestion.
type Result struct {
	Profiles    []domain.UserProfile
	RowsRead    int
	RowsSkipped int
}

// Pipeline parses a file, groups its rows and scores every user.
type Pipeline struct {
	parser     *Parser
	engine     *scoring.Engine
	maxWorkers int
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(parser *Parser, engine *scoring.Engine, maxWorkers int) *Pipeline {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	return &Pipeline{
		parser:     parser,
		engine:     engine,
		maxWorkers: maxWorkers,
	}
}

// Run ingests r. Profiles are sorted by overall score, highest first.
// It fails with ErrParse when r is not tabular and ErrNoRecords when no
// row carries a user id.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ingest.Run")
	defer span.End()

	rows, err := p.parser.ReadRows(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return nil, err
	}

	groups, skipped := p.parser.Group(rows)
	span.SetAttributes(
		attribute.Int("ingest.rows_read", len(rows)),
		attribute.Int("ingest.rows_skipped", skipped),
		attribute.Int("ingest.users", len(groups)),
	)
	if len(groups) == 0 {
		span.SetStatus(codes.Error, "no records")
		return nil, ErrNoRecords
	}

	profiles := p.ScoreGroups(ctx, groups)

	slog.Info("ingest completed",
		"rows_read", len(rows),
		"rows_skipped", skipped,
		"users", len(profiles),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Result{
		Profiles:    profiles,
		RowsRead:    len(rows),
		RowsSkipped: skipped,
	}, nil
}

// ScoreGroups scores each group in parallel and returns the profiles
// sorted by overall score, highest first.
func (p *Pipeline) ScoreGroups(ctx context.Context, groups []Group) []domain.UserProfile {
	_, span := tracer.Start(ctx, "ingest.Score", trace.WithAttributes(
		attribute.Int("ingest.users", len(groups)),
	))
	defer span.End()

	profiles := make([]domain.UserProfile, len(groups))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, p.maxWorkers)

	for i := range groups {
		wg.Add(1)
		go func(idx int, g *Group) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			profiles[idx] = p.engine.Score(g.Identity, g.Transactions)
		}(i, &groups[i])
	}

	wg.Wait()

	SortByRisk(profiles)
	return profiles
}

// SortByRisk stably orders profiles by overall score, highest first.
func SortByRisk(profiles []domain.UserProfile) {
	slices.SortStableFunc(profiles, func(a, b domain.UserProfile) int {
		return b.RiskScore.Overall - a.RiskScore.Overall
	})
}
