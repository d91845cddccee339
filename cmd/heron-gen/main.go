// Heron - Explainable return-fraud risk scoring.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

// heron-gen writes synthetic return histories and scores them offline.
//
// Usage:
//
//	go run ./cmd/heron-gen -out users.csv -seed 42
//	go run ./cmd/heron-gen -analyze users.csv
//	go run ./cmd/heron-gen -eval -seed 42
//
// Generate mode writes a CSV the upload endpoint accepts. Analyze mode runs
// a CSV through the same pipeline the service uses and prints the
// dashboard. Eval mode generates a labelled dataset in memory and compares
// the engine's flags and fraud types against the archetypes it came from.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/alert"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/fixture"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/money"
	"github.com/opensource-finance/heron/internal/rollup"
	"github.com/opensource-finance/heron/internal/scoring"
)

func main() {
	out := flag.String("out", "", "Write generated CSV to this path (default stdout)")
	seed := flag.Uint64("seed", 0, "Seed for reproducible output (0 = random)")
	analyze := flag.String("analyze", "", "Score this CSV offline and print a report")
	eval := flag.Bool("eval", false, "Score a generated dataset against its labels")
	top := flag.Int("top", 10, "Users to list in analyze mode")
	workers := flag.Int("workers", 4, "Scoring workers")

	normal := flag.Int("normal", -1, "Normal shoppers (-1 = default mix)")
	serial := flag.Int("serial", -1, "Serial returners")
	wardrobing := flag.Int("wardrobing", -1, "Wardrobers")
	receipt := flag.Int("receipt", -1, "Receipt manipulators")
	timing := flag.Int("timing", -1, "Timing anomalies")
	flag.Parse()

	engine, err := scoring.NewEngine()
	if err != nil {
		fail("failed to build scoring engine: %v", err)
	}

	if *analyze != "" {
		if err := runAnalyze(*analyze, engine, *workers, *top); err != nil {
			fail("%v", err)
		}
		return
	}

	mix := buildMix(map[domain.FraudType]int{
		domain.FraudNone:                *normal,
		domain.FraudSerialReturner:      *serial,
		domain.FraudWardrobing:          *wardrobing,
		domain.FraudReceiptManipulation: *receipt,
		domain.FraudTimingAnomaly:       *timing,
	})

	gen := fixture.New()
	if *seed != 0 {
		gen = fixture.NewSeeded(*seed)
	}
	users := gen.Dataset(mix)

	if *eval {
		runEval(users, engine)
		return
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fail("failed to create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := fixture.WriteCSV(w, users); err != nil {
		fail("failed to write CSV: %v", err)
	}
	if *out != "" {
		fmt.Fprintf(os.Stderr, "wrote %d users to %s\n", len(users), *out)
	}
}

// buildMix overrides the default mix with any count that was set.
func buildMix(counts map[domain.FraudType]int) []fixture.Mix {
	mix := fixture.DefaultMix()
	for i := range mix {
		if n := counts[mix[i].Archetype.FraudType]; n >= 0 {
			mix[i].Count = n
		}
	}
	return mix
}

func runAnalyze(path string, engine *scoring.Engine, workers, top int) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	start := time.Now()
	res, err := ingest.NewPipeline(ingest.NewParser(""), engine, workers).Run(context.Background(), f)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}
	elapsed := time.Since(start)

	dash := rollup.Dashboard(res.Profiles)
	alerts := alert.FromProfiles(res.Profiles, time.Now())

	fmt.Println("=================================================================")
	fmt.Println("                    HERON UPLOAD ANALYSIS")
	fmt.Println("=================================================================")
	fmt.Printf("\nFile:          %s\n", path)
	fmt.Printf("Rows read:     %d (%d skipped)\n", res.RowsRead, res.RowsSkipped)
	fmt.Printf("Scored in:     %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("\nUsers:         %d\n", dash.TotalUsers)
	fmt.Printf("Flagged:       %d\n", dash.FlaggedUsers)
	fmt.Printf("At risk:       $%s\n", money.Format(dash.TotalAtRisk))
	fmt.Printf("Avg score:     %.1f\n", dash.AvgRiskScore)

	fmt.Println("\nFraud types:")
	for _, b := range dash.FraudTypeDistribution {
		fmt.Printf("  %-22s %d\n", b.Name, b.Value)
	}
	fmt.Println("\nTiers:")
	for _, b := range dash.TierDistribution {
		fmt.Printf("  %-22s %d\n", b.Name, b.Value)
	}

	fmt.Printf("\nTop %d users:\n", min(top, len(res.Profiles)))
	for _, p := range res.Profiles[:min(top, len(res.Profiles))] {
		fmt.Printf("  %-10s %-22s %3d  %-6s %s\n",
			p.ID, p.Name, p.RiskScore.Overall, p.RiskScore.Tier, p.PrimaryFraudType)
	}

	fmt.Printf("\nAlerts: %d\n", len(alerts))
	for _, a := range alerts {
		fmt.Printf("  [%-8s] %s\n", a.Severity, a.Message)
	}
	return nil
}

func runEval(users []fixture.User, engine *scoring.Engine) {
	type counts struct {
		total, flagged, labelled int
	}
	var tp, fp, tn, fn int
	byType := map[domain.FraudType]*counts{}

	for _, u := range users {
		p := engine.Score(u.Identity, u.Transactions)
		fraud := u.Archetype != domain.FraudNone

		switch {
		case fraud && p.IsFlagged:
			tp++
		case fraud:
			fn++
		case p.IsFlagged:
			fp++
		default:
			tn++
		}

		c, ok := byType[u.Archetype]
		if !ok {
			c = &counts{}
			byType[u.Archetype] = c
		}
		c.total++
		if p.IsFlagged {
			c.flagged++
		}
		if p.PrimaryFraudType == u.Archetype {
			c.labelled++
		}
	}

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	fmt.Println("=================================================================")
	fmt.Println("                HERON EVALUATION (synthetic labels)")
	fmt.Println("=================================================================")
	fmt.Println("\nConfusion matrix (flagged vs archetype):")
	fmt.Println("                    Flagged    Not flagged")
	fmt.Printf("  Fraud archetype   %7d    %11d\n", tp, fn)
	fmt.Printf("  Normal shopper    %7d    %11d\n", fp, tn)
	fmt.Printf("\nPrecision: %.2f%%\n", 100*precision)
	fmt.Printf("Recall:    %.2f%%\n", 100*recall)
	fmt.Printf("F1:        %.2f%%\n", 100*f1)

	fmt.Println("\nBy archetype:")
	fmt.Printf("  %-22s %6s %8s %8s\n", "Archetype", "Users", "Flagged", "Labelled")
	fmt.Println("  " + strings.Repeat("-", 47))
	for _, ft := range domain.FraudTypes() {
		c, ok := byType[ft]
		if !ok {
			continue
		}
		fmt.Printf("  %-22s %6d %8d %8d\n", ft, c.total, c.flagged, c.labelled)
	}
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ERROR: "+format+"\n", args...)
	os.Exit(1)
}
