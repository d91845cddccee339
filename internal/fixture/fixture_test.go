package fixture

import (
	"bytes"
	"context"
	"reflect"
	"slices"
	"testing"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/scoring"
)

func TestSeededIsReproducible(t *testing.T) {
	a := NewSeeded(42).Dataset(DefaultMix())
	b := NewSeeded(42).Dataset(DefaultMix())

	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different datasets")
	}

	c := NewSeeded(43).Dataset(DefaultMix())
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical datasets")
	}
}

func TestDefaultMix(t *testing.T) {
	users := New().Dataset(DefaultMix())
	if len(users) != 40 {
		t.Fatalf("expected 40 users, got %d", len(users))
	}

	counts := map[domain.FraudType]int{}
	for _, u := range users {
		counts[u.Archetype]++
	}
	if counts[domain.FraudNone] != 20 || counts[domain.FraudSerialReturner] != 6 ||
		counts[domain.FraudWardrobing] != 5 || counts[domain.FraudReceiptManipulation] != 4 ||
		counts[domain.FraudTimingAnomaly] != 5 {
		t.Errorf("unexpected archetype counts: %v", counts)
	}

	if users[0].ID != "USR-1000" || users[0].Name != "James Smith" || users[0].Email != "james.smith@email.com" {
		t.Errorf("unexpected first user: %+v", users[0].Identity)
	}
	if users[39].ID != "USR-1039" {
		t.Errorf("expected consecutive ids, got %s last", users[39].ID)
	}
}

func TestArchetypeShapes(t *testing.T) {
	g := NewSeeded(7)

	for _, a := range Archetypes() {
		t.Run(string(a.FraudType), func(t *testing.T) {
			txs := g.Transactions("U", a, 200)

			purchases := 0
			for i, tx := range txs {
				if !slices.Contains(a.Categories, tx.ItemCategory) {
					t.Fatalf("category %q outside archetype", tx.ItemCategory)
				}
				if tx.ItemName == "" || tx.Date == "" {
					t.Fatalf("incomplete transaction: %+v", tx)
				}

				if !tx.IsReturn() {
					purchases++
					if tx.Amount < a.MinAmount || tx.Amount > a.MaxAmount {
						t.Fatalf("purchase amount %v outside [%v, %v]", tx.Amount, a.MinAmount, a.MaxAmount)
					}
					continue
				}

				if d := tx.Days(); d < a.MinDays || d > a.MaxDays {
					t.Fatalf("days owned %d outside [%d, %d]", d, a.MinDays, a.MaxDays)
				}
				if !slices.Contains(a.Reasons, tx.ReturnReason) {
					t.Fatalf("reason %q outside archetype", tx.ReturnReason)
				}

				// a return always follows its purchase
				bought := txs[i-1]
				if bought.IsReturn() || bought.ItemCategory != tx.ItemCategory || tx.Date < bought.Date {
					t.Fatalf("return %s does not follow its purchase", tx.ID)
				}
				if tx.ReceiptMatches() {
					if tx.Amount != bought.Amount {
						t.Fatalf("matching receipt refunds %v for %v", tx.Amount, bought.Amount)
					}
				} else if a.MismatchProb == 0 || tx.Amount < bought.Amount {
					t.Fatalf("unexpected mismatch: %+v", tx)
				}
			}

			if purchases != 200 {
				t.Errorf("expected 200 purchases, got %d", purchases)
			}
		})
	}
}

func TestArchetypeFor(t *testing.T) {
	a, ok := ArchetypeFor(domain.FraudWardrobing)
	if !ok || a.MinDays != 7 || a.MaxDays != 14 {
		t.Errorf("unexpected wardrobing archetype: %+v", a)
	}
	if _, ok := ArchetypeFor("Unknown"); ok {
		t.Error("expected no archetype for unknown type")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	users := NewSeeded(1).Dataset(DefaultMix())

	var buf bytes.Buffer
	if err := WriteCSV(&buf, users); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	engine, err := scoring.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	res, err := ingest.NewPipeline(ingest.NewParser(""), engine, 4).Run(context.Background(), &buf)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	rows := 0
	byID := map[string]User{}
	for _, u := range users {
		rows += len(u.Transactions)
		byID[u.ID] = u
	}
	if res.RowsRead != rows || res.RowsSkipped != 0 {
		t.Errorf("expected %d rows and none skipped, got %d / %d", rows, res.RowsRead, res.RowsSkipped)
	}
	if len(res.Profiles) != len(users) {
		t.Fatalf("expected %d profiles, got %d", len(users), len(res.Profiles))
	}

	for _, p := range res.Profiles {
		u, ok := byID[p.ID]
		if !ok {
			t.Fatalf("unknown profile %s", p.ID)
		}
		if p.Name != u.Name || p.Email != u.Email {
			t.Errorf("%s: identity not preserved: %s <%s>", p.ID, p.Name, p.Email)
		}
		if len(p.Transactions) != len(u.Transactions) {
			t.Errorf("%s: expected %d transactions, got %d", p.ID, len(u.Transactions), len(p.Transactions))
		}

		direct := engine.Score(u.Identity, u.Transactions)
		if direct.RiskScore.Overall != p.RiskScore.Overall || direct.PrimaryFraudType != p.PrimaryFraudType {
			t.Errorf("%s: ingest scored %d/%s, direct scoring %d/%s",
				p.ID, p.RiskScore.Overall, p.PrimaryFraudType, direct.RiskScore.Overall, direct.PrimaryFraudType)
		}
	}
}

func TestReceiptMismatchesAreClassified(t *testing.T) {
	engine, err := scoring.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	a, _ := ArchetypeFor(domain.FraudReceiptManipulation)
	g := NewSeeded(99)
	for i := 0; i < 20; i++ {
		u := g.User(i, a)
		mismatched := slices.ContainsFunc(u.Transactions, func(tx domain.Transaction) bool {
			return tx.IsReturn() && !tx.ReceiptMatches()
		})
		if !mismatched {
			continue
		}

		p := engine.Score(u.Identity, u.Transactions)
		if p.PrimaryFraudType != domain.FraudReceiptManipulation || p.RiskScore.Overall < 75 || !p.IsFlagged {
			t.Errorf("%s: expected flagged receipt manipulation, got %s at %d", u.ID, p.PrimaryFraudType, p.RiskScore.Overall)
		}
	}
}
