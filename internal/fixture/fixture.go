// Package fixture generates synthetic return histories for demos and tests.
// Output is random unless the generator is seeded; nothing in the scoring
// path depends on this package.
package fixture

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/money"
)

// Archetype describes how one kind of shopper buys and returns.
type Archetype struct {
	FraudType domain.FraudType

	// Categories purchases are drawn from; repeats weight the draw.
	Categories []string
	MinAmount  float64
	MaxAmount  float64

	// ReturnProb is the chance each purchase comes back.
	ReturnProb float64
	MinDays    int
	MaxDays    int
	Reasons    []string

	// MismatchProb is the chance a return claims more than was paid.
	MismatchProb float64
}

var (
	categories = []string{"Electronics", "Apparel", "Shoes", "Home & Kitchen", "Beauty", "Sports", "Toys", "Jewelry"}

	returnReasons = []string{
		"Defective product", "Wrong size", "Changed my mind", "Not as described",
		"Better price found", "Unwanted gift", "Arrived too late", "Quality issues",
	}

	itemsByCategory = map[string][]string{
		"Apparel":        {"Designer Dress", "Evening Gown", "Blazer", "Suit Jacket", "Cocktail Dress", "Silk Blouse", "Cashmere Sweater"},
		"Electronics":    {"Wireless Earbuds", "Smart Watch", "Tablet", "Bluetooth Speaker", "Webcam", "Keyboard"},
		"Shoes":          {"Running Shoes", "Dress Shoes", "Sneakers", "Boots", "Sandals"},
		"Home & Kitchen": {"Air Fryer", "Coffee Maker", "Blender", "Vacuum", "Bedding Set"},
		"Beauty":         {"Perfume Set", "Skincare Kit", "Makeup Palette", "Hair Dryer"},
		"Sports":         {"Yoga Mat", "Dumbbells", "Tennis Racket", "Cycling Gloves"},
		"Toys":           {"LEGO Set", "Board Game", "Action Figure", "Puzzle"},
		"Jewelry":        {"Necklace", "Bracelet", "Earrings", "Watch"},
	}

	firstNames = []string{
		"James", "Olivia", "Liam", "Emma", "Noah", "Ava", "Ethan", "Sophia",
		"Mason", "Isabella", "Logan", "Mia", "Lucas", "Charlotte", "Aiden",
		"Amelia", "Jackson", "Harper", "Sebastian", "Evelyn", "Mateo", "Aria",
		"Henry", "Scarlett", "Owen", "Grace", "Alexander", "Chloe", "Daniel",
		"Penelope", "Benjamin", "Layla", "William", "Riley", "Elijah", "Zoey",
		"Ryan", "Nora", "Nathan", "Lily",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
		"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
		"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark",
		"Ramirez", "Lewis", "Robinson", "Walker", "Young", "Allen", "King",
		"Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores",
	}

	historyStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	memberStart  = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Generation windows, in days from the start dates.
const (
	purchaseWindow = 240
	memberWindow   = 700

	minHistory = 12
	maxHistory = 30

	firstUserNumber = 1000
)

// Archetypes returns the shopper archetypes, normal shoppers first.
func Archetypes() []Archetype {
	return []Archetype{
		{
			FraudType:  domain.FraudNone,
			Categories: categories,
			MinAmount:  15,
			MaxAmount:  250,
			ReturnProb: 0.15,
			MinDays:    14,
			MaxDays:    60,
			Reasons:    returnReasons,
		},
		{
			FraudType:  domain.FraudSerialReturner,
			Categories: categories,
			MinAmount:  20,
			MaxAmount:  400,
			ReturnProb: 0.70,
			MinDays:    1,
			MaxDays:    10,
			Reasons:    []string{"Changed my mind", "Not as described", "Wrong size"},
		},
		{
			FraudType:  domain.FraudWardrobing,
			Categories: []string{"Apparel", "Shoes", "Jewelry", "Apparel", "Apparel"},
			MinAmount:  80,
			MaxAmount:  600,
			ReturnProb: 0.55,
			MinDays:    7,
			MaxDays:    14,
			Reasons:    []string{"Changed my mind", "Wrong size"},
		},
		{
			FraudType:    domain.FraudReceiptManipulation,
			Categories:   categories,
			MinAmount:    30,
			MaxAmount:    300,
			ReturnProb:   0.40,
			MinDays:      5,
			MaxDays:      25,
			Reasons:      returnReasons,
			MismatchProb: 0.6,
		},
		{
			FraudType:  domain.FraudTimingAnomaly,
			Categories: categories,
			MinAmount:  25,
			MaxAmount:  350,
			ReturnProb: 0.45,
			MinDays:    27,
			MaxDays:    30,
			Reasons:    []string{"Changed my mind", "Not as described"},
		},
	}
}

// ArchetypeFor looks up an archetype by fraud type.
func ArchetypeFor(ft domain.FraudType) (Archetype, bool) {
	for _, a := range Archetypes() {
		if a.FraudType == ft {
			return a, true
		}
	}
	return Archetype{}, false
}

// Mix is how many users of each archetype a dataset holds.
type Mix struct {
	Archetype Archetype
	Count     int
}

// DefaultMix is the demo portfolio: 20 normal shoppers, 6 serial
// returners, 5 wardrobers, 4 receipt manipulators, 5 deadline gamers.
func DefaultMix() []Mix {
	counts := map[domain.FraudType]int{
		domain.FraudNone:                20,
		domain.FraudSerialReturner:      6,
		domain.FraudWardrobing:          5,
		domain.FraudReceiptManipulation: 4,
		domain.FraudTimingAnomaly:       5,
	}
	var mix []Mix
	for _, a := range Archetypes() {
		mix = append(mix, Mix{Archetype: a, Count: counts[a.FraudType]})
	}
	return mix
}

// User is one generated shopper and the pattern it was generated from.
type User struct {
	domain.Identity
	Archetype    domain.FraudType
	Transactions []domain.Transaction
}

// Generator produces synthetic users. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// New returns a randomly seeded generator.
func New() *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a generator whose output is fixed by seed.
func NewSeeded(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Dataset generates every user of mix. Users are numbered consecutively
// across the mix, matching the order given.
func (g *Generator) Dataset(mix []Mix) []User {
	var users []User
	for _, m := range mix {
		for i := 0; i < m.Count; i++ {
			users = append(users, g.User(len(users), m.Archetype))
		}
	}
	return users
}

// User generates the index-th user with a history drawn from a.
func (g *Generator) User(index int, a Archetype) User {
	first := firstNames[index%len(firstNames)]
	last := lastNames[index%len(lastNames)]
	id := fmt.Sprintf("USR-%d", firstUserNumber+index)

	return User{
		Identity: domain.Identity{
			ID:          id,
			Name:        first + " " + last,
			Email:       strings.ToLower(first) + "." + strings.ToLower(last) + "@email.com",
			MemberSince: dateAfter(memberStart, g.intBetween(0, memberWindow)),
		},
		Archetype:    a.FraudType,
		Transactions: g.Transactions(id, a, g.intBetween(minHistory, maxHistory)),
	}
}

// Transactions generates count purchases for userID, each possibly
// followed by its return.
func (g *Generator) Transactions(userID string, a Archetype, count int) []domain.Transaction {
	txs := make([]domain.Transaction, 0, count*2)
	next := 1
	newID := func() string {
		id := fmt.Sprintf("%s-T%d", userID, next)
		next++
		return id
	}

	for i := 0; i < count; i++ {
		category := pick(g, a.Categories)
		day := g.intBetween(0, purchaseWindow)
		amount := money.Round(g.floatBetween(a.MinAmount, a.MaxAmount))

		txs = append(txs, domain.Transaction{
			ID:           newID(),
			Date:         dateAfter(historyStart, day),
			Kind:         domain.KindPurchase,
			Amount:       amount,
			ItemCategory: category,
			ItemName:     g.item(category),
		})

		if g.rng.Float64() >= a.ReturnProb {
			continue
		}

		days := g.intBetween(a.MinDays, a.MaxDays)
		refunded := amount
		matches := true
		if a.MismatchProb > 0 && g.rng.Float64() < a.MismatchProb {
			refunded = money.Round(amount * g.floatBetween(1.1, 1.5))
			matches = false
		}

		txs = append(txs, domain.Transaction{
			ID:           newID(),
			Date:         dateAfter(historyStart, day+days),
			Kind:         domain.KindReturn,
			Amount:       refunded,
			ItemCategory: category,
			ItemName:     g.item(category),
			ReturnReason: pick(g, a.Reasons),
			DaysOwned:    domain.IntPtr(days),
			ReceiptMatch: domain.BoolPtr(matches),
		})
	}
	return txs
}

func (g *Generator) item(category string) string {
	items, ok := itemsByCategory[category]
	if !ok {
		return "Generic Item"
	}
	return pick(g, items)
}

// intBetween returns a uniform int in [lo, hi].
func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) floatBetween(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func pick[T any](g *Generator, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[g.rng.IntN(len(items))]
}

func dateAfter(start time.Time, days int) string {
	return start.AddDate(0, 0, days).Format(time.DateOnly)
}

// CSVHeader is the column layout written by WriteCSV.
var CSVHeader = []string{
	"userId", "name", "email", "transactionId", "date", "type", "amount",
	"itemCategory", "itemName", "returnReason", "daysOwned", "receiptMatch",
}

// WriteCSV writes one row per transaction, users in order.
func WriteCSV(w io.Writer, users []User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for _, u := range users {
		for _, tx := range u.Transactions {
			days, receipt := "", ""
			if tx.DaysOwned != nil {
				days = strconv.Itoa(*tx.DaysOwned)
			}
			if tx.ReceiptMatch != nil {
				receipt = strconv.FormatBool(*tx.ReceiptMatch)
			}

			record := []string{
				u.ID, u.Name, u.Email, tx.ID, tx.Date, string(tx.Kind), money.Format(tx.Amount),
				tx.ItemCategory, tx.ItemName, tx.ReturnReason, days, receipt,
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write %s: %w", tx.ID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
