package domain

// Kind distinguishes purchases from returns.
type Kind string

const (
	KindPurchase Kind = "purchase"
	KindReturn   Kind = "return"
)

// Transaction is one purchase or return event in a user's history.
type Transaction struct {
	ID   string `json:"id"`
	Date string `json:"date"` // fixed-width ISO date, compared lexicographically
	Kind Kind   `json:"type"`

	// Amount is the originally charged amount, also for returns.
	Amount float64 `json:"amount"`

	ItemCategory string `json:"itemCategory"`
	ItemName     string `json:"itemName"`

	// Return-only fields
	ReturnReason string `json:"returnReason,omitempty"`
	DaysOwned    *int   `json:"daysOwned,omitempty"`
	ReceiptMatch *bool  `json:"receiptMatch,omitempty"`
}

// IsReturn reports whether the transaction is a return.
func (t *Transaction) IsReturn() bool {
	return t.Kind == KindReturn
}

// ReceiptMatches reports whether the refund matches the original receipt.
// An absent flag counts as a match.
func (t *Transaction) ReceiptMatches() bool {
	return t.ReceiptMatch == nil || *t.ReceiptMatch
}

// Days returns DaysOwned, or 0 when unset.
func (t *Transaction) Days() int {
	if t.DaysOwned == nil {
		return 0
	}
	return *t.DaysOwned
}

// Month returns the YYYY-MM bucket of the transaction date.
func (t *Transaction) Month() string {
	if len(t.Date) < 7 {
		return t.Date
	}
	return t.Date[:7]
}

// IntPtr and BoolPtr help build optional fields in literals.
func IntPtr(v int) *int { return &v }

func BoolPtr(v bool) *bool { return &v }
