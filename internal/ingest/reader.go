package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/money"
)

var (
	// ErrParse means the source could not be tokenized as delimited rows.
	ErrParse = errors.New("source is not valid tabular data")

	// ErrNoRecords means parsing succeeded but yielded no usable user.
	ErrNoRecords = errors.New("no valid records found")
)

// Placeholders for missing descriptive fields.
const (
	DefaultCategory = "Other"
	DefaultItemName = "Unknown Item"
)

const utf8BOM = "\ufeff"

// Group is one user's identity and every row attributed to them.
type Group struct {
	Identity     domain.Identity
	Transactions []domain.Transaction
}

// Parser tokenizes delimited files and normalizes their rows.
type Parser struct {
	Schema      Schema
	MemberSince string

	// Now stamps rows that carry no date.
	Now func() time.Time
}

// NewParser creates a parser with the default schema.
func NewParser(memberSince string) *Parser {
	if memberSince == "" {
		memberSince = domain.DefaultMemberSince
	}
	return &Parser{
		Schema:      DefaultSchema(),
		MemberSince: memberSince,
		Now:         time.Now,
	}
}

// ReadRows tokenizes r into rows keyed by the header line. Blank lines are
// ignored; short rows leave trailing columns absent and extra cells are
// dropped.
func (p *Parser) ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, readError(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, readError(err)
		}

		row := make(Row, 0, len(header))
		for i, name := range header {
			if i >= len(record) {
				break
			}
			row = append(row, Cell{Name: name, Value: record[i]})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readError separates malformed input from failures of the underlying reader.
func readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return fmt.Errorf("read source: %w", err)
}

// Normalize maps one row onto a transaction. index is the zero-based data
// row number used for the fallback transaction id. ok is false when the
// row has no user id.
func (p *Parser) Normalize(row Row, index int) (id domain.Identity, tx domain.Transaction, ok bool) {
	get := func(f Field) string {
		v, _ := p.Schema.Lookup(row, f)
		return v
	}

	userID := get(FieldUserID)
	if userID == "" {
		return id, tx, false
	}

	id = domain.Identity{
		ID:          userID,
		Name:        or(get(FieldName), "User "+userID),
		Email:       or(get(FieldEmail), userID+"@email.com"),
		MemberSince: p.MemberSince,
	}

	tx = domain.Transaction{
		ID:           or(get(FieldTransactionID), fmt.Sprintf("T-%d", index)),
		Date:         get(FieldDate),
		Kind:         parseKind(get(FieldType)),
		Amount:       money.Parse(get(FieldAmount)),
		ItemCategory: or(get(FieldCategory), DefaultCategory),
		ItemName:     or(get(FieldItemName), DefaultItemName),
		ReturnReason: get(FieldReturnReason),
		DaysOwned:    parseDays(get(FieldDaysOwned)),
		ReceiptMatch: parseReceipt(get(FieldReceiptMatch)),
	}
	if tx.Date == "" {
		tx.Date = p.now().UTC().Format(time.DateOnly)
	}
	return id, tx, true
}

// Group normalizes rows and buckets them by user id in first-seen order.
// The first row seen for a user fixes its name and email.
func (p *Parser) Group(rows []Row) (groups []Group, skipped int) {
	index := make(map[string]int)
	for i, row := range rows {
		id, tx, ok := p.Normalize(row, i)
		if !ok {
			skipped++
			slog.Debug("skipping row without user id", "row", i)
			continue
		}

		g, seen := index[id.ID]
		if !seen {
			g = len(groups)
			index[id.ID] = g
			groups = append(groups, Group{Identity: id})
		}
		groups[g].Transactions = append(groups[g].Transactions, tx)
	}
	return groups, skipped
}

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func parseKind(raw string) domain.Kind {
	v := strings.ToLower(raw)
	if strings.Contains(v, "return") || strings.Contains(v, "refund") {
		return domain.KindReturn
	}
	return domain.KindPurchase
}

// parseReceipt returns nil when the value is absent.
func parseReceipt(raw string) *bool {
	if raw == "" {
		return nil
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return domain.BoolPtr(true)
	default:
		return domain.BoolPtr(false)
	}
}

// parseDays reads a leading signed integer, so "12 days" yields 12.
func parseDays(raw string) *int {
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return nil
	}
	return &n
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
