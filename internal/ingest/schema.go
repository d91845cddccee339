// Package ingest maps loosely-named tabular columns onto transactions
// and groups them by user.
package ingest

import (
	"strings"
	"unicode"
)

// Field is a canonical transaction field.
type Field string

const (
	FieldUserID        Field = "userId"
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldType          Field = "type"
	FieldAmount        Field = "amount"
	FieldReceiptMatch  Field = "receiptMatch"
	FieldDaysOwned     Field = "daysOwned"
	FieldDate          Field = "date"
	FieldTransactionID Field = "transactionId"
	FieldCategory      Field = "itemCategory"
	FieldItemName      Field = "itemName"
	FieldReturnReason  Field = "returnReason"
)

// Schema maps each canonical field to its aliases in priority order.
type Schema map[Field][]string

// DefaultSchema returns the alias table used for uploads.
func DefaultSchema() Schema {
	return Schema{
		FieldUserID:        {"userid", "id", "customer", "customerid", "user", "custid", "accountid"},
		FieldName:          {"username", "name", "customername"},
		FieldEmail:         {"useremail", "email", "contact"},
		FieldType:          {"type", "transactiontype", "action", "status"},
		FieldAmount:        {"amount", "price", "total", "value", "cost", "txnamount", "transactionamount", "amountusd"},
		FieldReceiptMatch:  {"receiptmatch", "receipt", "hasreceipt", "validreceipt"},
		FieldDaysOwned:     {"daysowned", "daysheld", "duration", "returndays"},
		FieldDate:          {"date", "timestamp", "createdat", "time"},
		FieldTransactionID: {"transactionid", "txid", "orderid"},
		FieldCategory:      {"itemcategory", "category", "department"},
		FieldItemName:      {"itemname", "item", "product", "productname"},
		FieldReturnReason:  {"returnreason", "reason", "notes"},
	}
}

// Cell is one named value of a row.
type Cell struct {
	Name  string
	Value string
}

// Row is an ordered set of cells, in column order.
type Row []Cell

// NormalizeKey lower-cases s and strips every non-alphanumeric character,
// so "Customer ID" and "customer_id" both become "customerid".
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup returns the value of the first cell whose normalized name equals
// one of the field's aliases. Aliases are tried in order; empty values are
// treated as absent.
func (s Schema) Lookup(row Row, field Field) (string, bool) {
	for _, alias := range s[field] {
		want := NormalizeKey(alias)
		for _, cell := range row {
			if NormalizeKey(cell.Name) != want {
				continue
			}
			if v := strings.TrimSpace(cell.Value); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Resolve reports which canonical field a raw header maps to.
func (s Schema) Resolve(header string) (Field, bool) {
	key := NormalizeKey(header)
	for _, field := range s.fields() {
		for _, alias := range s[field] {
			if NormalizeKey(alias) == key {
				return field, true
			}
		}
	}
	return "", false
}

// fields returns the schema's fields in a fixed order so that Resolve
// is deterministic when an alias appears under two fields.
func (s Schema) fields() []Field {
	order := []Field{
		FieldUserID, FieldName, FieldEmail, FieldType, FieldAmount,
		FieldReceiptMatch, FieldDaysOwned, FieldDate, FieldTransactionID,
		FieldCategory, FieldItemName, FieldReturnReason,
	}
	out := make([]Field, 0, len(s))
	seen := make(map[Field]bool, len(s))
	for _, f := range order {
		if _, ok := s[f]; ok {
			out = append(out, f)
			seen[f] = true
		}
	}
	for f := range s {
		if !seen[f] {
			out = append(out, f)
		}
	}
	return out
}
