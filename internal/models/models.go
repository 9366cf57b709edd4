package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Doctype tags identify the collections the linker reads and writes.
const (
	// DoctypeOperations is the collection of banking operations.
	DoctypeOperations = "io.cozy.bank.operations"
	// DoctypeBills is the collection of vendor bills.
	DoctypeBills = "io.cozy.bills"
)

// dateLayout is the calendar-day layout used for same-day comparisons.
const dateLayout = "2006-01-02"

// Bill represents a financial document emitted by a third-party biller.
// Amount follows the document sign convention: a positive magnitude is an
// expense unless IsRefund is set, in which case the amount is money received.
type Bill struct {
	ID               string          `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	IsRefund         bool            `json:"isRefund,omitempty"`
	Date             time.Time       `json:"date"`
	PaidDate         time.Time       `json:"paidDate,omitempty"`
	Type             string          `json:"type,omitempty"`
	OriginalAmount   decimal.Decimal `json:"originalAmount,omitempty"`
	OriginalDate     time.Time       `json:"originalDate,omitempty"`
	FileAttachmentID string          `json:"fileAttachmentId,omitempty"`
}

// ReferenceDate returns the date used for neighborhood window computation:
// the paid date when known, the bill date otherwise.
func (b *Bill) ReferenceDate() time.Time {
	if !b.PaidDate.IsZero() {
		return b.PaidDate
	}
	return b.Date
}

// Validate performs basic validation on the Bill.
func (b *Bill) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("bill ID cannot be empty")
	}

	if b.Amount.IsZero() {
		return fmt.Errorf("bill amount cannot be zero")
	}

	if b.Date.IsZero() && b.PaidDate.IsZero() {
		return fmt.Errorf("bill needs a date or a paid date")
	}

	return nil
}

// String returns a string representation of the Bill.
func (b *Bill) String() string {
	return fmt.Sprintf("Bill{ID: %s, Amount: %s, Refund: %t, Type: %s, Date: %s}",
		b.ID, b.Amount.String(), b.IsRefund, b.Type, b.ReferenceDate().Format(dateLayout))
}

// UnmarshalJSON implements custom JSON unmarshaling for Bill. Amounts are
// decoded by decimal (numbers or strings), dates as RFC3339 or calendar days.
func (b *Bill) UnmarshalJSON(data []byte) error {
	type Alias Bill
	aux := &struct {
		Date         string `json:"date"`
		PaidDate     string `json:"paidDate"`
		OriginalDate string `json:"originalDate"`
		*Alias
	}{
		Alias: (*Alias)(b),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if b.Date, err = parseOptionalDate(aux.Date); err != nil {
		return fmt.Errorf("invalid bill date: %w", err)
	}
	if b.PaidDate, err = parseOptionalDate(aux.PaidDate); err != nil {
		return fmt.Errorf("invalid bill paid date: %w", err)
	}
	if b.OriginalDate, err = parseOptionalDate(aux.OriginalDate); err != nil {
		return fmt.Errorf("invalid bill original date: %w", err)
	}

	return nil
}

// Reimbursement records that a bill reimburses (part of) an operation.
// OperationID carries the operation debited for the same bill when one was
// matched, and stays empty otherwise.
type Reimbursement struct {
	BillID      string          `json:"billId"`
	Amount      decimal.Decimal `json:"amount"`
	OperationID string          `json:"operationId,omitempty"`
}

// Operation represents a banking transaction owned by the ledger store.
// Amount is signed, negative meaning money out. Bills and Reimbursements are
// the only attributes the linker mutates, append-only and without duplicates.
type Operation struct {
	ID             string          `json:"id"`
	Amount         decimal.Decimal `json:"amount"`
	Label          string          `json:"label"`
	Date           time.Time       `json:"date"`
	Bills          []string        `json:"bills,omitempty"`
	Reimbursements []Reimbursement `json:"reimbursements,omitempty"`
}

// Validate performs basic validation on the Operation.
func (o *Operation) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("operation ID cannot be empty")
	}

	if o.Date.IsZero() {
		return fmt.Errorf("operation date cannot be zero")
	}

	return nil
}

// String returns a string representation of the Operation.
func (o *Operation) String() string {
	return fmt.Sprintf("Operation{ID: %s, Amount: %s, Label: %q, Date: %s}",
		o.ID, o.Amount.String(), o.Label, o.Date.Format(dateLayout))
}

// HasBillReference reports whether the operation already references the bill.
func (o *Operation) HasBillReference(ref string) bool {
	for _, existing := range o.Bills {
		if existing == ref {
			return true
		}
	}
	return false
}

// HasReimbursement reports whether the operation already records a
// reimbursement for the bill. The check is on the raw bill ID, not the full
// record.
func (o *Operation) HasReimbursement(billID string) bool {
	for _, r := range o.Reimbursements {
		if r.BillID == billID {
			return true
		}
	}
	return false
}

// BillReference builds the namespaced reference stored in Operation.Bills.
func BillReference(doctype, billID string) string {
	return doctype + ":" + billID
}

// NormalizeAmount normalizes an amount for refund-aware comparison: the
// magnitude of the amount, negated when the bill is a refund. Both matchers
// route every amount through this helper so the polarity policy lives in one
// place.
func NormalizeAmount(amount decimal.Decimal, isRefund bool) decimal.Decimal {
	normalized := amount.Abs()
	if isRefund {
		normalized = normalized.Neg()
	}
	return normalized
}

// SameCalendarDay reports whether two times denote the same calendar day,
// compared on year, month and day-of-month rather than timestamp equality.
func SameCalendarDay(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}

// MidnightUTC truncates a time to midnight UTC of its calendar day.
func MidnightUTC(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseAmount parses a decimal amount from string, tolerating currency
// symbols and thousand separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseDate attempts to parse a date from string using the formats commonly
// found in bill and operation documents.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return ParseDate(s)
}
