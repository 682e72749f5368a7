// Package models defines the core domain types of the reconciliation engine:
// raw spreadsheet grids, extracted bank movements, pending invoices and the
// match candidates that pair them.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatementDateLayout is the canonical date format for extracted movements.
const StatementDateLayout = "02/01/2006"

// UnparsedDate is the sentinel stored when a statement date could not be
// parsed. It is visibly wrong to an operator and sorts after real dates.
const UnparsedDate = "00/00/0000"

// Cell is a single spreadsheet cell as produced by the decoder. Numeric cells
// carry both the display text and the underlying value so date serials and
// unformatted amounts survive decoding.
type Cell struct {
	Text     string  `json:"text"`
	Number   float64 `json:"number,omitempty"`
	IsNumber bool    `json:"is_number,omitempty"`
}

// TextCell creates a plain text cell
func TextCell(text string) Cell {
	return Cell{Text: text}
}

// NumberCell creates a numeric cell
func NumberCell(value float64, text string) Cell {
	return Cell{Text: text, Number: value, IsNumber: true}
}

// IsEmpty reports whether the cell holds no usable content
func (c Cell) IsEmpty() bool {
	return !c.IsNumber && strings.TrimSpace(c.Text) == ""
}

// Row is an ordered sequence of cells
type Row []Cell

// Strings returns the row's cell texts, for audit metadata and logging
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Text
	}
	return out
}

// RawGrid is the ordered 2-D cell grid decoded from the first sheet of an
// uploaded statement workbook. It is immutable input to the extractor.
type RawGrid []Row

// PaymentStatus is the lifecycle state of an invoice
type PaymentStatus string

const (
	// PaymentStatusPending marks an invoice awaiting reconciliation
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid marks an invoice settled by a confirmed movement
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusVoid marks an invoice cancelled outside reconciliation
	PaymentStatusVoid PaymentStatus = "void"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid || s == PaymentStatusVoid
}

// Confidence classifies how a match candidate was produced
type Confidence string

const (
	// ConfidenceHigh marks candidates produced by the automatic amount match
	ConfidenceHigh Confidence = "high"
	// ConfidenceManual marks candidates confirmed by the operator
	ConfidenceManual Confidence = "manual"
)

// IsValid checks if the confidence level is valid
func (c Confidence) IsValid() bool {
	return c == ConfidenceHigh || c == ConfidenceManual
}

// Movement is a single incoming bank transaction extracted from a statement.
// Only credits are modeled: Amount is strictly positive by construction and
// debits never become movements. Movements are never mutated after creation
// and live only for the duration of a reconciliation session.
type Movement struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"` // DD/MM/YYYY, or UnparsedDate
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	OriginalRow Row             `json:"original_row"` // kept for audit
}

// NewMovement creates a Movement with a fresh id
func NewMovement(date, description string, amount decimal.Decimal, source string, originalRow Row) *Movement {
	return &Movement{
		ID:          uuid.NewString(),
		Date:        date,
		Description: description,
		Amount:      amount,
		Source:      source,
		OriginalRow: originalRow,
	}
}

// Validate performs basic validation on the Movement
func (m *Movement) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("movement id cannot be empty")
	}

	if !m.Amount.IsPositive() {
		return fmt.Errorf("movement amount must be positive, got %s", m.Amount.String())
	}

	if strings.TrimSpace(m.Source) == "" {
		return fmt.Errorf("movement source cannot be empty")
	}

	if m.Date != UnparsedDate {
		if _, err := ParseStatementDate(m.Date); err != nil {
			return fmt.Errorf("invalid movement date: %w", err)
		}
	}

	return nil
}

// ParsedDate returns the movement date as a time, and whether it parsed
func (m *Movement) ParsedDate() (time.Time, bool) {
	t, err := ParseStatementDate(m.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// String returns a string representation of the Movement
func (m *Movement) String() string {
	return fmt.Sprintf("Movement{ID: %s, Date: %s, Amount: %s, Source: %s, Description: %q}",
		m.ID, m.Date, m.Amount.String(), m.Source, m.Description)
}

// PendingInvoice is an internally generated pre-invoice awaiting payment.
// It is owned by the document store: the engine reads it, and only a
// committed reconciliation transitions it from pending to paid.
type PendingInvoice struct {
	ID            string           `json:"id"`
	ClientName    string           `json:"client_name"`
	ProjectName   string           `json:"project_name"`
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	CreatedAt     time.Time        `json:"created_at"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	Payment       *PaymentMetadata `json:"payment,omitempty"`
}

// PaymentMetadata is the audit trail attached to a paid invoice
type PaymentMetadata struct {
	Source                 string    `json:"source"`
	TransactionDate        string    `json:"transaction_date"`
	TransactionDescription string    `json:"transaction_description"`
	OriginalRow            []string  `json:"original_row"`
	ReconciledAt           time.Time `json:"reconciled_at"`
}

// Validate performs basic validation on the PendingInvoice
func (inv *PendingInvoice) Validate() error {
	if strings.TrimSpace(inv.ID) == "" {
		return fmt.Errorf("invoice id cannot be empty")
	}

	if !inv.PaymentStatus.IsValid() {
		return fmt.Errorf("invalid payment status: %s", inv.PaymentStatus)
	}

	if inv.TotalAmount.IsNegative() {
		return fmt.Errorf("invoice total cannot be negative, got %s", inv.TotalAmount.String())
	}

	return nil
}

// IsPending reports whether the invoice is still awaiting payment
func (inv *PendingInvoice) IsPending() bool {
	return inv.PaymentStatus == PaymentStatusPending
}

// String returns a string representation of the PendingInvoice
func (inv *PendingInvoice) String() string {
	return fmt.Sprintf("PendingInvoice{ID: %s, Client: %s, Project: %s, Total: %s, Status: %s}",
		inv.ID, inv.ClientName, inv.ProjectName, inv.TotalAmount.String(), inv.PaymentStatus)
}

// MatchCandidate pairs one movement with one invoice. Candidates are
// transient session state; they become durable only once committed.
type MatchCandidate struct {
	ID         string          `json:"id"`
	Movement   *Movement       `json:"movement"`
	Invoice    *PendingInvoice `json:"invoice"`
	Confidence Confidence      `json:"confidence"`
	Reason     string          `json:"reason"`
}

// NewMatchCandidate creates a MatchCandidate with a fresh id
func NewMatchCandidate(movement *Movement, invoice *PendingInvoice, confidence Confidence, reason string) *MatchCandidate {
	return &MatchCandidate{
		ID:         uuid.NewString(),
		Movement:   movement,
		Invoice:    invoice,
		Confidence: confidence,
		Reason:     reason,
	}
}

// Validate performs basic validation on the MatchCandidate
func (mc *MatchCandidate) Validate() error {
	if mc.Movement == nil {
		return fmt.Errorf("match candidate requires a movement")
	}
	if mc.Invoice == nil {
		return fmt.Errorf("match candidate requires an invoice")
	}
	if !mc.Confidence.IsValid() {
		return fmt.Errorf("invalid confidence: %s", mc.Confidence)
	}
	return nil
}

// AmountDifference returns |invoice total - movement amount|
func (mc *MatchCandidate) AmountDifference() decimal.Decimal {
	return mc.Invoice.TotalAmount.Sub(mc.Movement.Amount).Abs()
}

// String returns a string representation of the MatchCandidate
func (mc *MatchCandidate) String() string {
	return fmt.Sprintf("MatchCandidate{Movement: %s, Invoice: %s, Confidence: %s, Reason: %q}",
		mc.Movement.ID, mc.Invoice.ID, mc.Confidence, mc.Reason)
}

// flexibleDateLayouts are the fallback layouts tried when a date cell is not
// DD/MM/YYYY shaped. Day-first layouts come before ISO, matching how the
// supported banks print dates.
var flexibleDateLayouts = []string{
	StatementDateLayout,
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
	"2006/01/02",
}

// ParseFlexibleDate tries the known statement date layouts in order and
// returns the date in canonical DD/MM/YYYY form, or false when no layout
// accepts the input.
func ParseFlexibleDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, layout := range flexibleDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatStatementDate(t.Day(), int(t.Month()), t.Year()), true
		}
	}

	return "", false
}

// ParseStatementDate parses a DD/MM/YYYY date string
func ParseStatementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	t, err := time.Parse(StatementDateLayout, s)
	if err != nil {
		// Single-digit day or month variants
		t, err = time.Parse("2/1/2006", s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, err)
	}

	return t, nil
}

// FormatStatementDate renders day/month/year as DD/MM/YYYY
func FormatStatementDate(day, month, year int) string {
	return fmt.Sprintf("%02d/%02d/%04d", day, month, year)
}

// CompareAmountsWithTolerance compares two decimal amounts with a tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}
