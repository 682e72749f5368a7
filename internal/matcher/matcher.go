// Package matcher pairs extracted bank movements with pending invoices.
//
// The automatic pass walks the movements in order and takes the first
// pending invoice within the amount tolerance. Each invoice is assigned at
// most once per pass; a movement with no qualifying invoice simply stays
// unmatched and waits for manual selection.
//
// Manual selection ranks all pending invoices by how close their total is
// to the movement amount. Ranking never excludes an invoice: the operator
// may pair anything, the threshold only highlights the plausible ones.
package matcher

import (
	"sort"

	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Reasons attached to match candidates
const (
	ReasonExactAmount     = "exact amount"
	ReasonManualSelection = "manual selection"
)

// Matcher runs the automatic and manual matching passes
type Matcher struct {
	config *Config
	logger logger.Logger
}

// NewMatcher creates a Matcher with the given configuration
func NewMatcher(config *Config) (*Matcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Matcher{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}, nil
}

// Match runs the automatic pass over the full movement list. Every invoice
// is assigned to at most one movement per pass, first movement wins.
func (m *Matcher) Match(movements []*models.Movement, invoices []*models.PendingInvoice) []*models.MatchCandidate {
	var candidates []*models.MatchCandidate
	usedInvoices := make(map[string]bool)

	for _, movement := range movements {
		invoice := m.findInvoice(movement, invoices, usedInvoices)
		if invoice == nil {
			continue
		}

		usedInvoices[invoice.ID] = true
		candidates = append(candidates,
			models.NewMatchCandidate(movement, invoice, models.ConfidenceHigh, ReasonExactAmount))
	}

	m.logger.WithFields(logger.Fields{
		"movements":  len(movements),
		"invoices":   len(invoices),
		"candidates": len(candidates),
	}).Debug("Automatic matching pass complete")

	return candidates
}

// findInvoice returns the first unassigned pending invoice within tolerance
func (m *Matcher) findInvoice(movement *models.Movement, invoices []*models.PendingInvoice, used map[string]bool) *models.PendingInvoice {
	for _, invoice := range invoices {
		if used[invoice.ID] || !invoice.IsPending() {
			continue
		}
		if models.CompareAmountsWithTolerance(invoice.TotalAmount, movement.Amount, m.config.AmountTolerance) {
			return invoice
		}
	}
	return nil
}

// RankedInvoice is one entry of a manual-selection proposal
type RankedInvoice struct {
	Invoice    *models.PendingInvoice `json:"invoice"`
	Difference decimal.Decimal        `json:"difference"`
	// GoodCandidate flags invoices within the manual threshold; it is a
	// visual aid, any invoice may still be chosen
	GoodCandidate bool `json:"good_candidate"`
}

// ProposeManual ranks pending invoices for one unmatched movement by
// ascending absolute amount difference.
func (m *Matcher) ProposeManual(movement *models.Movement, invoices []*models.PendingInvoice) []RankedInvoice {
	ranked := make([]RankedInvoice, 0, len(invoices))
	for _, invoice := range invoices {
		if !invoice.IsPending() {
			continue
		}

		diff := invoice.TotalAmount.Sub(movement.Amount).Abs()
		ranked = append(ranked, RankedInvoice{
			Invoice:       invoice,
			Difference:    diff,
			GoodCandidate: diff.LessThan(m.config.ManualCandidateThreshold),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Difference.LessThan(ranked[j].Difference)
	})

	return ranked
}

// GetConfig returns a copy of the matcher configuration
func (m *Matcher) GetConfig() *Config {
	return m.config.Clone()
}
