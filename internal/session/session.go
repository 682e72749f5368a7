// Package session holds the state of one reconciliation run: the movements
// accumulated across statement uploads, the pending invoices fetched from the
// store, and the match candidates awaiting confirmation. All state lives on
// the Session object; nothing is ambient.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"invoice-reconciliation-service/internal/decoder"
	"invoice-reconciliation-service/internal/extract"
	"invoice-reconciliation-service/internal/matcher"
	"invoice-reconciliation-service/internal/models"
	"invoice-reconciliation-service/internal/store"
	apperrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"
)

// Config wires the session's collaborators
type Config struct {
	ExtractConfig *extract.Config
	MatchConfig   *matcher.Config
}

// DefaultConfig returns a Config with default sub-configurations
func DefaultConfig() *Config {
	return &Config{
		ExtractConfig: extract.DefaultConfig(),
		MatchConfig:   matcher.DefaultConfig(),
	}
}

// SourceStats records one extraction pass, in upload order
type SourceStats struct {
	Source string        `json:"source"`
	Stats  extract.Stats `json:"stats"`
}

// UploadResult summarizes the effect of one statement upload
type UploadResult struct {
	Source        string `json:"source"`
	NewMovements  int    `json:"new_movements"`
	TotalUnpaired int    `json:"total_unpaired"`
	Candidates    int    `json:"candidates"`
}

// CommitResult summarizes a successful commit
type CommitResult struct {
	Committed  int      `json:"committed"`
	InvoiceIDs []string `json:"invoice_ids"`
}

// Session accumulates movements across uploads and matches them against the
// store's pending invoices until the operator commits.
type Session struct {
	mu        sync.Mutex
	decoder   decoder.Decoder
	extractor *extract.Extractor
	matcher   *matcher.Matcher
	store     store.Store
	logger    logger.Logger
	now       func() time.Time

	movements  []*models.Movement
	pending    []*models.PendingInvoice
	candidates []*models.MatchCandidate
	stats      []SourceStats

	// suppressed marks movements whose candidate the operator removed, so
	// the automatic pass does not re-pair them on the next upload
	suppressed map[string]bool
}

// New creates a Session and loads the current pending invoices
func New(ctx context.Context, st store.Store, config *Config) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}

	extractor, err := extract.NewExtractor(config.ExtractConfig)
	if err != nil {
		return nil, err
	}
	m, err := matcher.NewMatcher(config.MatchConfig)
	if err != nil {
		return nil, err
	}

	s := &Session{
		decoder:    decoder.NewExcelDecoder(),
		extractor:  extractor,
		matcher:    m,
		store:      st,
		logger:     logger.GetGlobalLogger().WithComponent("session"),
		now:        time.Now,
		suppressed: make(map[string]bool),
	}

	if err := s.refreshPending(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) refreshPending(ctx context.Context) error {
	pending, err := s.store.ListPendingInvoices(ctx)
	if err != nil {
		return err
	}
	s.pending = pending
	return nil
}

// Upload decodes a statement file, extracts its movements, appends them to
// the session, and re-runs the automatic match over the accumulated set. A
// decode or extract error leaves the session unchanged.
func (s *Session) Upload(ctx context.Context, data []byte, source string) (*UploadResult, error) {
	grid, err := s.decoder.Decode(data, source)
	if err != nil {
		return nil, err
	}

	movements, stats, err := s.extractor.Extract(grid, source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.movements = append(s.movements, movements...)
	extract.SortMovementsByDateDesc(s.movements)
	s.stats = append(s.stats, SourceStats{Source: source, Stats: *stats})

	s.rematch()

	s.logger.WithFields(logger.Fields{
		"source":     source,
		"movements":  len(movements),
		"total":      len(s.movements),
		"candidates": len(s.candidates),
	}).Info("Statement uploaded")

	return &UploadResult{
		Source:        source,
		NewMovements:  len(movements),
		TotalUnpaired: len(s.unmatchedLocked()),
		Candidates:    len(s.candidates),
	}, nil
}

// rematch rebuilds the automatic candidates over all accumulated movements.
// Manual confirmations are kept as-is; their movements and invoices are
// excluded from the automatic pass. Caller holds the lock.
func (s *Session) rematch() {
	var kept []*models.MatchCandidate
	heldInvoices := make(map[string]bool)
	boundMovements := make(map[string]bool)

	for _, c := range s.candidates {
		if c.Confidence == models.ConfidenceManual {
			kept = append(kept, c)
			heldInvoices[c.Invoice.ID] = true
			boundMovements[c.Movement.ID] = true
		}
	}

	var free []*models.Movement
	for _, m := range s.movements {
		if !boundMovements[m.ID] && !s.suppressed[m.ID] {
			free = append(free, m)
		}
	}

	var available []*models.PendingInvoice
	for _, inv := range s.pending {
		if !heldInvoices[inv.ID] {
			available = append(available, inv)
		}
	}

	s.candidates = append(kept, s.matcher.Match(free, available)...)
}

// RemoveCandidate drops a candidate from the queue. Its movement is left
// out of subsequent automatic passes until confirmed manually.
func (s *Session) RemoveCandidate(candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.candidates {
		if c.ID == candidateID {
			s.suppressed[c.Movement.ID] = true
			s.candidates = append(s.candidates[:i], s.candidates[i+1:]...)
			return nil
		}
	}
	return apperrors.ValidationError(apperrors.CodeUnknownID, "candidate_id", candidateID, nil).
		WithSuggestion("the candidate may already have been removed or committed")
}

// ProposeManual ranks the available pending invoices for a movement by
// amount difference, closest first. Invoices already held by another
// candidate are excluded.
func (s *Session) ProposeManual(movementID string) ([]matcher.RankedInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	movement := s.findMovementLocked(movementID)
	if movement == nil {
		return nil, apperrors.ValidationError(apperrors.CodeUnknownID, "movement_id", movementID, nil)
	}

	held := s.heldInvoicesLocked()
	var available []*models.PendingInvoice
	for _, inv := range s.pending {
		if !held[inv.ID] {
			available = append(available, inv)
		}
	}
	return s.matcher.ProposeManual(movement, available), nil
}

// ConfirmManual pairs a movement with an invoice chosen by the operator.
// The invoice must not be held by another candidate, and a movement with an
// existing candidate must have it removed first.
func (s *Session) ConfirmManual(movementID, invoiceID string) (*models.MatchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	movement := s.findMovementLocked(movementID)
	if movement == nil {
		return nil, apperrors.ValidationError(apperrors.CodeUnknownID, "movement_id", movementID, nil)
	}

	for _, c := range s.candidates {
		if c.Movement.ID == movementID {
			return nil, apperrors.New(apperrors.CategoryValidation, apperrors.CodeInvalidStatus,
				fmt.Sprintf("movement '%s' already has a candidate", movementID)).
				WithSuggestion("remove the movement's existing candidate before confirming another invoice").
				WithContext("movement_id", movementID)
		}
		if c.Invoice.ID == invoiceID {
			return nil, apperrors.ValidationError(apperrors.CodeInvoiceHeld, "invoice_id", invoiceID, nil).
				WithSuggestion("the invoice is already paired with another movement; remove that candidate first")
		}
	}

	var invoice *models.PendingInvoice
	for _, inv := range s.pending {
		if inv.ID == invoiceID {
			invoice = inv
			break
		}
	}
	if invoice == nil || !invoice.IsPending() {
		return nil, apperrors.ValidationError(apperrors.CodeUnknownID, "invoice_id", invoiceID, nil).
			WithSuggestion("refresh the pending invoice list")
	}

	delete(s.suppressed, movementID)
	candidate := models.NewMatchCandidate(movement, invoice, models.ConfidenceManual, matcher.ReasonManualSelection)
	s.candidates = append(s.candidates, candidate)

	s.logger.WithFields(logger.Fields{
		"movement_id": movementID,
		"invoice_id":  invoiceID,
	}).Info("Manual match confirmed")
	return candidate, nil
}

// Commit marks every candidate's invoice as paid in one atomic batch. On
// success the committed movements and candidates leave the session and the
// pending invoice list is refreshed. On conflict or failure the queue is
// untouched so the operator can adjust and retry.
func (s *Session) Commit(ctx context.Context) (*CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reconciledAt := s.now()
	updates := make([]store.PaymentUpdate, 0, len(s.candidates))
	for _, c := range s.candidates {
		updates = append(updates, store.PaymentUpdate{
			InvoiceID: c.Invoice.ID,
			PaidAt:    paidAt(c.Movement, reconciledAt),
			Metadata: models.PaymentMetadata{
				Source:                 c.Movement.Source,
				TransactionDate:        c.Movement.Date,
				TransactionDescription: c.Movement.Description,
				OriginalRow:            c.Movement.OriginalRow.Strings(),
				ReconciledAt:           reconciledAt,
			},
		})
	}

	if err := s.store.CommitPayments(ctx, updates); err != nil {
		return nil, err
	}

	result := &CommitResult{Committed: len(s.candidates)}
	committed := make(map[string]bool, len(s.candidates))
	for _, c := range s.candidates {
		result.InvoiceIDs = append(result.InvoiceIDs, c.Invoice.ID)
		committed[c.Movement.ID] = true
	}

	var remaining []*models.Movement
	for _, m := range s.movements {
		if !committed[m.ID] {
			remaining = append(remaining, m)
		}
	}
	s.movements = remaining
	s.candidates = nil

	if err := s.refreshPending(ctx); err != nil {
		return result, err
	}
	s.rematch()

	s.logger.WithField("committed", result.Committed).Info("Reconciliation committed")
	return result, nil
}

// paidAt prefers the statement's transaction date; an unparseable date
// falls back to the reconciliation time.
func paidAt(m *models.Movement, reconciledAt time.Time) time.Time {
	if t, ok := m.ParsedDate(); ok {
		return t
	}
	return reconciledAt
}

// Movements returns the accumulated movements, most recent date first
func (s *Session) Movements() []*models.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Movement(nil), s.movements...)
}

// Candidates returns the current match candidates
func (s *Session) Candidates() []*models.MatchCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.MatchCandidate(nil), s.candidates...)
}

// PendingInvoices returns the pending invoices as of the last refresh
func (s *Session) PendingInvoices() []*models.PendingInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.PendingInvoice(nil), s.pending...)
}

// UnmatchedMovements returns movements without a candidate
func (s *Session) UnmatchedMovements() []*models.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unmatchedLocked()
}

func (s *Session) unmatchedLocked() []*models.Movement {
	bound := make(map[string]bool, len(s.candidates))
	for _, c := range s.candidates {
		bound[c.Movement.ID] = true
	}

	var unmatched []*models.Movement
	for _, m := range s.movements {
		if !bound[m.ID] {
			unmatched = append(unmatched, m)
		}
	}
	return unmatched
}

// Stats returns the per-upload extraction statistics in upload order
func (s *Session) Stats() []SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SourceStats(nil), s.stats...)
}

func (s *Session) findMovementLocked(id string) *models.Movement {
	for _, m := range s.movements {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Session) heldInvoicesLocked() map[string]bool {
	held := make(map[string]bool, len(s.candidates))
	for _, c := range s.candidates {
		held[c.Invoice.ID] = true
	}
	return held
}
