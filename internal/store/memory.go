package store

import (
	"context"
	"sync"

	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"
)

// MemoryStore keeps invoices in memory. It backs tests and dry runs where
// no database is configured, with the same conditional-commit semantics as
// the Postgres store.
type MemoryStore struct {
	mu       sync.Mutex
	invoices []*models.PendingInvoice
	failure  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Seed loads invoices, replacing any previous contents. Insertion order is
// preserved for listing.
func (s *MemoryStore) Seed(invoices []*models.PendingInvoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invoices = make([]*models.PendingInvoice, 0, len(invoices))
	for _, inv := range invoices {
		copied := *inv
		s.invoices = append(s.invoices, &copied)
	}
}

// SetFailure makes every subsequent commit fail with err. Passing nil
// clears the hook.
func (s *MemoryStore) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = err
}

// ListPendingInvoices returns invoices still awaiting payment
func (s *MemoryStore) ListPendingInvoices(ctx context.Context) ([]*models.PendingInvoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*models.PendingInvoice
	for _, inv := range s.invoices {
		if inv.IsPending() {
			copied := *inv
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

// Get returns the stored invoice with the given id, or nil
func (s *MemoryStore) Get(id string) *models.PendingInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inv := range s.invoices {
		if inv.ID == id {
			copied := *inv
			return &copied
		}
	}
	return nil
}

// CommitPayments applies the batch atomically. Every invoice is checked
// before any is modified, so a conflict leaves the store untouched.
func (s *MemoryStore) CommitPayments(ctx context.Context, updates []PaymentUpdate) error {
	if err := ValidatePaymentUpdates(updates); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		return apperrors.CommitFailureError(s.failure)
	}

	byID := make(map[string]*models.PendingInvoice, len(s.invoices))
	for _, inv := range s.invoices {
		byID[inv.ID] = inv
	}

	var conflicts []string
	for _, update := range updates {
		inv, ok := byID[update.InvoiceID]
		if !ok || !inv.IsPending() {
			conflicts = append(conflicts, update.InvoiceID)
		}
	}
	if len(conflicts) > 0 {
		return apperrors.CommitConflictError(conflicts)
	}

	for _, update := range updates {
		inv := byID[update.InvoiceID]
		paidAt := update.PaidAt
		metadata := update.Metadata

		inv.PaymentStatus = models.PaymentStatusPaid
		inv.PaidAt = &paidAt
		inv.Payment = &metadata
	}
	return nil
}
