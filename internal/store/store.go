// Package store is the document-store collaborator of the reconciliation
// engine: it reads pending invoices and persists confirmed payments.
//
// CommitPayments is atomic over the whole batch. Invoices that are no
// longer pending at write time surface as a commit conflict, distinct from
// infrastructure failures, so the operator can re-sync and retry only the
// conflicting candidates.
package store

import (
	"context"
	"time"

	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"
)

// PaymentUpdate marks one invoice paid with its audit metadata
type PaymentUpdate struct {
	InvoiceID string                 `json:"invoice_id"`
	PaidAt    time.Time              `json:"paid_at"`
	Metadata  models.PaymentMetadata `json:"metadata"`
}

// Store reads pending invoices and commits payments atomically
type Store interface {
	// ListPendingInvoices returns invoices with payment status "pending"
	ListPendingInvoices(ctx context.Context) ([]*models.PendingInvoice, error)

	// CommitPayments transitions the given invoices from pending to paid.
	// The batch succeeds or fails as a whole.
	CommitPayments(ctx context.Context, updates []PaymentUpdate) error
}

// ValidatePaymentUpdates rejects empty batches and batches that would pay
// the same invoice twice. Both implementations run this before writing.
func ValidatePaymentUpdates(updates []PaymentUpdate) error {
	if len(updates) == 0 {
		return apperrors.ValidationError(apperrors.CodeMissingField, "updates", nil, nil).
			WithSuggestion("confirm at least one match candidate before committing")
	}

	seen := make(map[string]bool, len(updates))
	var duplicates []string
	for _, update := range updates {
		if update.InvoiceID == "" {
			return apperrors.ValidationError(apperrors.CodeMissingField, "invoice_id", nil, nil)
		}
		if seen[update.InvoiceID] {
			duplicates = append(duplicates, update.InvoiceID)
		}
		seen[update.InvoiceID] = true
	}

	if len(duplicates) > 0 {
		return apperrors.CommitConflictError(duplicates)
	}

	return nil
}
