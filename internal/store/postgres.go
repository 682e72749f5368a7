package store

import (
	"context"
	"encoding/json"

	"invoice-reconciliation-service/internal/models"
	apperrors "invoice-reconciliation-service/pkg/errors"
	"invoice-reconciliation-service/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const listPendingQuery = `
SELECT id, client_name, project_name, total_amount::text, payment_status, created_at
FROM invoices
WHERE payment_status = 'pending'
ORDER BY created_at`

// The status precondition makes the transition conditional: a concurrent
// session that already paid the invoice leaves zero rows affected here,
// which we report as a conflict instead of overwriting.
const commitPaymentQuery = `
UPDATE invoices
SET payment_status = 'paid', paid_at = $2, payment_metadata = $3
WHERE id = $1 AND payment_status = 'pending'`

// PostgresStore is the pgx-backed document store
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPostgresStore connects a PostgresStore to the given database URL
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeConnectionFailed, "connect", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.StoreError(apperrors.CodeConnectionFailed, "ping", err)
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.GetGlobalLogger().WithComponent("postgres_store"),
	}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// ListPendingInvoices returns all invoices still awaiting payment
func (s *PostgresStore) ListPendingInvoices(ctx context.Context) ([]*models.PendingInvoice, error) {
	rows, err := s.pool.Query(ctx, listPendingQuery)
	if err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list pending invoices", err)
	}
	defer rows.Close()

	var invoices []*models.PendingInvoice
	for rows.Next() {
		var inv models.PendingInvoice
		var status, totalText string

		if err := rows.Scan(&inv.ID, &inv.ClientName, &inv.ProjectName,
			&totalText, &status, &inv.CreatedAt); err != nil {
			return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "scan invoice row", err)
		}

		total, err := decimal.NewFromString(totalText)
		if err != nil {
			return nil, apperrors.ValidationError(apperrors.CodeInvalidAmount, "total_amount", totalText, err)
		}
		inv.TotalAmount = total
		inv.PaymentStatus = models.PaymentStatus(status)

		invoices = append(invoices, &inv)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.StoreError(apperrors.CodeQueryFailed, "list pending invoices", err)
	}

	s.logger.WithField("count", len(invoices)).Debug("Fetched pending invoices")
	return invoices, nil
}

// CommitPayments marks the batch paid inside one transaction. Any invoice
// no longer pending rolls the whole batch back with a conflict listing the
// offending ids; infrastructure errors roll back with a commit failure.
func (s *PostgresStore) CommitPayments(ctx context.Context, updates []PaymentUpdate) error {
	if err := ValidatePaymentUpdates(updates); err != nil {
		return err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperrors.CommitFailureError(err)
	}
	defer tx.Rollback(ctx)

	var conflicts []string
	for _, update := range updates {
		metadata, err := json.Marshal(update.Metadata)
		if err != nil {
			return apperrors.CommitFailureError(err)
		}

		tag, err := tx.Exec(ctx, commitPaymentQuery, update.InvoiceID, update.PaidAt, metadata)
		if err != nil {
			return apperrors.CommitFailureError(err)
		}
		if tag.RowsAffected() == 0 {
			conflicts = append(conflicts, update.InvoiceID)
		}
	}

	if len(conflicts) > 0 {
		s.logger.WithField("invoice_ids", conflicts).Warn("Commit conflict, rolling back batch")
		return apperrors.CommitConflictError(conflicts)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.CommitFailureError(err)
	}

	s.logger.WithField("count", len(updates)).Info("Committed payment batch")
	return nil
}
