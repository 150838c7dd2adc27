package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/invoice-manager/internal/application/port"
	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/pkg/database"
	"go.uber.org/zap"
)

const invoiceColumns = `id, invoice_number, invoice_date, employee_name, employee_id,
	employee_email, employee_address, employee_mobile, tax_rate`

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *database.DB
	items  *ItemRepository
	tx     *TxManager
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		items:  NewItemRepository(db, logger),
		tx:     NewTxManager(db, logger),
		logger: logger,
	}
}

// Create inserts an invoice and its line items. The ID must already be assigned.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.ID == "" {
		return errors.New("invoice id is required")
	}

	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := getExecutor(ctx, r.db).ExecContext(ctx, r.db.Rebind(`
			INSERT INTO invoices (`+invoiceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			invoice.ID,
			invoice.InvoiceNumber,
			invoice.Date,
			invoice.EmployeeName,
			invoice.EmployeeID,
			invoice.EmployeeEmail,
			invoice.EmployeeAddress,
			invoice.EmployeeMobile,
			invoice.TaxRate,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", entity.ErrDuplicateNumber, invoice.InvoiceNumber)
			}
			r.logger.Error("Failed to create invoice", zap.Error(err))
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		return r.items.ReplaceAll(ctx, invoice.ID, invoice.Services)
	})
}

// GetByID retrieves an invoice with its line items; unknown IDs yield entity.ErrNotFound
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	row := getExecutor(ctx, r.db).QueryRowContext(ctx,
		r.db.Rebind(`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`), id)

	invoice, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get invoice by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Services, err = r.items.GetByInvoiceID(ctx, id); err != nil {
		return nil, err
	}
	return invoice, nil
}

// List returns every invoice, newest date first
func (r *InvoiceRepository) List(ctx context.Context) ([]*entity.Invoice, error) {
	return r.query(ctx, `SELECT `+invoiceColumns+` FROM invoices
		ORDER BY invoice_date DESC, created_at DESC, invoice_number`)
}

// ListByEmployee returns the invoices of one employee, newest date first
func (r *InvoiceRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*entity.Invoice, error) {
	return r.query(ctx, `SELECT `+invoiceColumns+` FROM invoices
		WHERE employee_id = ?
		ORDER BY invoice_date DESC, created_at DESC, invoice_number`, employeeID)
}

// Update overwrites an invoice and replaces its line items
func (r *InvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		result, err := getExecutor(ctx, r.db).ExecContext(ctx, r.db.Rebind(`
			UPDATE invoices SET
				invoice_number = ?, invoice_date = ?, employee_name = ?, employee_id = ?,
				employee_email = ?, employee_address = ?, employee_mobile = ?, tax_rate = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`),
			invoice.InvoiceNumber,
			invoice.Date,
			invoice.EmployeeName,
			invoice.EmployeeID,
			invoice.EmployeeEmail,
			invoice.EmployeeAddress,
			invoice.EmployeeMobile,
			invoice.TaxRate,
			invoice.ID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", entity.ErrDuplicateNumber, invoice.InvoiceNumber)
			}
			r.logger.Error("Failed to update invoice", zap.String("id", invoice.ID), zap.Error(err))
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		if err := expectOneRow(result, invoice.ID); err != nil {
			return err
		}

		return r.items.ReplaceAll(ctx, invoice.ID, invoice.Services)
	})
}

// Delete removes an invoice and its line items
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		ex := getExecutor(ctx, r.db)
		if _, err := ex.ExecContext(ctx, r.db.Rebind("DELETE FROM line_items WHERE invoice_id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete line items: %w", err)
		}

		result, err := ex.ExecContext(ctx, r.db.Rebind("DELETE FROM invoices WHERE id = ?"), id)
		if err != nil {
			r.logger.Error("Failed to delete invoice", zap.String("id", id), zap.Error(err))
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		return expectOneRow(result, id)
	})
}

func (r *InvoiceRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Invoice, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	invoices := []*entity.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	// release the connection before the per-invoice item queries
	rows.Close()

	for _, invoice := range invoices {
		if invoice.Services, err = r.items.GetByInvoiceID(ctx, invoice.ID); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(s scanner) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := s.Scan(
		&invoice.ID,
		&invoice.InvoiceNumber,
		&invoice.Date,
		&invoice.EmployeeName,
		&invoice.EmployeeID,
		&invoice.EmployeeEmail,
		&invoice.EmployeeAddress,
		&invoice.EmployeeMobile,
		&invoice.TaxRate,
	)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func expectOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", entity.ErrNotFound, id)
	}
	return nil
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
