package repository

import (
	"context"
	"fmt"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
	"github.com/garyjia/invoice-manager/pkg/database"
	"go.uber.org/zap"
)

// ItemRepository stores the ordered line items of an invoice
type ItemRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewItemRepository creates a line item repository
func NewItemRepository(db *database.DB, logger *zap.Logger) *ItemRepository {
	return &ItemRepository{db: db, logger: logger}
}

// ReplaceAll swaps the stored items of an invoice for items, keeping their order
func (r *ItemRepository) ReplaceAll(ctx context.Context, invoiceID string, items []entity.LineItem) error {
	ex := getExecutor(ctx, r.db)

	if _, err := ex.ExecContext(ctx, r.db.Rebind("DELETE FROM line_items WHERE invoice_id = ?"), invoiceID); err != nil {
		return fmt.Errorf("failed to clear line items: %w", err)
	}

	query := r.db.Rebind(`
		INSERT INTO line_items (invoice_id, position, id, description, hours, rate)
		VALUES (?, ?, ?, ?, ?, ?)`)
	for pos, item := range items {
		if _, err := ex.ExecContext(ctx, query, invoiceID, pos, item.ID, item.Description, item.Hours, item.Rate); err != nil {
			r.logger.Error("Failed to insert line item",
				zap.String("invoice_id", invoiceID),
				zap.Int("position", pos),
				zap.Error(err))
			return fmt.Errorf("failed to insert line item %d: %w", pos, err)
		}
	}
	return nil
}

// GetByInvoiceID returns the items of an invoice in position order
func (r *ItemRepository) GetByInvoiceID(ctx context.Context, invoiceID string) ([]entity.LineItem, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, r.db.Rebind(`
		SELECT id, description, hours, rate
		FROM line_items
		WHERE invoice_id = ?
		ORDER BY position`), invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := []entity.LineItem{}
	for rows.Next() {
		var item entity.LineItem
		if err := rows.Scan(&item.ID, &item.Description, &item.Hours, &item.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
