package port

import (
	"context"

	"github.com/garyjia/invoice-manager/internal/domain/entity"
)

// InvoiceRepository defines persistence operations for invoices and their line items
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	List(ctx context.Context) ([]*entity.Invoice, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*entity.Invoice, error)
	Update(ctx context.Context, inv *entity.Invoice) error
	Delete(ctx context.Context, id string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
