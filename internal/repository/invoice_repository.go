package repository

import (
	"context"

	"store/internal/domain/model"
)

type InvoiceRepository interface {
	Create(ctx context.Context, inv model.Invoice) (model.Invoice, error)
	FindByOrderID(ctx context.Context, orderID int64) (model.Invoice, error)
}
