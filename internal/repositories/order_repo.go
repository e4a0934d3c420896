package repositories

import (
	"context"

	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never deleted outside a rolled back transaction.
type OrderRepository interface {
	// Create inserts the order row only; items are written with CreateItems.
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	// UpdateStatus moves the order from one status to another. It fails with ErrConflict when
	// the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) error
}
