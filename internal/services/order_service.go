package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// OrderService handles business logic related to placed orders.
type OrderService struct {
	store     repositories.Store
	publisher EventPublisher
	log       zerolog.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(store repositories.Store, publisher EventPublisher, log zerolog.Logger) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		log:       log.With().Str("service", "orders").Logger(),
	}
}

// ListOrders returns the caller's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, id models.Identity) ([]models.Order, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	orders, err := s.store.Orders().ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}

// GetOrder returns one order. Orders of other users are reported as not found unless the
// caller is an administrator.
func (s *OrderService) GetOrder(ctx context.Context, id models.Identity, orderID string) (*models.Order, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	if order.UserID != id.UserID && !id.IsAdmin() {
		return nil, fmt.Errorf("order with ID %s: %w", orderID, ErrNotFound)
	}
	return order, nil
}

// ListAllOrders returns every order with its customer, newest first.
func (s *OrderService) ListAllOrders(ctx context.Context, id models.Identity) ([]models.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	orders, err := s.store.Orders().ListAll(ctx)
	if err != nil {
		return nil, storeErr("list all orders", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to status and returns the order as stored afterwards.
//
// Setting the current status again succeeds without writing. Orders that are delivered or
// cancelled cannot move anywhere else. The write only applies if nobody changed the status
// since it was read.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id models.Identity, orderID string, status string) (*models.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, newValidationError("Status", err.Error())
	}

	order, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	current := order.Status
	if current == next {
		return order, nil
	}
	if !current.CanTransitionTo(next) {
		return nil, fmt.Errorf("order %s is %s and cannot become %s: %w", orderID, current, next, ErrInvalidTransition)
	}

	if err := s.store.Orders().UpdateStatus(ctx, orderID, current, next); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrConcurrentUpdate)
		}
		return nil, storeErr("update order status", err)
	}
	s.log.Info().
		Str("order_id", orderID).
		Str("from", current.String()).
		Str("to", next.String()).
		Str("by", id.Username).
		Msg("order status updated")
	publishEvent(s.publisher, s.log, events.KeyOrderStatusChanged, orderID, events.NewOrderStatusChanged(orderID, current, next))

	updated, err := s.store.Orders().GetByID(ctx, orderID)
	if err != nil {
		return nil, storeErr("reload order", err)
	}
	return updated, nil
}

// Dashboard is the administrator's overview.
type Dashboard struct {
	Orders       []models.Order    `json:"orders"`
	Categories   []models.Category `json:"categories"`
	OrderCounts  map[string]int    `json:"order_counts"`
	ProductCount int               `json:"product_count"`
}

// Dashboard loads orders, categories and products concurrently.
func (s *OrderService) Dashboard(ctx context.Context, id models.Identity) (*Dashboard, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}

	var (
		orders     []models.Order
		categories []models.Category
		products   []models.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = s.store.Orders().ListAll(gctx)
		return storeErr("list all orders", err)
	})
	g.Go(func() error {
		var err error
		categories, err = s.store.Categories().GetAll(gctx)
		return storeErr("list categories", err)
	})
	g.Go(func() error {
		var err error
		products, err = s.store.Products().GetAll(gctx, repositories.ProductFilter{})
		return storeErr("list products", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		counts[st.String()] = 0
	}
	for _, o := range orders {
		counts[o.Status.String()]++
	}
	return &Dashboard{Orders: orders, Categories: categories, OrderCounts: counts, ProductCount: len(products)}, nil
}
