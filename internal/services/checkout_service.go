package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/events"
	"storefront/internal/guard"
	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CheckoutState is the state of one checkout attempt.
type CheckoutState string

const (
	CheckoutCollectingInput CheckoutState = "collecting_input"
	CheckoutSubmitting      CheckoutState = "submitting"
	CheckoutSucceeded       CheckoutState = "succeeded"
	CheckoutFailed          CheckoutState = "failed"
	CheckoutCartEmpty       CheckoutState = "cart_empty"
)

const (
	RedirectOrders   = "/orders"
	RedirectCart     = "/cart"
	RedirectCheckout = "/checkout"
)

// CheckoutInput is the shipping information collected before submission.
type CheckoutInput struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	ShippingPhone   string `json:"shipping_phone" validate:"required"`
	Notes           string `json:"notes"`
}

// CheckoutResult is where a checkout attempt ended and where the shopper goes next.
type CheckoutResult struct {
	State    CheckoutState `json:"state"`
	Order    *models.Order `json:"order,omitempty"`
	Redirect string        `json:"redirect,omitempty"`
}

// CheckoutService turns a cart into an order.
type CheckoutService struct {
	store     repositories.Store
	guard     guard.Guard
	publisher EventPublisher
	validate  *validator.Validate
	log       zerolog.Logger
}

// NewCheckoutService creates a new CheckoutService. publisher may be nil.
func NewCheckoutService(store repositories.Store, g guard.Guard, publisher EventPublisher, log zerolog.Logger) *CheckoutService {
	if g == nil {
		g = guard.NewMemoryGuard()
	}
	return &CheckoutService{
		store:     store,
		guard:     g,
		publisher: publisher,
		validate:  validator.New(),
		log:       log.With().Str("service", "checkout").Logger(),
	}
}

// Submit places an order from the caller's cart.
//
// The cart is re-read, the order and its items are written, and the cart lines are deleted
// inside one store transaction, so a failure at any step leaves neither an order nor a
// cleared cart behind. Only one submission per user runs at a time.
//
// An empty cart is a normal outcome: the result has state cart_empty and a nil error.
// Any returned error comes with a result describing the failed state.
func (s *CheckoutService) Submit(ctx context.Context, id models.Identity, input CheckoutInput) (*CheckoutResult, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}

	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	input.ShippingPhone = strings.TrimSpace(input.ShippingPhone)
	input.Notes = strings.TrimSpace(input.Notes)
	if err := validateStruct(s.validate, input); err != nil {
		return &CheckoutResult{State: CheckoutCollectingInput}, err
	}

	release, err := s.guard.Acquire(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, guard.ErrHeld) {
			s.log.Warn().Str("user_id", id.UserID).Msg("duplicate checkout submission rejected")
			return &CheckoutResult{State: CheckoutSubmitting}, ErrCheckoutInProgress
		}
		return s.failed(id, &StoreError{Op: "acquire checkout guard", Err: err})
	}
	defer release()

	var (
		placed *models.Order
		empty  bool
	)
	err = s.store.WithinTx(ctx, func(tx repositories.Store) error {
		placed, empty = nil, false

		cart, err := tx.Carts().ListByUser(ctx, id.UserID)
		if err != nil {
			return &StoreError{Op: "load cart", Err: err}
		}
		lines := make([]models.CartItem, 0, len(cart))
		for _, item := range cart {
			if item.Product != nil {
				lines = append(lines, item)
			}
		}
		if len(lines) == 0 {
			empty = true
			return nil
		}
		for _, item := range lines {
			if item.Quantity < 1 {
				return newValidationError("Quantity", fmt.Sprintf("Cart line for '%s' has invalid quantity %d", item.Product.Name, item.Quantity))
			}
		}

		total := decimal.Zero
		for _, item := range lines {
			total = total.Add(item.Subtotal())
		}

		order := &models.Order{
			UserID:          id.UserID,
			TotalAmount:     total,
			Status:          models.OrderStatusPending,
			ShippingAddress: input.ShippingAddress,
			ShippingPhone:   input.ShippingPhone,
		}
		if input.Notes != "" {
			notes := input.Notes
			order.Notes = &notes
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return &StoreError{Op: "create order", Err: err}
		}

		items := make([]models.OrderItem, len(lines))
		ids := make([]string, len(lines))
		for i, line := range lines {
			items[i] = models.OrderItem{
				OrderID:      order.ID,
				Position:     i,
				ProductID:    line.ProductID,
				ProductName:  line.Product.Name,
				ProductPrice: line.Product.Price,
				Quantity:     line.Quantity,
				Subtotal:     line.Subtotal(),
			}
			ids[i] = line.ID
		}
		if err := tx.Orders().CreateItems(ctx, items); err != nil {
			return &StoreError{Op: "create order items", Err: err}
		}
		order.Items = items

		if _, err := tx.Carts().DeleteItems(ctx, id.UserID, ids); err != nil {
			return &StoreError{Op: "clear cart", Err: err}
		}
		placed = order
		return nil
	})
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return s.failed(id, validationErr)
		}
		return s.failed(id, storeErr("checkout", err))
	}
	if empty {
		s.log.Info().Str("user_id", id.UserID).Msg("checkout aborted, cart is empty")
		return &CheckoutResult{State: CheckoutCartEmpty, Redirect: RedirectCart}, nil
	}

	if fresh, err := s.store.Orders().GetByID(ctx, placed.ID); err == nil {
		placed = fresh
	} else {
		s.log.Warn().Err(err).Str("order_id", placed.ID).Msg("failed to reload placed order")
	}

	s.log.Info().
		Str("order_id", placed.ID).
		Str("user_id", id.UserID).
		Str("total", placed.TotalAmount.String()).
		Int("items", len(placed.Items)).
		Msg("order placed")
	publishEvent(s.publisher, s.log, events.KeyOrderCreated, placed.ID, events.NewOrderCreated(placed))

	return &CheckoutResult{State: CheckoutSucceeded, Order: placed, Redirect: RedirectOrders}, nil
}

func (s *CheckoutService) failed(id models.Identity, err error) (*CheckoutResult, error) {
	s.log.Error().Err(err).Str("user_id", id.UserID).Msg("checkout failed, cart left intact")
	return &CheckoutResult{State: CheckoutFailed, Redirect: RedirectCheckout}, err
}
