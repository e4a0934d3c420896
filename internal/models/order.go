package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is a snapshot of one product line taken when the order was placed.
type OrderItem struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID      string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	Position     int             `json:"position"`
	ProductID    string          `json:"product_id" gorm:"type:varchar(36)"`
	ProductName  string          `json:"product_name" gorm:"type:varchar(100);not null"`
	ProductPrice decimal.Decimal `json:"product_price" gorm:"type:numeric(14,2);not null"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal" gorm:"type:numeric(14,2);not null"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"type:varchar(36);not null;index"`
	User            *User           `json:"customer,omitempty" gorm:"foreignKey:UserID"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(14,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;index"`
	ShippingAddress string          `json:"shipping_address" gorm:"not null"`
	ShippingPhone   string          `json:"shipping_phone" gorm:"type:varchar(32);not null"`
	Notes           *string         `json:"notes"`
	CreatedAt       time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemsTotal sums the subtotals of the order's items.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}
