package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusApproved       OrderStatus = "approved"
	OrderStatusRejected       OrderStatus = "rejected"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusInProduction   OrderStatus = "in_production"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// OrderStatuses lists every order status
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusProcessing,
	OrderStatusInProduction,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid reports whether s is a member of the closed status set
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from s
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// ParseOrderStatus normalizes a status string. "completed" is accepted as
// an alias of delivered.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	if normalized == "completed" {
		return OrderStatusDelivered, true
	}

	st := OrderStatus(normalized)
	return st, st.IsValid()
}

// PaymentMethod is how the buyer pays for an order
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBank           PaymentMethod = "bank"
)

// IsValid reports whether m is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodBank:
		return true
	}
	return false
}

// RequiresAuthorization reports whether the external payment provider must
// confirm the payment before the order exists
func (m PaymentMethod) RequiresAuthorization() bool {
	return m == PaymentMethodCard
}

// ParsePaymentMethod normalizes a payment method string. "cod" and "online"
// are accepted as aliases.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")

	switch normalized {
	case "cod", "cash":
		return PaymentMethodCashOnDelivery, true
	case "online", "stripe":
		return PaymentMethodCard, true
	}

	m := PaymentMethod(normalized)
	return m, m.IsValid()
}

// Address is a structured delivery address
type Address struct {
	Street  string `db:"ship_street" json:"street"`
	City    string `db:"ship_city" json:"city"`
	State   string `db:"ship_state" json:"state"`
	Zip     string `db:"ship_zip" json:"zip"`
	Country string `db:"ship_country" json:"country"`
}

// Contact holds the contact details captured at order time
type Contact struct {
	Name  string `db:"contact_name" json:"name"`
	Phone string `db:"contact_phone" json:"phone"`
	Email string `db:"contact_email" json:"email"`
}

// ShippingInfo groups the delivery fields supplied with an order
type ShippingInfo struct {
	Address Address `json:"address"`
	Contact Contact `json:"contact"`
}

// Order represents an order in the system
type Order struct {
	ID               string          `db:"id" json:"id"`
	ProductID        string          `db:"product_id" json:"product_id"`
	BuyerID          string          `db:"buyer_id" json:"buyer_id"`
	ManagerID        string          `db:"manager_id" json:"manager_id"`
	Quantity         int             `db:"quantity" json:"quantity"`
	UnitPrice        decimal.Decimal `db:"unit_price" json:"unit_price"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod    PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaymentReference *string         `db:"payment_reference" json:"payment_reference,omitempty"`
	Address          `json:"delivery_address"`
	Contact          `json:"contact"`
	Status           OrderStatus `db:"status" json:"status"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	ApprovedAt       *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// NewOrder creates a pending order for a product. The unit price is captured
// from the product at this point and the total is computed once.
func NewOrder(buyerID string, product *Product, quantity int, shipping ShippingInfo, method PaymentMethod) *Order {
	now := GetCurrentTime()

	return &Order{
		ID:            GenerateID("ord"),
		ProductID:     product.ID,
		BuyerID:       buyerID,
		ManagerID:     product.OwnerID,
		Quantity:      quantity,
		UnitPrice:     product.Price,
		TotalAmount:   OrderTotal(product.Price, quantity),
		PaymentMethod: method,
		Address:       shipping.Address,
		Contact:       shipping.Contact,
		Status:        OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// OrderTotal computes quantity × unit price
func OrderTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Shipping returns the delivery fields of the order
func (o *Order) Shipping() ShippingInfo {
	return ShippingInfo{Address: o.Address, Contact: o.Contact}
}
