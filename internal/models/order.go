package models

import (
	"time"
)

// OrderStatus represents where an order is in fulfilment
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "Order Placed"
	OrderStatusPacked    OrderStatus = "Packed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// PaymentCashOnDelivery is the only payment method the storefront offers.
const PaymentCashOnDelivery = "Cash on Delivery"

// PlaceholderProductName is shown for order lines whose product no longer exists.
const PlaceholderProductName = "Product Not Found"

// Address is a delivery address.
type Address struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Zipcode     string `json:"zipcode,omitempty"`
	Area        string `json:"area"`
	City        string `json:"city"`
	Province    string `json:"province"`
}

// SavedAddress is a delivery address kept in a customer's address book.
type SavedAddress struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Address
	CreatedAt time.Time `json:"createdAt"`
}

// OrderItem is a single line in an order.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"color,omitempty"`
}

// Order is a customer purchase.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Items         []OrderItem `json:"items"`
	Amount        float64     `json:"amount"`
	Discount      float64     `json:"discount"`
	TotalAmount   float64     `json:"totalAmount"`
	PromoCode     string      `json:"promoCode,omitempty"`
	Address       Address     `json:"address"`
	Status        OrderStatus `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// PopulatedItem is an order line joined with its product.
type PopulatedItem struct {
	OrderItem
	Product Product `json:"product"`
	Missing bool    `json:"missing,omitempty"`
}

// PopulatedOrder is an order whose lines carry product details.
type PopulatedOrder struct {
	Order
	Items []PopulatedItem `json:"items"`
}

// PlaceOrderParams represents the parameters for placing an order.
// AddressID selects a saved address and takes precedence over Address.
type PlaceOrderParams struct {
	Items     []OrderItem `json:"items"`
	Address   Address     `json:"address"`
	AddressID string      `json:"addressId,omitempty"`
	PromoCode string      `json:"promoCode,omitempty"`
}

// ValidOrderStatuses returns all valid order status values
func ValidOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPlaced, OrderStatusPacked, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled}
}

// IsValid checks if an order status value is valid
func (s OrderStatus) IsValid() bool {
	for _, valid := range ValidOrderStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// IsActive returns true if the order is neither delivered nor cancelled
func (o *Order) IsActive() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

// ProductIDs returns the distinct product ids referenced by the order, in line order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		ids = append(ids, item.ProductID)
	}
	return ids
}
