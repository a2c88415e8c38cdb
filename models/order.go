package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusDelivered OrderStatus = "delivered"
)

type OrderItem struct {
	Name    string        `bson:"name" json:"name"`
	Qty     int           `bson:"qty" json:"qty"`
	Image   string        `bson:"image" json:"image"`
	Price   float64       `bson:"price" json:"price"`
	Product bson.ObjectID `bson:"product" json:"product"`
}

type ShippingAddress struct {
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

type PaymentResult struct {
	ID           string `bson:"id" json:"id"`
	Status       string `bson:"status" json:"status"`
	UpdateTime   string `bson:"update_time" json:"update_time"`
	EmailAddress string `bson:"email_address" json:"email_address"`
}

type Order struct {
	ID              bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	User            bson.ObjectID   `bson:"user" json:"user"`
	OrderItems      []OrderItem     `bson:"orderItems" json:"orderItems"`
	ShippingAddress ShippingAddress `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string          `bson:"paymentMethod" json:"paymentMethod"`
	PaymentResult   *PaymentResult  `bson:"paymentResult,omitempty" json:"paymentResult,omitempty"`
	ItemsPrice      float64         `bson:"itemsPrice" json:"itemsPrice"`
	TaxPrice        float64         `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice   float64         `bson:"shippingPrice" json:"shippingPrice"`
	TotalPrice      float64         `bson:"totalPrice" json:"totalPrice"`
	IsPaid          bool            `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time      `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	IsDelivered     bool            `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time      `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	Status          OrderStatus     `bson:"status" json:"status"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// OrderUser is the subset of the buyer shown on admin order listings.
type OrderUser struct {
	ID    bson.ObjectID `bson:"_id" json:"id"`
	Name  string        `bson:"name" json:"name"`
	Email string        `bson:"email,omitempty" json:"email,omitempty"`
}

// OrderWithUser is an Order whose buyer reference has been expanded.
// When the buyer no longer exists "user" falls back to the raw id.
type OrderWithUser struct {
	Order `bson:",inline"`
	Buyer *OrderUser `bson:"buyer,omitempty" json:"user"`
}

func (o OrderWithUser) MarshalJSON() ([]byte, error) {
	if o.Buyer == nil {
		return json.Marshal(o.Order)
	}
	type expanded OrderWithUser
	return json.Marshal(expanded(o))
}

// CanBeViewedBy reports whether u owns the order or is an administrator.
func (o *Order) CanBeViewedBy(u *User) bool {
	if u == nil {
		return false
	}
	return u.IsAdmin() || o.User == u.ID
}

func (o *Order) MarkPaid(result PaymentResult, at time.Time) {
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &result
	o.UpdatedAt = at
}

func (o *Order) MarkDelivered(at time.Time) {
	o.IsDelivered = true
	o.DeliveredAt = &at
	o.Status = OrderStatusDelivered
	o.UpdatedAt = at
}
