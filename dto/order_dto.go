package dto

type OrderItemDTO struct {
	Name    string  `json:"name" binding:"required"`
	Qty     int     `json:"qty" binding:"required,min=1"`
	Image   string  `json:"image"`
	Price   float64 `json:"price" binding:"gte=0"`
	Product string  `json:"product" binding:"required,objectid"`
}

type ShippingAddressDTO struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// CreateOrderDTO leaves OrderItems unvalidated at the binding layer so an
// empty list gets its own message.
type CreateOrderDTO struct {
	OrderItems      []OrderItemDTO     `json:"orderItems" binding:"dive"`
	ShippingAddress ShippingAddressDTO `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	ItemsPrice      float64            `json:"itemsPrice" binding:"gte=0"`
	TaxPrice        float64            `json:"taxPrice" binding:"gte=0"`
	ShippingPrice   float64            `json:"shippingPrice" binding:"gte=0"`
	TotalPrice      float64            `json:"totalPrice" binding:"gte=0"`
}

type PaymentResultDTO struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type RazorpayOrderDTO struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}
