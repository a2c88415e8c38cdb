package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/events"
	"github.com/nirmalhandloom/storebackend/logger"
	"github.com/nirmalhandloom/storebackend/middleware"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/notify"
	"github.com/nirmalhandloom/storebackend/payments"
)

type Orders struct {
	Store   OrderStore
	Gateway PaymentGateway
	Mailer  notify.Mailer
	Events  events.Publisher
	Now     func() time.Time
}

func (h *Orders) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// POST /api/orders
func (h *Orders) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		var body dto.CreateOrderDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}
		if len(body.OrderItems) == 0 {
			respondError(c, apperrors.ValidationFailed("No order items"))
			return
		}

		user := middleware.CurrentUser(c)
		order, err := newOrder(user.ID, body, h.now())
		if err != nil {
			respondError(c, apperrors.ValidationFailed("Invalid product id"))
			return
		}
		if err := h.Store.Insert(ctx, order); err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}

		events.Emit(ctx, h.Events, log, events.OrderCreated, order.ID.Hex(), "order", order)
		if err := h.Mailer.OrderConfirmation(ctx, user.Name, user.Email, order); err != nil {
			log.WarnContext(ctx, "order confirmation mail failed",
				slog.String("order_id", order.ID.Hex()),
				slog.String("error", err.Error()),
			)
		}
		c.JSON(http.StatusCreated, order)
	}
}

func newOrder(userID bson.ObjectID, body dto.CreateOrderDTO, now time.Time) (*models.Order, error) {
	items := make([]models.OrderItem, 0, len(body.OrderItems))
	for _, it := range body.OrderItems {
		pid, err := bson.ObjectIDFromHex(it.Product)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderItem{
			Name:    it.Name,
			Qty:     it.Qty,
			Image:   it.Image,
			Price:   it.Price,
			Product: pid,
		})
	}

	return &models.Order{
		ID:         bson.NewObjectID(),
		User:       userID,
		OrderItems: items,
		ShippingAddress: models.ShippingAddress{
			Address:    body.ShippingAddress.Address,
			City:       body.ShippingAddress.City,
			PostalCode: body.ShippingAddress.PostalCode,
			Country:    body.ShippingAddress.Country,
		},
		PaymentMethod: body.PaymentMethod,
		ItemsPrice:    body.ItemsPrice,
		TaxPrice:      body.TaxPrice,
		ShippingPrice: body.ShippingPrice,
		TotalPrice:    body.TotalPrice,
		Status:        models.OrderStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// load returns the order when the current user may see it. Other users'
// orders are reported as missing.
func (h *Orders) load(c *gin.Context) (*models.OrderWithUser, error) {
	id, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return nil, apperrors.NotFound("Order not found")
	}
	order, err := h.Store.FindByID(c.Request.Context(), id)
	if err != nil {
		return nil, storeError(err, "Order not found")
	}
	if !order.CanBeViewedBy(middleware.CurrentUser(c)) {
		return nil, apperrors.NotFound("Order not found")
	}
	return order, nil
}

// GET /api/orders/:id
func (h *Orders) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := h.load(c)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// PUT /api/orders/:id/pay
func (h *Orders) Pay() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.PaymentResultDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}
		order, err := h.load(c)
		if err != nil {
			respondError(c, err)
			return
		}

		order.MarkPaid(models.PaymentResult{
			ID:           body.ID,
			Status:       body.Status,
			UpdateTime:   body.UpdateTime,
			EmailAddress: body.EmailAddress,
		}, h.now())
		if err := h.Store.SaveState(ctx, &order.Order); err != nil {
			respondError(c, storeError(err, "Order not found"))
			return
		}

		events.Emit(ctx, h.Events, logger.FromContext(ctx), events.OrderPaid, order.ID.Hex(), "order", order.Order)
		c.JSON(http.StatusOK, order.Order)
	}
}

// PUT /api/orders/:id/deliver
func (h *Orders) Deliver() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		order, err := h.load(c)
		if err != nil {
			respondError(c, err)
			return
		}

		order.MarkDelivered(h.now())
		if err := h.Store.SaveState(ctx, &order.Order); err != nil {
			respondError(c, storeError(err, "Order not found"))
			return
		}

		events.Emit(ctx, h.Events, logger.FromContext(ctx), events.OrderDelivered, order.ID.Hex(), "order", order.Order)
		c.JSON(http.StatusOK, order.Order)
	}
}

// GET /api/orders/myorders
func (h *Orders) Mine() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.Store.ListByUser(c.Request.Context(), middleware.CurrentUser(c).ID)
		if err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// GET /api/orders
func (h *Orders) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.Store.ListAll(c.Request.Context())
		if err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

// POST /api/orders/razorpay
func (h *Orders) CreatePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RazorpayOrderDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		ctx := c.Request.Context()
		order, err := h.Gateway.CreateOrder(ctx, body.Amount)
		if err != nil {
			logger.FromContext(ctx).WarnContext(ctx, "payment order creation failed", slog.String("error", err.Error()))
			respondError(c, paymentError(err))
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func paymentError(err error) error {
	var apiErr *payments.APIError
	switch {
	case errors.Is(err, payments.ErrInvalidAmount):
		return apperrors.ValidationFailed("Amount must be greater than zero")
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		return apperrors.ValidationFailed("Payment order could not be created")
	default:
		return apperrors.Unavailable("Payment gateway temporarily unavailable")
	}
}
