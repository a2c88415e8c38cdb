package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/nirmalhandloom/storebackend/middleware"
)

// Handlers bundles the route handlers with the middleware guarding them.
type Handlers struct {
	Auth       *middleware.Authenticator
	Products   *Products
	Categories *Categories
	Users      *Users
	Orders     *Orders
	// AuthLimit throttles registration and login; nil disables it.
	AuthLimit gin.HandlerFunc
}

// RegisterRoutes mounts the storefront API on api, normally the /api group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	protect := h.Auth.Protect()
	admin := middleware.AdminOnly()
	limit := h.AuthLimit
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}

	products := api.Group("/products")
	{
		products.GET("", h.Auth.OptionalAuth(), h.Products.List())
		products.GET("/top", h.Products.Top())
		products.GET("/:id", h.Products.Get())
		products.POST("/:id/reviews", protect, h.Products.AddReview())

		products.POST("", protect, admin, h.Products.Create())
		products.PUT("/:id", protect, admin, h.Products.Update())
		products.DELETE("/:id", protect, admin, h.Products.Delete())
		products.DELETE("", protect, admin, h.Products.DeleteMany())
	}

	categories := api.Group("/categories")
	{
		categories.GET("", h.Categories.List())
		categories.GET("/:id/sub", h.Categories.ListSubs())

		categories.POST("", protect, admin, h.Categories.Create())
		categories.POST("/sub", protect, admin, h.Categories.CreateSub())
		categories.DELETE("/:id", protect, admin, h.Categories.Delete())
		categories.DELETE("/sub/:id", protect, admin, h.Categories.DeleteSub())
	}

	users := api.Group("/users")
	{
		users.POST("", limit, h.Users.Register())
		users.POST("/login", limit, h.Users.Login())

		users.PUT("/profile", protect, h.Users.UpdateProfile())
		users.GET("/address", protect, h.Users.Addresses())
		users.POST("/address", protect, h.Users.AddAddress())
		users.PUT("/address/:id", protect, h.Users.UpdateAddress())
		users.DELETE("/address/:id", protect, h.Users.DeleteAddress())

		users.GET("", protect, admin, h.Users.List())
		users.PUT("/:id/status", protect, admin, h.Users.SetStatus())
	}

	orders := api.Group("/orders")
	orders.Use(protect)
	{
		orders.POST("", h.Orders.Create())
		orders.GET("/myorders", h.Orders.Mine())
		orders.POST("/razorpay", h.Orders.CreatePayment())
		orders.GET("/:id", h.Orders.Get())
		orders.PUT("/:id/pay", h.Orders.Pay())

		orders.GET("", admin, h.Orders.List())
		orders.PUT("/:id/deliver", admin, h.Orders.Deliver())
	}
}
