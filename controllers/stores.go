package controllers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/payments"
)

// The interfaces below are satisfied by the repositories in package
// database. Not-found lookups return database.ErrNotFound and unique index
// violations wrap database.ErrDuplicate.

type UserStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	Exists(ctx context.Context, email, phone string) (bool, error)
	Insert(ctx context.Context, u *models.User) error
	SaveProfile(ctx context.Context, u *models.User) error
	SaveAddresses(ctx context.Context, u *models.User) error
	List(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, id bson.ObjectID, active bool, at time.Time) (*models.User, error)
}

type CategoryStore interface {
	ListActive(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error)
	Insert(ctx context.Context, cat *models.Category) error
	Delete(ctx context.Context, id bson.ObjectID) error
	InsertSub(ctx context.Context, sub *models.SubCategory) error
	ListActiveSubs(ctx context.Context, categoryID bson.ObjectID) ([]models.SubCategory, error)
	DeleteSub(ctx context.Context, id bson.ObjectID) error
}

type OrderStore interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.OrderWithUser, error)
	ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.OrderWithUser, error)
	SaveState(ctx context.Context, o *models.Order) error
}

// PaymentGateway creates gateway orders for an amount in rupees.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64) (*payments.GatewayOrder, error)
}
