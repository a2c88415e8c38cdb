package database

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nirmalhandloom/storebackend/models"
)

type OrderRepository struct {
	col *mongo.Collection
}

func NewOrderRepository(col *mongo.Collection) *OrderRepository {
	return &OrderRepository{col: col}
}

func (r *OrderRepository) Insert(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = bson.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, o)
	return err
}

// FindByID returns the order with its buyer's name and e-mail.
func (r *OrderRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.OrderWithUser, error) {
	orders, err := r.aggregate(ctx, withBuyer(bson.D{{Key: "_id", Value: id}}))
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID bson.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]models.OrderWithUser, error) {
	return r.aggregate(ctx, withBuyer(bson.D{}))
}

// SaveState persists the payment and delivery fields of o.
func (r *OrderRepository) SaveState(ctx context.Context, o *models.Order) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": o.ID}, stateUpdate(o))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func stateUpdate(o *models.Order) bson.M {
	set := bson.M{
		"isPaid":      o.IsPaid,
		"isDelivered": o.IsDelivered,
		"status":      o.Status,
		"updatedAt":   o.UpdatedAt,
	}
	if o.PaidAt != nil {
		set["paidAt"] = *o.PaidAt
	}
	if o.PaymentResult != nil {
		set["paymentResult"] = o.PaymentResult
	}
	if o.DeliveredAt != nil {
		set["deliveredAt"] = *o.DeliveredAt
	}
	return bson.M{"$set": set}
}

func (r *OrderRepository) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]models.OrderWithUser, error) {
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	orders := make([]models.OrderWithUser, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// withBuyer matches orders newest first and joins the buyer's public fields.
func withBuyer(match bson.D) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UsersCollection},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$project", Value: bson.D{{Key: "name", Value: 1}, {Key: "email", Value: 1}}}},
			}},
			{Key: "as", Value: "buyer"},
		}}},
		{{Key: "$unwind", Value: bson.D{
			{Key: "path", Value: "$buyer"},
			{Key: "preserveNullAndEmptyArrays", Value: true},
		}}},
	}
}
