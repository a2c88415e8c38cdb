package database

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nirmalhandloom/storebackend/models"
)

type CategoryRepository struct {
	categories    *mongo.Collection
	subcategories *mongo.Collection
}

func NewCategoryRepository(categories, subcategories *mongo.Collection) *CategoryRepository {
	return &CategoryRepository{categories: categories, subcategories: subcategories}
}

func (r *CategoryRepository) ListActive(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.categories.Find(ctx, bson.M{"isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	items := make([]models.Category, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.Category, error) {
	var cat models.Category
	if err := r.categories.FindOne(ctx, bson.M{"_id": id}).Decode(&cat); err != nil {
		return nil, translate(err)
	}
	return &cat, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, cat *models.Category) error {
	if cat.Id.IsZero() {
		cat.Id = bson.NewObjectID()
	}
	_, err := r.categories.InsertOne(ctx, cat)
	return translate(err)
}

func (r *CategoryRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.categories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CategoryRepository) InsertSub(ctx context.Context, sub *models.SubCategory) error {
	if sub.Id.IsZero() {
		sub.Id = bson.NewObjectID()
	}
	_, err := r.subcategories.InsertOne(ctx, sub)
	return translate(err)
}

func (r *CategoryRepository) ListActiveSubs(ctx context.Context, categoryID bson.ObjectID) ([]models.SubCategory, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.subcategories.Find(ctx, bson.M{"category": categoryID, "isActive": true}, opts)
	if err != nil {
		return nil, err
	}
	items := make([]models.SubCategory, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CategoryRepository) DeleteSub(ctx context.Context, id bson.ObjectID) error {
	res, err := r.subcategories.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
