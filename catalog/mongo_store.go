package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nirmalhandloom/storebackend/models"
)

// MongoStore implements Store on the products, categories and
// subcategories collections.
type MongoStore struct {
	products      *mongo.Collection
	categories    *mongo.Collection
	subcategories *mongo.Collection
}

func NewMongoStore(products, categories, subcategories *mongo.Collection) *MongoStore {
	return &MongoStore{products: products, categories: categories, subcategories: subcategories}
}

// listFilter is the visibility and keyword filter shared by a listing page
// and its count.
func listFilter(q ProductQuery) bson.M {
	filter := bson.M{}
	if q.Keyword != "" {
		filter["name"] = bson.M{"$regex": regexp.QuoteMeta(q.Keyword), "$options": "i"}
	}
	if q.ActiveOnly {
		filter["isActive"] = true
	}
	return filter
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

var bestRated = bson.D{{Key: "rating", Value: -1}, {Key: "numReviews", Value: -1}}

func similarFilter(categoryID, exclude bson.ObjectID) bson.M {
	return bson.M{
		"category": categoryID,
		"_id":      bson.M{"$ne": exclude},
		"isActive": true,
	}
}

func reviewAppendFilter(a ReviewAppend) bson.M {
	return bson.M{
		"_id":          a.ProductID,
		"numReviews":   a.ExpectedCount,
		"reviews.user": bson.M{"$ne": a.Review.User},
	}
}

func reviewAppendUpdate(a ReviewAppend) bson.M {
	return bson.M{
		"$push": bson.M{"reviews": a.Review},
		"$set": bson.M{
			"rating":     a.Rating,
			"numReviews": a.NumReviews,
			"updatedAt":  a.UpdatedAt,
		},
	}
}

// patchSet translates a ProductPatch into a $set document.
func patchSet(p ProductPatch) bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Slug != nil {
		set["slug"] = *p.Slug
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.SubCategory != nil {
		set["subcategory"] = *p.SubCategory
	}
	if p.CountInStock != nil {
		set["countInStock"] = *p.CountInStock
	}
	if p.Discount != nil {
		set["discount"] = *p.Discount
	}
	if p.IsActive != nil {
		set["isActive"] = *p.IsActive
	}
	if len(p.Images) > 0 {
		set["images"] = p.Images
		set["image"] = p.Images[0]
	} else if p.Image != nil {
		set["image"] = *p.Image
	}
	return set
}

func (s *MongoStore) FindProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	opts := options.Find().SetSort(newestFirst).SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return s.findProducts(ctx, listFilter(q), opts)
}

func (s *MongoStore) CountProducts(ctx context.Context, q ProductQuery) (int64, error) {
	n, err := s.products.CountDocuments(ctx, listFilter(q))
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (s *MongoStore) FindProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("find product %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (s *MongoStore) FindSimilar(ctx context.Context, categoryID, exclude bson.ObjectID, limit int64) ([]models.Product, error) {
	return s.findProducts(ctx, similarFilter(categoryID, exclude), options.Find().SetLimit(limit))
}

func (s *MongoStore) FindTopRated(ctx context.Context, limit int64) ([]models.Product, error) {
	opts := options.Find().SetSort(bestRated).SetLimit(limit)
	return s.findProducts(ctx, bson.M{"isActive": true}, opts)
}

func (s *MongoStore) findProducts(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]models.Product, error) {
	cursor, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	for cursor.Next(ctx) {
		var p models.Product
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

func (s *MongoStore) FindCategories(ctx context.Context, ids []bson.ObjectID) ([]models.Category, error) {
	cats := make([]models.Category, 0, len(ids))
	if len(ids) == 0 {
		return cats, nil
	}
	cursor, err := s.categories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}
	if err := cursor.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return cats, nil
}

func (s *MongoStore) FindSubCategories(ctx context.Context, ids []bson.ObjectID) ([]models.SubCategory, error) {
	subs := make([]models.SubCategory, 0, len(ids))
	if len(ids) == 0 {
		return subs, nil
	}
	cursor, err := s.subcategories.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find subcategories: %w", err)
	}
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, fmt.Errorf("decode subcategories: %w", err)
	}
	return subs, nil
}

func (s *MongoStore) InsertProduct(ctx context.Context, p *models.Product) error {
	if _, err := s.products.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *MongoStore) UpdateProduct(ctx context.Context, id bson.ObjectID, patch ProductPatch) (*models.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Product
	err := s.products.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patchSet(patch)}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("update product %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (s *MongoStore) AppendReview(ctx context.Context, a ReviewAppend) (bool, error) {
	res, err := s.products.UpdateOne(ctx, reviewAppendFilter(a), reviewAppendUpdate(a))
	if err != nil {
		return false, fmt.Errorf("append review: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) DeleteProduct(ctx context.Context, id bson.ObjectID) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *MongoStore) DeleteProducts(ctx context.Context, ids []bson.ObjectID) (int64, error) {
	res, err := s.products.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("delete products: %w", err)
	}
	return res.DeletedCount, nil
}
