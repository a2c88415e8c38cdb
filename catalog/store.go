package catalog

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/models"
)

// ErrProductNotFound is returned by a Store when no product has the id.
var ErrProductNotFound = errors.New("product not found")

// ProductQuery is the descriptor a listing is translated into.
type ProductQuery struct {
	Keyword    string
	ActiveOnly bool
	Skip       int64
	Limit      int64
}

// ProductPatch lists the fields of a partial product update; nil means
// unchanged.
type ProductPatch struct {
	Name         *string
	Slug         *string
	Price        *float64
	Description  *string
	Category     *bson.ObjectID
	SubCategory  *bson.ObjectID
	CountInStock *int
	Discount     *float64
	IsActive     *bool
	Image        *string
	Images       []string
	UpdatedAt    time.Time
}

// Apply copies the set fields of the patch onto p.
func (pp ProductPatch) Apply(p *models.Product) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Slug != nil {
		p.Slug = *pp.Slug
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.SubCategory != nil {
		sub := *pp.SubCategory
		p.SubCategory = &sub
	}
	if pp.CountInStock != nil {
		p.CountInStock = *pp.CountInStock
	}
	if pp.Discount != nil {
		p.Discount = *pp.Discount
	}
	if pp.IsActive != nil {
		p.IsActive = *pp.IsActive
	}
	if len(pp.Images) > 0 {
		p.SetImages(pp.Images)
	} else if pp.Image != nil {
		p.Image = *pp.Image
	}
	if !pp.UpdatedAt.IsZero() {
		p.UpdatedAt = pp.UpdatedAt
	}
}

// ReviewAppend is a conditional review write. It only applies while the
// product still has ExpectedCount reviews and none from Review.User.
type ReviewAppend struct {
	ProductID     bson.ObjectID
	ExpectedCount int
	Review        models.Review
	Rating        float64
	NumReviews    int
	UpdatedAt     time.Time
}

// Store is the persistence the catalog engine runs on.
type Store interface {
	// FindProducts returns the page described by q, newest first.
	FindProducts(ctx context.Context, q ProductQuery) ([]models.Product, error)
	// CountProducts counts every match of q, ignoring Skip and Limit.
	CountProducts(ctx context.Context, q ProductQuery) (int64, error)
	FindProduct(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	// FindSimilar returns up to limit active products of categoryID other than exclude.
	FindSimilar(ctx context.Context, categoryID, exclude bson.ObjectID, limit int64) ([]models.Product, error)
	// FindTopRated returns active products by rating, then review count, descending.
	FindTopRated(ctx context.Context, limit int64) ([]models.Product, error)

	FindCategories(ctx context.Context, ids []bson.ObjectID) ([]models.Category, error)
	FindSubCategories(ctx context.Context, ids []bson.ObjectID) ([]models.SubCategory, error)

	InsertProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, id bson.ObjectID, patch ProductPatch) (*models.Product, error)
	// AppendReview reports false when the precondition no longer holds.
	AppendReview(ctx context.Context, a ReviewAppend) (bool, error)
	DeleteProduct(ctx context.Context, id bson.ObjectID) error
	DeleteProducts(ctx context.Context, ids []bson.ObjectID) (int64, error)
}
