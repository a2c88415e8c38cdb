package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/cache"
	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/events"
	"github.com/nirmalhandloom/storebackend/logger"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/utils"
)

// TopCacheKey holds the cached top-rated listing.
const TopCacheKey = "catalog:top"

const maxReviewAttempts = 3

// ImageRemover deletes stored product images by public URL.
type ImageRemover interface {
	Delete(ctx context.Context, url string) error
}

// ProductDetail is a product with its category references expanded.
type ProductDetail struct {
	models.Product
	Category    *models.Category    `json:"category"`
	SubCategory *models.SubCategory `json:"subcategory,omitempty"`
}

type Listing struct {
	Products []ProductDetail `json:"products"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	Total    int64           `json:"total"`
}

type Detail struct {
	Product         ProductDetail    `json:"product"`
	SimilarProducts []models.Product `json:"similarProducts"`
}

// ReviewInput is a review submitted by an authenticated user.
type ReviewInput struct {
	ProductID string
	UserID    bson.ObjectID
	UserName  string
	Rating    int
	Comment   string
}

// NewProduct is the admin input for product creation. Images are already
// stored; an empty list falls back to the default image.
type NewProduct struct {
	Name         string
	Description  string
	Price        float64
	Category     bson.ObjectID
	SubCategory  *bson.ObjectID
	CountInStock int
	Discount     float64
	IsActive     *bool
	Images       []string
	CreatedBy    bson.ObjectID
}

type Deps struct {
	Store        Store
	Cache        cache.Cache
	Events       events.Publisher
	Images       ImageRemover
	DefaultImage string
	Logger       *slog.Logger
}

// Engine answers catalog reads and applies catalog writes.
type Engine struct {
	store        Store
	cfg          config.CatalogConfig
	cache        cache.Cache
	events       events.Publisher
	images       ImageRemover
	defaultImage string
	logger       *slog.Logger
	now          func() time.Time
}

func NewEngine(cfg config.CatalogConfig, deps Deps) *Engine {
	e := &Engine{
		store:        deps.Store,
		cfg:          cfg,
		cache:        deps.Cache,
		events:       deps.Events,
		images:       deps.Images,
		defaultImage: deps.DefaultImage,
		logger:       deps.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	if e.cache == nil {
		e.cache = cache.Noop{}
	}
	if e.events == nil {
		e.events = events.Noop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.defaultImage == "" {
		e.defaultImage = "/images/sample.jpg"
	}
	return e
}

func (e *Engine) Config() config.CatalogConfig { return e.cfg }

func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logger.WithContext(ctx, e.logger)
}

// List returns one page of the catalog.
func (e *Engine) List(ctx context.Context, p ListParams) (*Listing, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = e.cfg.DefaultLimit
	}
	if last := maxPage(p.Limit); int64(p.Page) > last {
		p.Page = int(last)
	}
	q := p.query()

	products, err := e.store.FindProducts(ctx, q)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	total, err := e.store.CountProducts(ctx, q)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	expanded, err := e.expand(ctx, products)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Products: expanded,
		Page:     p.Page,
		Pages:    pageCount(total, p.Limit),
		Total:    total,
	}, nil
}

// GetByID returns the product and up to SimilarLimit active products of the
// same category. Malformed ids are reported as NotFound.
func (e *Engine) GetByID(ctx context.Context, id string) (*Detail, error) {
	p, err := e.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	expanded, err := e.expand(ctx, []models.Product{*p})
	if err != nil {
		return nil, err
	}

	similar, err := e.store.FindSimilar(ctx, p.Category, p.Id, int64(e.cfg.SimilarLimit))
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if similar == nil {
		similar = []models.Product{}
	}

	return &Detail{Product: expanded[0], SimilarProducts: similar}, nil
}

// Top returns the best rated active products.
func (e *Engine) Top(ctx context.Context) ([]models.Product, error) {
	var cached []models.Product
	found, err := e.cache.GetJSON(ctx, TopCacheKey, &cached)
	if err != nil {
		e.log(ctx).WarnContext(ctx, "top products cache read failed", slog.String("error", err.Error()))
	}
	if found {
		return cached, nil
	}

	products, err := e.store.FindTopRated(ctx, int64(e.cfg.TopLimit))
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if products == nil {
		products = []models.Product{}
	}

	if err := e.cache.SetJSON(ctx, TopCacheKey, products, e.cfg.CacheTTL); err != nil {
		e.log(ctx).WarnContext(ctx, "top products cache write failed", slog.String("error", err.Error()))
	}
	return products, nil
}

// AddReview appends a review and recomputes the product's rating. The write
// only lands if nobody else reviewed the product since it was read; a lost
// race is retried against a fresh copy.
func (e *Engine) AddReview(ctx context.Context, in ReviewInput) error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperrors.ValidationFailed("Rating must be between 1 and 5")
	}

	for attempt := 0; attempt < maxReviewAttempts; attempt++ {
		p, err := e.findProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}

		expected := p.NumReviews
		review := models.Review{
			User:      in.UserID,
			Name:      in.UserName,
			Rating:    in.Rating,
			Comment:   strings.TrimSpace(in.Comment),
			CreatedAt: e.now(),
		}
		if err := p.AddReview(review); err != nil {
			if errors.Is(err, models.ErrAlreadyReviewed) {
				return apperrors.AlreadyReviewed()
			}
			return err
		}

		ok, err := e.store.AppendReview(ctx, ReviewAppend{
			ProductID:     p.Id,
			ExpectedCount: expected,
			Review:        review,
			Rating:        p.Rating,
			NumReviews:    p.NumReviews,
			UpdatedAt:     review.CreatedAt,
		})
		if err != nil {
			return apperrors.Persistence(err)
		}
		if ok {
			e.invalidate(ctx)
			events.Emit(ctx, e.events, e.log(ctx), events.ProductReviewed, p.Id.Hex(), "product", map[string]any{
				"productId":  p.Id.Hex(),
				"userId":     in.UserID.Hex(),
				"rating":     in.Rating,
				"numReviews": p.NumReviews,
				"average":    p.Rating,
			})
			return nil
		}

		e.log(ctx).InfoContext(ctx, "review write lost a race, retrying",
			slog.String("product_id", p.Id.Hex()),
			slog.Int("attempt", attempt+1),
		)
	}

	return apperrors.Conflict("Product was updated concurrently, please try again")
}

// CreateProduct validates and stores a new product. The already stored
// images in in.Images are removed again when the product is rejected.
func (e *Engine) CreateProduct(ctx context.Context, in NewProduct) (_ *models.Product, err error) {
	defer func() {
		if err != nil {
			e.removeImages(ctx, in.Images)
		}
	}()

	name := strings.TrimSpace(in.Name)
	if name == "" || in.Category.IsZero() {
		return nil, apperrors.ValidationFailed("Please fill in all required fields")
	}
	if err := validateNumbers(&in.Price, &in.CountInStock, &in.Discount); err != nil {
		return nil, err
	}
	if err := e.checkCategory(ctx, in.Category, in.SubCategory); err != nil {
		return nil, err
	}

	now := e.now()
	p := &models.Product{
		Id:           bson.NewObjectID(),
		Name:         name,
		Slug:         utils.GenerateSlug(name),
		Price:        in.Price,
		Description:  in.Description,
		Category:     in.Category,
		SubCategory:  in.SubCategory,
		CountInStock: in.CountInStock,
		Discount:     in.Discount,
		IsActive:     true,
		Reviews:      []models.Review{},
		User:         in.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	images := in.Images
	if len(images) == 0 {
		images = []string{e.defaultImage}
	}
	p.SetImages(images)

	if err := e.store.InsertProduct(ctx, p); err != nil {
		return nil, apperrors.Persistence(err)
	}

	e.invalidate(ctx)
	events.Emit(ctx, e.events, e.log(ctx), events.ProductCreated, p.Id.Hex(), "product", p)
	return p, nil
}

// UpdateProduct applies a partial update. When new images replace the
// gallery the old ones are removed from storage after the write; when the
// update is rejected the new ones are removed instead.
func (e *Engine) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (_ *models.Product, err error) {
	defer func() {
		if err != nil {
			e.removeImages(ctx, patch.Images)
		}
	}()

	existing, err := e.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.ValidationFailed("Product name cannot be empty")
		}
		slug := utils.GenerateSlug(name)
		patch.Name, patch.Slug = &name, &slug
	}
	if err := validateNumbers(patch.Price, patch.CountInStock, patch.Discount); err != nil {
		return nil, err
	}
	if patch.Category != nil || patch.SubCategory != nil {
		category := existing.Category
		if patch.Category != nil {
			category = *patch.Category
		}
		sub := existing.SubCategory
		if patch.SubCategory != nil {
			sub = patch.SubCategory
		}
		if err := e.checkCategory(ctx, category, sub); err != nil {
			return nil, err
		}
	}
	patch.UpdatedAt = e.now()

	updated, err := e.store.UpdateProduct(ctx, existing.Id, patch)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, apperrors.Persistence(err)
	}

	if len(patch.Images) > 0 {
		var stale []string
		for _, img := range existing.Images {
			if !slices.Contains(updated.Images, img) {
				stale = append(stale, img)
			}
		}
		e.removeImages(ctx, stale)
	}

	e.invalidate(ctx)
	events.Emit(ctx, e.events, e.log(ctx), events.ProductUpdated, updated.Id.Hex(), "product", updated)
	return updated, nil
}

func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	p, err := e.findProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := e.store.DeleteProduct(ctx, p.Id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return apperrors.NotFound("Product not found")
		}
		return apperrors.Persistence(err)
	}

	e.removeImages(ctx, p.Images)
	e.invalidate(ctx)
	events.Emit(ctx, e.events, e.log(ctx), events.ProductDeleted, p.Id.Hex(), "product", map[string]string{"id": p.Id.Hex()})
	return nil
}

// DeleteProducts hard-deletes every listed product and reports how many
// existed.
func (e *Engine) DeleteProducts(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.ValidationFailed("No product ids provided")
	}
	oids, err := utils.StringsToObjectIDs(ids)
	if err != nil {
		return 0, apperrors.ValidationFailed("Invalid product id")
	}

	n, err := e.store.DeleteProducts(ctx, oids)
	if err != nil {
		return 0, apperrors.Persistence(err)
	}

	e.invalidate(ctx)
	for _, id := range oids {
		events.Emit(ctx, e.events, e.log(ctx), events.ProductDeleted, id.Hex(), "product", map[string]string{"id": id.Hex()})
	}
	return n, nil
}

// Product returns the stored product without expansion.
func (e *Engine) Product(ctx context.Context, id string) (*models.Product, error) {
	return e.findProduct(ctx, id)
}

func (e *Engine) findProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.NotFound("Product not found")
	}
	p, err := e.store.FindProduct(ctx, oid)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, apperrors.Persistence(err)
	}
	return p, nil
}

// expand resolves category and subcategory references in two lookups.
func (e *Engine) expand(ctx context.Context, products []models.Product) ([]ProductDetail, error) {
	out := make([]ProductDetail, 0, len(products))
	if len(products) == 0 {
		return out, nil
	}

	var catIDs, subIDs []bson.ObjectID
	for _, p := range products {
		if !slices.Contains(catIDs, p.Category) {
			catIDs = append(catIDs, p.Category)
		}
		if p.SubCategory != nil && !slices.Contains(subIDs, *p.SubCategory) {
			subIDs = append(subIDs, *p.SubCategory)
		}
	}

	cats, err := e.store.FindCategories(ctx, catIDs)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	catByID := make(map[bson.ObjectID]*models.Category, len(cats))
	for i := range cats {
		catByID[cats[i].Id] = &cats[i]
	}

	subByID := map[bson.ObjectID]*models.SubCategory{}
	if len(subIDs) > 0 {
		subs, err := e.store.FindSubCategories(ctx, subIDs)
		if err != nil {
			return nil, apperrors.Persistence(err)
		}
		for i := range subs {
			subByID[subs[i].Id] = &subs[i]
		}
	}

	for _, p := range products {
		d := ProductDetail{Product: p, Category: catByID[p.Category]}
		if p.SubCategory != nil {
			d.SubCategory = subByID[*p.SubCategory]
		}
		out = append(out, d)
	}
	return out, nil
}

func (e *Engine) checkCategory(ctx context.Context, category bson.ObjectID, sub *bson.ObjectID) error {
	cats, err := e.store.FindCategories(ctx, []bson.ObjectID{category})
	if err != nil {
		return apperrors.Persistence(err)
	}
	if len(cats) == 0 {
		return apperrors.ValidationFailed("Category not found")
	}
	if sub == nil {
		return nil
	}
	subs, err := e.store.FindSubCategories(ctx, []bson.ObjectID{*sub})
	if err != nil {
		return apperrors.Persistence(err)
	}
	if len(subs) == 0 {
		return apperrors.ValidationFailed("Subcategory not found")
	}
	if subs[0].Category != category {
		return apperrors.ValidationFailed("Subcategory does not belong to the selected category")
	}
	return nil
}

func validateNumbers(price *float64, stock *int, discount *float64) error {
	if price != nil && *price < 0 {
		return apperrors.ValidationFailed("Price cannot be negative")
	}
	if stock != nil && *stock < 0 {
		return apperrors.ValidationFailed("Stock count cannot be negative")
	}
	if discount != nil && (*discount < 0 || *discount > 100) {
		return apperrors.ValidationFailed("Discount must be between 0 and 100")
	}
	return nil
}

func (e *Engine) invalidate(ctx context.Context) {
	if err := e.cache.Delete(ctx, TopCacheKey); err != nil {
		e.log(ctx).WarnContext(ctx, "catalog cache invalidation failed", slog.String("error", err.Error()))
	}
}

// removeImages deletes stored images, logging failures.
func (e *Engine) removeImages(ctx context.Context, urls []string) {
	if e.images == nil {
		return
	}
	for _, u := range urls {
		if u == "" || u == e.defaultImage {
			continue
		}
		if err := e.images.Delete(ctx, u); err != nil {
			e.log(ctx).WarnContext(ctx, "image cleanup failed", slog.String("url", u), slog.String("error", err.Error()))
		}
	}
}
