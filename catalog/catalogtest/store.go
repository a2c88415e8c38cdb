// Package catalogtest provides an in-memory catalog.Store for tests.
package catalogtest

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/catalog"
	"github.com/nirmalhandloom/storebackend/models"
)

var _ catalog.Store = (*Store)(nil)

type Store struct {
	mu            sync.Mutex
	products      []models.Product
	categories    []models.Category
	subcategories []models.SubCategory

	// BeforeAppend runs once inside AppendReview, on the stored product,
	// before the precondition is checked. It simulates a concurrent writer.
	BeforeAppend func(p *models.Product)
	// LostAppends makes the next n AppendReview calls report a lost race.
	LostAppends int
	// Err, when set, is returned by every call.
	Err error
}

func NewStore() *Store {
	return &Store{}
}

// AddProducts seeds products as-is.
func (s *Store) AddProducts(ps ...models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, ps...)
}

func (s *Store) AddCategories(cs ...models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, cs...)
}

func (s *Store) AddSubCategories(cs ...models.SubCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subcategories = append(s.subcategories, cs...)
}

// Product returns a copy of the stored product, if any.
func (s *Store) Product(id bson.ObjectID) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Product{}, false
	}
	return clone(s.products[i]), true
}

// Len returns the number of stored products.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.products)
}

func (s *Store) FindProducts(_ context.Context, q catalog.ProductQuery) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	matched := s.match(q)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	out := make([]models.Product, 0)
	for i := q.Skip; i < int64(len(matched)); i++ {
		if q.Limit > 0 && int64(len(out)) >= q.Limit {
			break
		}
		out = append(out, clone(matched[i]))
	}
	return out, nil
}

func (s *Store) CountProducts(_ context.Context, q catalog.ProductQuery) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.match(q))), nil
}

func (s *Store) match(q catalog.ProductQuery) []models.Product {
	keyword := strings.ToLower(q.Keyword)
	var out []models.Product
	for _, p := range s.products {
		if q.ActiveOnly && !p.IsActive {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Store) FindProduct(_ context.Context, id bson.ObjectID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, catalog.ErrProductNotFound
	}
	p := clone(s.products[i])
	return &p, nil
}

func (s *Store) FindSimilar(_ context.Context, categoryID, exclude bson.ObjectID, limit int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.Product, 0)
	for _, p := range s.products {
		if int64(len(out)) >= limit {
			break
		}
		if p.Category == categoryID && p.Id != exclude && p.IsActive {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (s *Store) FindTopRated(_ context.Context, limit int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	active := s.match(catalog.ProductQuery{ActiveOnly: true})
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Rating != active[j].Rating {
			return active[i].Rating > active[j].Rating
		}
		return active[i].NumReviews > active[j].NumReviews
	})
	if int64(len(active)) > limit {
		active = active[:limit]
	}
	out := make([]models.Product, 0, len(active))
	for _, p := range active {
		out = append(out, clone(p))
	}
	return out, nil
}

func (s *Store) FindCategories(_ context.Context, ids []bson.ObjectID) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.Category, 0)
	for _, c := range s.categories {
		if slices.Contains(ids, c.Id) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) FindSubCategories(_ context.Context, ids []bson.ObjectID) ([]models.SubCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.SubCategory, 0)
	for _, c := range s.subcategories {
		if slices.Contains(ids, c.Id) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) InsertProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.products = append(s.products, clone(*p))
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, id bson.ObjectID, patch catalog.ProductPatch) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	i := s.indexOf(id)
	if i < 0 {
		return nil, catalog.ErrProductNotFound
	}
	patch.Apply(&s.products[i])
	p := clone(s.products[i])
	return &p, nil
}

func (s *Store) AppendReview(_ context.Context, a catalog.ReviewAppend) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if s.LostAppends > 0 {
		s.LostAppends--
		return false, nil
	}
	i := s.indexOf(a.ProductID)
	if i < 0 {
		return false, nil
	}
	p := &s.products[i]
	if hook := s.BeforeAppend; hook != nil {
		s.BeforeAppend = nil
		hook(p)
	}
	if p.NumReviews != a.ExpectedCount || p.HasReviewFrom(a.Review.User) {
		return false, nil
	}
	p.Reviews = append(p.Reviews, a.Review)
	p.Rating = a.Rating
	p.NumReviews = a.NumReviews
	p.UpdatedAt = a.UpdatedAt
	return true, nil
}

func (s *Store) DeleteProduct(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	i := s.indexOf(id)
	if i < 0 {
		return catalog.ErrProductNotFound
	}
	s.products = slices.Delete(s.products, i, i+1)
	return nil
}

func (s *Store) DeleteProducts(_ context.Context, ids []bson.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	before := len(s.products)
	s.products = slices.DeleteFunc(s.products, func(p models.Product) bool {
		return slices.Contains(ids, p.Id)
	})
	return int64(before - len(s.products)), nil
}

func (s *Store) indexOf(id bson.ObjectID) int {
	return slices.IndexFunc(s.products, func(p models.Product) bool { return p.Id == id })
}

func clone(p models.Product) models.Product {
	p.Images = slices.Clone(p.Images)
	p.Reviews = slices.Clone(p.Reviews)
	return p
}
