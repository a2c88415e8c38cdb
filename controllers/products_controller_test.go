package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/events"
	"github.com/nirmalhandloom/storebackend/models"
)

type listingBody struct {
	Products []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		IsActive bool   `json:"isActive"`
		Category struct {
			Name string `json:"name"`
		} `json:"category"`
	} `json:"products"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Total int64 `json:"total"`
}

type productBody struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Slug       string   `json:"slug"`
	Price      float64  `json:"price"`
	Image      string   `json:"image"`
	Images     []string `json:"images"`
	IsActive   bool     `json:"isActive"`
	Rating     float64  `json:"rating"`
	NumReviews int      `json:"numReviews"`
}

func (h *harness) seedProduct(name string, active bool) models.Product {
	p := models.Product{
		Id:        bson.NewObjectID(),
		Name:      name,
		Slug:      strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Price:     2499,
		Category:  h.sarees.Id,
		IsActive:  active,
		Image:     "/images/sample.jpg",
		Images:    []string{"/images/sample.jpg"},
		Reviews:   []models.Review{},
		CreatedAt: h.now,
	}
	h.catalog.AddProducts(p)
	return p
}

func (h *harness) localPath(url string) string {
	return filepath.Join(h.images.Dir(), filepath.FromSlash(strings.TrimPrefix(url, "/uploads/")))
}

func TestListProducts_ShowAllOnlyForAdmins(t *testing.T) {
	h := newHarness(t)
	h.seedProduct("Banarasi Silk", true)
	h.seedProduct("Retired Tussar", false)

	cases := []struct {
		name  string
		token string
		want  int64
	}{
		{"anonymous", "", 1},
		{"customer", h.token(h.buyer), 1},
		{"admin", h.token(h.admin), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(http.MethodGet, "/api/products?showAll=true", nil, "", tc.token)
			requireStatus(t, w, http.StatusOK)
			body := decode[listingBody](t, w)
			assert.Equal(t, tc.want, body.Total)
			assert.Len(t, body.Products, int(tc.want))
		})
	}
}

func TestListProducts_KeywordAndCategoryExpansion(t *testing.T) {
	h := newHarness(t)
	h.seedProduct("Banarasi Silk", true)
	h.seedProduct("Cotton Dupatta", true)

	w := h.do(http.MethodGet, "/api/products?keyword=silk&page=1&limit=5", nil, "", "")
	requireStatus(t, w, http.StatusOK)

	body := decode[listingBody](t, w)
	require.Len(t, body.Products, 1)
	assert.Equal(t, "Banarasi Silk", body.Products[0].Name)
	assert.Equal(t, "Sarees", body.Products[0].Category.Name)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 1, body.Pages)
}

func TestListProducts_InvalidTokenIsAnonymous(t *testing.T) {
	h := newHarness(t)
	h.seedProduct("Retired Tussar", false)

	w := h.do(http.MethodGet, "/api/products?showAll=true", nil, "", "garbage")
	requireStatus(t, w, http.StatusOK)
	assert.Zero(t, decode[listingBody](t, w).Total)
}

func TestTopProducts_IsNotTreatedAsAnID(t *testing.T) {
	h := newHarness(t)
	h.seedProduct("Banarasi Silk", true)

	w := h.do(http.MethodGet, "/api/products/top", nil, "", "")
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decode[[]productBody](t, w), 1)
}

func TestGetProduct(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct("Banarasi Silk", true)
	h.seedProduct("Kanjivaram", true)

	w := h.do(http.MethodGet, "/api/products/"+p.Id.Hex(), nil, "", "")
	requireStatus(t, w, http.StatusOK)
	body := decode[struct {
		Product         productBody   `json:"product"`
		SimilarProducts []productBody `json:"similarProducts"`
	}](t, w)
	assert.Equal(t, "Banarasi Silk", body.Product.Name)
	require.Len(t, body.SimilarProducts, 1)
	assert.Equal(t, "Kanjivaram", body.SimilarProducts[0].Name)

	for _, id := range []string{bson.NewObjectID().Hex(), "not-an-id"} {
		w := h.do(http.MethodGet, "/api/products/"+id, nil, "", "")
		requireStatus(t, w, http.StatusNotFound)
		assert.Equal(t, "Product not found", message(t, w))
	}
}

func TestAddReview(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct("Banarasi Silk", true)
	path := "/api/products/" + p.Id.Hex() + "/reviews"
	review := map[string]any{"rating": 4, "comment": "Lovely weave"}

	w := h.send(http.MethodPost, path, review, "")
	requireStatus(t, w, http.StatusUnauthorized)
	assert.Equal(t, "Not authorized, no token", message(t, w))

	w = h.send(http.MethodPost, path, review, h.token(h.buyer))
	requireStatus(t, w, http.StatusCreated)
	assert.Equal(t, "Review added", message(t, w))

	stored, ok := h.catalog.Product(p.Id)
	require.True(t, ok)
	assert.Equal(t, 1, stored.NumReviews)
	assert.InDelta(t, 4.0, stored.Rating, 1e-9)
	assert.Equal(t, "Meera", stored.Reviews[0].Name)
	assert.Contains(t, h.events.types, events.ProductReviewed)

	w = h.send(http.MethodPost, path, review, h.token(h.buyer))
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Product already reviewed", message(t, w))
}

func TestAddReview_Rejections(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct("Banarasi Silk", true)
	tok := h.token(h.buyer)

	w := h.send(http.MethodPost, "/api/products/"+p.Id.Hex()+"/reviews", map[string]any{"rating": 6}, tok)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Rating must be between 1 and 5", message(t, w))

	w = h.send(http.MethodPost, "/api/products/"+p.Id.Hex()+"/reviews", map[string]any{"comment": "no rating"}, tok)
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "rating is required", message(t, w))

	w = h.send(http.MethodPost, "/api/products/"+bson.NewObjectID().Hex()+"/reviews", map[string]any{"rating": 5}, tok)
	requireStatus(t, w, http.StatusNotFound)
}

func TestCreateProduct_DefaultImage(t *testing.T) {
	h := newHarness(t)
	fields := map[string]string{
		"name":         "Ikat Cotton Saree",
		"price":        "1899.50",
		"description":  "Handwoven in Pochampally",
		"category":     h.sarees.Id.Hex(),
		"countInStock": "7",
	}

	w := h.form(http.MethodPost, "/api/products", fields, nil, h.token(h.buyer))
	requireStatus(t, w, http.StatusForbidden)
	assert.Equal(t, "Not authorized as an admin", message(t, w))

	w = h.form(http.MethodPost, "/api/products", fields, nil, h.token(h.admin))
	requireStatus(t, w, http.StatusCreated)
	body := decode[productBody](t, w)
	assert.Equal(t, "ikat-cotton-saree", body.Slug)
	assert.Equal(t, "/images/sample.jpg", body.Image)
	assert.Equal(t, []string{"/images/sample.jpg"}, body.Images)
	assert.True(t, body.IsActive)
	assert.Equal(t, 1, h.catalog.Len())
}

func TestCreateProduct_StoresUploadedImages(t *testing.T) {
	h := newHarness(t)
	fields := map[string]string{
		"name":         "Jamdani",
		"price":        "3200",
		"description":  "Muslin",
		"category":     h.sarees.Id.Hex(),
		"countInStock": "2",
		"isActive":     "false",
	}
	files := []upload{
		{field: "images", name: "front.png", content: pngHeader},
		{field: "images", name: "back.png", content: pngHeader},
	}

	w := h.form(http.MethodPost, "/api/products", fields, files, h.token(h.admin))
	requireStatus(t, w, http.StatusCreated)

	body := decode[productBody](t, w)
	require.Len(t, body.Images, 2)
	assert.Equal(t, body.Images[0], body.Image)
	assert.False(t, body.IsActive)
	for _, url := range body.Images {
		assert.True(t, strings.HasPrefix(url, "/uploads/products/jamdani/"), url)
		assert.FileExists(t, h.localPath(url))
	}
}

func TestCreateProduct_Rejections(t *testing.T) {
	h := newHarness(t)
	base := func() map[string]string {
		return map[string]string{
			"name":         "Jamdani",
			"price":        "3200",
			"description":  "Muslin",
			"category":     h.sarees.Id.Hex(),
			"countInStock": "2",
		}
	}

	missing := base()
	delete(missing, "description")
	w := h.form(http.MethodPost, "/api/products", missing, nil, h.token(h.admin))
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Please fill in all required fields", message(t, w))

	unknown := base()
	unknown["category"] = bson.NewObjectID().Hex()
	w = h.form(http.MethodPost, "/api/products", unknown, []upload{{field: "images", name: "a.png", content: pngHeader}}, h.token(h.admin))
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Category not found", message(t, w))

	w = h.form(http.MethodPost, "/api/products", base(), []upload{{field: "images", name: "notes.png", content: []byte("plain text")}}, h.token(h.admin))
	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, message(t, w), "invalid file type")

	assert.Zero(t, h.catalog.Len())
	entries, err := os.ReadDir(h.images.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		sub, err := os.ReadDir(filepath.Join(h.images.Dir(), e.Name()))
		require.NoError(t, err)
		assert.Empty(t, sub, "rejected upload left files in %s", e.Name())
	}
}

func TestUpdateProduct(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct("Banarasi Silk", true)
	path := "/api/products/" + p.Id.Hex()

	w := h.form(http.MethodPut, path, map[string]string{"price": "2999", "isActive": "false"}, nil, h.token(h.admin))
	requireStatus(t, w, http.StatusOK)
	body := decode[productBody](t, w)
	assert.Equal(t, "Banarasi Silk", body.Name)
	assert.InDelta(t, 2999.0, body.Price, 1e-9)
	assert.False(t, body.IsActive)

	w = h.form(http.MethodPut, path, map[string]string{"price": "-1"}, nil, h.token(h.admin))
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Price cannot be negative", message(t, w))

	w = h.form(http.MethodPut, "/api/products/nope", map[string]string{"price": "1"}, nil, h.token(h.admin))
	requireStatus(t, w, http.StatusNotFound)
}

func TestUpdateProduct_UploadsUnderProductSlug(t *testing.T) {
	h := newHarness(t)
	p := h.seedProduct("Banarasi Silk", true)
	path := "/api/products/" + p.Id.Hex()

	w := h.form(http.MethodPut, path, map[string]string{"image": "https://cdn/manual.jpg"},
		[]upload{{field: "images", name: "pallu.png", content: pngHeader}}, h.token(h.admin))
	requireStatus(t, w, http.StatusOK)
	body := decode[productBody](t, w)
	require.Len(t, body.Images, 1)
	assert.True(t, strings.HasPrefix(body.Images[0], "/uploads/products/banarasi-silk/"), body.Images[0])
	assert.Equal(t, body.Images[0], body.Image)
	assert.FileExists(t, h.localPath(body.Images[0]))

	w = h.form(http.MethodPut, path, map[string]string{"name": "Kora Silk"},
		[]upload{{field: "images", name: "border.png", content: pngHeader}}, h.token(h.admin))
	requireStatus(t, w, http.StatusOK)
	body = decode[productBody](t, w)
	assert.True(t, strings.HasPrefix(body.Image, "/uploads/products/kora-silk/"), body.Image)
}

func TestDeleteProducts(t *testing.T) {
	h := newHarness(t)
	a := h.seedProduct("A", true)
	b := h.seedProduct("B", true)
	c := h.seedProduct("C", true)

	w := h.send(http.MethodDelete, "/api/products/"+a.Id.Hex(), nil, h.token(h.admin))
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Product removed", message(t, w))

	w = h.send(http.MethodDelete, "/api/products/"+a.Id.Hex(), nil, h.token(h.admin))
	requireStatus(t, w, http.StatusNotFound)

	w = h.send(http.MethodDelete, "/api/products", map[string]any{"ids": []string{}}, h.token(h.admin))
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "No product ids provided", message(t, w))

	w = h.send(http.MethodDelete, "/api/products", map[string]any{"ids": []string{b.Id.Hex(), c.Id.Hex()}}, h.token(h.admin))
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, 2, decode[struct {
		DeletedCount int `json:"deletedCount"`
	}](t, w).DeletedCount)
	assert.Zero(t, h.catalog.Len())
}
