package catalog

import (
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/models"
)

var testCatalogConfig = config.CatalogConfig{
	DefaultLimit: 12,
	MaxLimit:     100,
	SimilarLimit: 4,
	TopLimit:     3,
	CacheTTL:     time.Minute,
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name                          string
		keyword, page, limit, showAll string
		admin                         bool
		want                          ListParams
	}{
		{name: "defaults", want: ListParams{Page: 1, Limit: 12}},
		{name: "explicit", keyword: " silk ", page: "2", limit: "10", want: ListParams{Keyword: "silk", Page: 2, Limit: 10}},
		{name: "non numeric", page: "abc", limit: "ten", want: ListParams{Page: 1, Limit: 12}},
		{name: "non positive", page: "0", limit: "-5", want: ListParams{Page: 1, Limit: 12}},
		{name: "limit capped", limit: "5000", want: ListParams{Page: 1, Limit: 100}},
		{name: "showAll ignored for public", showAll: "true", want: ListParams{Page: 1, Limit: 12}},
		{name: "showAll honored for admin", showAll: "true", admin: true, want: ListParams{Page: 1, Limit: 12, ShowAll: true}},
		{name: "malformed showAll", showAll: "yes please", admin: true, want: ListParams{Page: 1, Limit: 12}},
		{name: "page beyond int range", page: "99999999999999999999999", want: ListParams{Page: 1, Limit: 12}},
		{name: "huge page capped", page: "922337203685477580", want: ListParams{Page: int(maxPage(12)), Limit: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseListParams(tt.keyword, tt.page, tt.limit, tt.showAll, tt.admin, testCatalogConfig)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListParamsQuery(t *testing.T) {
	q := ListParams{Keyword: "silk", Page: 3, Limit: 10}.query()
	assert.Equal(t, ProductQuery{Keyword: "silk", ActiveOnly: true, Skip: 20, Limit: 10}, q)

	q = ListParams{Page: 1, Limit: 5, ShowAll: true}.query()
	assert.False(t, q.ActiveOnly)
	assert.Zero(t, q.Skip)
}

func TestListParamsQuery_SkipNeverOverflows(t *testing.T) {
	for _, limit := range []int{1, 2, 12, 100} {
		q := ListParams{Page: math.MaxInt, Limit: limit}.query()
		assert.GreaterOrEqual(t, q.Skip, int64(0), "limit %d", limit)

		p := ParseListParams("", strconv.Itoa(math.MaxInt), strconv.Itoa(limit), "", false, testCatalogConfig)
		assert.GreaterOrEqual(t, p.query().Skip, int64(0), "limit %d", limit)
	}
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, pageCount(0, 10))
	assert.Equal(t, 1, pageCount(1, 10))
	assert.Equal(t, 1, pageCount(10, 10))
	assert.Equal(t, 2, pageCount(11, 10))
	assert.Equal(t, 3, pageCount(25, 10))
	assert.Equal(t, 0, pageCount(5, 0))
}

func TestListFilter(t *testing.T) {
	assert.Equal(t, bson.M{"isActive": true}, listFilter(ProductQuery{ActiveOnly: true}))
	assert.Equal(t, bson.M{}, listFilter(ProductQuery{}))

	f := listFilter(ProductQuery{Keyword: "silk (pure)", ActiveOnly: true})
	assert.Equal(t, bson.M{"$regex": `silk \(pure\)`, "$options": "i"}, f["name"])
	assert.Equal(t, true, f["isActive"])
}

func TestSimilarFilter(t *testing.T) {
	cat, self := bson.NewObjectID(), bson.NewObjectID()

	assert.Equal(t, bson.M{
		"category": cat,
		"_id":      bson.M{"$ne": self},
		"isActive": true,
	}, similarFilter(cat, self))
}

func TestReviewAppendDocuments(t *testing.T) {
	a := ReviewAppend{
		ProductID:     bson.NewObjectID(),
		ExpectedCount: 2,
		Review:        reviewFixture(),
		Rating:        4.5,
		NumReviews:    3,
		UpdatedAt:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, bson.M{
		"_id":          a.ProductID,
		"numReviews":   2,
		"reviews.user": bson.M{"$ne": a.Review.User},
	}, reviewAppendFilter(a))

	update := reviewAppendUpdate(a)
	assert.Equal(t, bson.M{"reviews": a.Review}, update["$push"])
	assert.Equal(t, bson.M{"rating": 4.5, "numReviews": 3, "updatedAt": a.UpdatedAt}, update["$set"])
}

func TestPatchSet(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	name, price, active := "Banarasi", 4999.0, false

	set := patchSet(ProductPatch{
		Name:      &name,
		Price:     &price,
		IsActive:  &active,
		Images:    []string{"a.jpg", "b.jpg"},
		UpdatedAt: now,
	})

	assert.Equal(t, bson.M{
		"name":      "Banarasi",
		"price":     4999.0,
		"isActive":  false,
		"images":    []string{"a.jpg", "b.jpg"},
		"image":     "a.jpg",
		"updatedAt": now,
	}, set)
}

func TestProductPatchApply_UploadedImagesWinOverImageField(t *testing.T) {
	manual := "https://cdn/manual.jpg"
	p := ProductPatch{Images: []string{"a.jpg", "b.jpg"}, Image: &manual}
	prod := productFixture()

	p.Apply(&prod)

	assert.Equal(t, "a.jpg", prod.Image)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, prod.Images)
	assert.Equal(t, bson.M{"images": []string{"a.jpg", "b.jpg"}, "image": "a.jpg", "updatedAt": time.Time{}}, patchSet(p))
}

func TestProductPatchApply_ImageFieldWithoutUploads(t *testing.T) {
	manual := "https://cdn/manual.jpg"
	p := ProductPatch{Image: &manual}
	prod := productFixture()

	p.Apply(&prod)

	assert.Equal(t, manual, prod.Image)
	assert.Equal(t, []string{"old.jpg"}, prod.Images)
	assert.Equal(t, bson.M{"image": manual, "updatedAt": time.Time{}}, patchSet(p))
}

func reviewFixture() models.Review {
	return models.Review{User: bson.NewObjectID(), Name: "Asha", Rating: 5, Comment: "soft weave"}
}

func productFixture() models.Product {
	return models.Product{Id: bson.NewObjectID(), Name: "Tussar", Image: "old.jpg", Images: []string{"old.jpg"}}
}
