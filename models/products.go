package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var ErrAlreadyReviewed = errors.New("product already reviewed")

type Review struct {
	User      bson.ObjectID `bson:"user" json:"user"`
	Name      string        `bson:"name" json:"name"`
	Rating    int           `bson:"rating" json:"rating"`
	Comment   string        `bson:"comment" json:"comment"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

type Product struct {
	Id           bson.ObjectID  `bson:"_id" json:"id"`
	Name         string         `bson:"name" json:"name"`
	Slug         string         `bson:"slug" json:"slug"`
	Price        float64        `bson:"price" json:"price"`
	Description  string         `bson:"description" json:"description"`
	Image        string         `bson:"image" json:"image"`
	Images       []string       `bson:"images" json:"images"`
	Category     bson.ObjectID  `bson:"category" json:"category"`
	SubCategory  *bson.ObjectID `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	CountInStock int            `bson:"countInStock" json:"countInStock"`
	Discount     float64        `bson:"discount" json:"discount"`
	IsActive     bool           `bson:"isActive" json:"isActive"`
	Rating       float64        `bson:"rating" json:"rating"`
	NumReviews   int            `bson:"numReviews" json:"numReviews"`
	Reviews      []Review       `bson:"reviews" json:"reviews"`
	User         bson.ObjectID  `bson:"user" json:"user"`
	CreatedAt    time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// HasReviewFrom reports whether userID already reviewed the product.
func (p *Product) HasReviewFrom(userID bson.ObjectID) bool {
	for _, r := range p.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}

// AddReview appends r and recomputes NumReviews and Rating from the full
// review list.
func (p *Product) AddReview(r Review) error {
	if p.HasReviewFrom(r.User) {
		return ErrAlreadyReviewed
	}
	p.Reviews = append(p.Reviews, r)
	p.RecomputeRating()
	return nil
}

// RecomputeRating restores numReviews == len(reviews) and
// rating == mean(reviews.rating); an empty list rates 0.
func (p *Product) RecomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(p.NumReviews)
}

// SetImages replaces the gallery; the first image becomes the primary one.
func (p *Product) SetImages(images []string) {
	if len(images) == 0 {
		return
	}
	p.Images = images
	p.Image = images[0]
}
