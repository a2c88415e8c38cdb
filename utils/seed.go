package utils

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nirmalhandloom/storebackend/config"
	"github.com/nirmalhandloom/storebackend/models"
)

// SeedCategory is one entry of the default category tree.
type SeedCategory struct {
	Name          string
	Description   string
	Image         string
	SubCategories []string
}

var DefaultCategories = []SeedCategory{
	{Name: "Banarsi Silk", Image: "/assets/saree_model_1.png", Description: "The pride of Varanasi, known for gold and silver brocade."},
	{Name: "Kanjivaram", Image: "/assets/saree_model_2.png", Description: "Woven from pure mulberry silk, a symbol of royalty."},
	{Name: "Patola", Image: "/assets/cat_patola.png", Description: "Double ikat woven saree, usually made from silk."},
	{Name: "Chanderi", Image: "/assets/cat_chanderi.png", Description: "Traditional ethnic fabric characterized by its lightweight."},
	{Name: "Saree", Image: "/assets/saree_model_1.png", Description: "Elegant range of traditional and contemporary sarees."},
	{Name: "Lancha", Image: "/assets/cat_lancha.png", Description: "Beautifully crafted Lanchas for weddings and festivals."},
	{Name: "Suit Piece", Image: "/assets/cat_suit_piece.png", Description: "Premium unstitched suit pieces for custom tailoring."},
	{Name: "Western Gown", Image: "/assets/cat_western_gown.png", Description: "Stylish western gowns for evening parties and events."},
	{Name: "Cotton Mangalagiri", Image: "/assets/cat_mangalagiri.png", Description: "Durable and distinctive cotton sarees from Mangalagiri."},
	{Name: "Dharmavaram Silk", Image: "/assets/cat_dharmavaram.png", Description: "Rich silk sarees with broad borders and brocade patterns."},
}

// AdminSeedDocument is the $setOnInsert document of the seeded admin.
func AdminSeedDocument(cfg config.SeedConfig, hash string, now time.Time) bson.M {
	return bson.M{
		"name":         cfg.AdminName,
		"email":        NormalizeEmail(cfg.AdminEmail),
		"passwordHash": hash,
		"role":         models.RoleAdmin,
		"isActive":     true,
		"addresses":    []models.Address{},
		"wishlist":     []bson.ObjectID{},
		"createdAt":    now,
		"updatedAt":    now,
	}
}

// SeedAdminUser creates the admin account unless a user with the same
// e-mail already exists.
func SeedAdminUser(ctx context.Context, usersCol *mongo.Collection, cfg config.SeedConfig, logger *slog.Logger) error {
	email := NormalizeEmail(cfg.AdminEmail)
	if email == "" || cfg.AdminPassword == "" {
		logger.Warn("admin seed skipped, ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	hash, err := HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	filter := bson.M{"email": email}
	update := bson.M{"$setOnInsert": AdminSeedDocument(cfg, hash, time.Now().UTC())}
	opts := options.UpdateOne().SetUpsert(true)

	res, err := usersCol.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("seed admin upsert failed: %w", err)
	}

	if res.UpsertedCount == 1 {
		logger.Info("admin user seeded", slog.String("email", email))
	} else {
		logger.Info("admin user already exists", slog.String("email", email))
	}
	return nil
}

// SeedCategories upserts the category tree by slug, and subcategories by
// name within their parent.
func SeedCategories(ctx context.Context, categoriesCol, subCol *mongo.Collection, tree []SeedCategory, logger *slog.Logger) error {
	now := time.Now().UTC()
	created := 0

	for _, sc := range tree {
		slug := GenerateSlug(sc.Name)
		res, err := categoriesCol.UpdateOne(ctx,
			bson.M{"slug": slug},
			bson.M{"$setOnInsert": bson.M{
				"name":        strings.TrimSpace(sc.Name),
				"slug":        slug,
				"description": sc.Description,
				"image":       sc.Image,
				"isActive":    true,
				"createdAt":   now,
				"updatedAt":   now,
			}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", sc.Name, err)
		}
		created += int(res.UpsertedCount)

		if len(sc.SubCategories) == 0 {
			continue
		}
		var parent models.Category
		if err := categoriesCol.FindOne(ctx, bson.M{"slug": slug}).Decode(&parent); err != nil {
			return fmt.Errorf("load seeded category %s: %w", sc.Name, err)
		}
		for _, name := range sc.SubCategories {
			_, err := subCol.UpdateOne(ctx,
				bson.M{"category": parent.Id, "name": name},
				bson.M{"$setOnInsert": bson.M{
					"name":      name,
					"category":  parent.Id,
					"isActive":  true,
					"createdAt": now,
					"updatedAt": now,
				}},
				options.UpdateOne().SetUpsert(true),
			)
			if err != nil {
				return fmt.Errorf("seed subcategory %s/%s: %w", sc.Name, name, err)
			}
		}
	}

	logger.Info("category seed complete", slog.Int("created", created), slog.Int("total", len(tree)))
	return nil
}
