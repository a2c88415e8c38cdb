package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/cache"
	"github.com/nirmalhandloom/storebackend/database"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/logger"
	"github.com/nirmalhandloom/storebackend/models"
	"github.com/nirmalhandloom/storebackend/storage"
	"github.com/nirmalhandloom/storebackend/utils"
)

// ActiveCategoriesKey caches the public category list.
const ActiveCategoriesKey = "categories:active"

type Categories struct {
	Store     CategoryStore
	Cache     cache.Cache
	CacheTTL  time.Duration
	Images    storage.Store
	Validator *storage.ImageValidator
	Now       func() time.Time
}

func (h *Categories) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// GET /api/categories
func (h *Categories) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		var items []models.Category
		hit, err := h.Cache.GetJSON(ctx, ActiveCategoriesKey, &items)
		if err != nil {
			log.WarnContext(ctx, "category cache read failed", slog.String("error", err.Error()))
		}
		if hit {
			c.JSON(http.StatusOK, items)
			return
		}

		items, err = h.Store.ListActive(ctx)
		if err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		if err := h.Cache.SetJSON(ctx, ActiveCategoriesKey, items, h.CacheTTL); err != nil {
			log.WarnContext(ctx, "category cache write failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusOK, items)
	}
}

// POST /api/categories
func (h *Categories) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.CreateCategoryDTO
		if err := c.ShouldBind(&body); err != nil {
			respondBindError(c, err)
			return
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			respondError(c, apperrors.ValidationFailed("Category name is required"))
			return
		}

		now := h.now()
		cat := &models.Category{
			Id:          bson.NewObjectID(),
			Name:        name,
			Slug:        utils.GenerateSlug(name),
			Description: strings.TrimSpace(body.Description),
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if files := formFiles(c, "image"); len(files) > 0 {
			if _, err := h.Validator.Validate(files[0]); err != nil {
				respondError(c, apperrors.ValidationFailed(err.Error()))
				return
			}
			url, err := h.Images.Upload(ctx, "categories/"+cat.Slug, files[0])
			if err != nil {
				respondError(c, apperrors.Persistence(err))
				return
			}
			cat.Image = url
		}

		if err := h.Store.Insert(ctx, cat); err != nil {
			h.removeImage(c, cat.Image)
			if errors.Is(err, database.ErrDuplicate) {
				respondError(c, apperrors.Conflict("Category already exists"))
				return
			}
			respondError(c, apperrors.Persistence(err))
			return
		}

		h.invalidate(c)
		c.JSON(http.StatusCreated, cat)
	}
}

// DELETE /api/categories/:id
func (h *Categories) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.NotFound("Category not found"))
			return
		}
		cat, err := h.Store.FindByID(ctx, id)
		if err != nil {
			respondError(c, storeError(err, "Category not found"))
			return
		}
		if err := h.Store.Delete(ctx, id); err != nil {
			respondError(c, storeError(err, "Category not found"))
			return
		}

		h.removeImage(c, cat.Image)
		h.invalidate(c)
		c.JSON(http.StatusOK, gin.H{"message": "Category removed"})
	}
}

// POST /api/categories/sub
func (h *Categories) CreateSub() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var body dto.CreateSubCategoryDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			respondError(c, apperrors.ValidationFailed("Subcategory name is required"))
			return
		}

		parent, _ := bson.ObjectIDFromHex(body.CategoryID)
		if _, err := h.Store.FindByID(ctx, parent); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				respondError(c, apperrors.ValidationFailed("Category not found"))
				return
			}
			respondError(c, apperrors.Persistence(err))
			return
		}

		now := h.now()
		sub := &models.SubCategory{
			Id:        bson.NewObjectID(),
			Name:      name,
			Category:  parent,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := h.Store.InsertSub(ctx, sub); err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		c.JSON(http.StatusCreated, sub)
	}
}

// GET /api/categories/:id/sub
func (h *Categories) ListSubs() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.NotFound("Category not found"))
			return
		}
		subs, err := h.Store.ListActiveSubs(c.Request.Context(), id)
		if err != nil {
			respondError(c, apperrors.Persistence(err))
			return
		}
		c.JSON(http.StatusOK, subs)
	}
}

// DELETE /api/categories/sub/:id
func (h *Categories) DeleteSub() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondError(c, apperrors.NotFound("SubCategory not found"))
			return
		}
		if err := h.Store.DeleteSub(c.Request.Context(), id); err != nil {
			respondError(c, storeError(err, "SubCategory not found"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "SubCategory removed"})
	}
}

func (h *Categories) invalidate(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Cache.Delete(ctx, ActiveCategoriesKey); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "category cache invalidation failed", slog.String("error", err.Error()))
	}
}

func (h *Categories) removeImage(c *gin.Context, url string) {
	if url == "" {
		return
	}
	ctx := c.Request.Context()
	if err := h.Images.Delete(ctx, url); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "category image cleanup failed",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
}
