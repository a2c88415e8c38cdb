package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nirmalhandloom/storebackend/apperrors"
	"github.com/nirmalhandloom/storebackend/catalog"
	"github.com/nirmalhandloom/storebackend/dto"
	"github.com/nirmalhandloom/storebackend/middleware"
	"github.com/nirmalhandloom/storebackend/storage"
	"github.com/nirmalhandloom/storebackend/utils"
)

// Products serves the catalog and the admin product endpoints.
type Products struct {
	Engine    *catalog.Engine
	Images    storage.Store
	Validator *storage.ImageValidator
}

// GET /api/products
func (h *Products) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		params := catalog.ParseListParams(
			c.Query("keyword"),
			c.Query("page"),
			c.Query("limit"),
			c.Query("showAll"),
			middleware.CurrentUser(c).IsAdmin(),
			h.Engine.Config(),
		)

		listing, err := h.Engine.List(c.Request.Context(), params)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listing)
	}
}

// GET /api/products/top
func (h *Products) Top() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := h.Engine.Top(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// GET /api/products/:id
func (h *Products) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := h.Engine.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}

// POST /api/products/:id/reviews
func (h *Products) AddReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ReviewDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondBindError(c, err)
			return
		}

		user := middleware.CurrentUser(c)
		err := h.Engine.AddReview(c.Request.Context(), catalog.ReviewInput{
			ProductID: c.Param("id"),
			UserID:    user.ID,
			UserName:  user.Name,
			Rating:    body.Rating,
			Comment:   body.Comment,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Review added"})
	}
}

// POST /api/products
func (h *Products) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var form dto.ProductForm
		if err := c.ShouldBind(&form); err != nil {
			respondBindError(c, err)
			return
		}
		if !form.HasRequired() {
			respondError(c, apperrors.ValidationFailed("Please fill in all required fields"))
			return
		}

		category, err := bson.ObjectIDFromHex(*form.Category)
		if err != nil {
			respondError(c, apperrors.ValidationFailed("Category not found"))
			return
		}
		sub, err := optionalObjectID(form.SubCategory)
		if err != nil {
			respondError(c, apperrors.ValidationFailed("Subcategory not found"))
			return
		}

		urls, err := h.upload(c, productFolder(utils.GenerateSlug(*form.Name)))
		if err != nil {
			respondError(c, err)
			return
		}

		in := catalog.NewProduct{
			Name:         *form.Name,
			Description:  *form.Description,
			Price:        *form.Price,
			Category:     category,
			SubCategory:  sub,
			CountInStock: *form.CountInStock,
			IsActive:     form.IsActive,
			Images:       urls,
			CreatedBy:    middleware.CurrentUser(c).ID,
		}
		if form.Discount != nil {
			in.Discount = *form.Discount
		}

		product, err := h.Engine.CreateProduct(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, product)
	}
}

// PUT /api/products/:id
func (h *Products) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id := c.Param("id")
		if _, err := bson.ObjectIDFromHex(id); err != nil {
			respondError(c, apperrors.NotFound("Product not found"))
			return
		}

		var form dto.ProductForm
		if err := c.ShouldBind(&form); err != nil {
			respondBindError(c, err)
			return
		}

		patch := catalog.ProductPatch{
			Name:         form.Name,
			Price:        form.Price,
			Description:  form.Description,
			CountInStock: form.CountInStock,
			Discount:     form.Discount,
			IsActive:     form.IsActive,
		}
		if form.Image != nil && strings.TrimSpace(*form.Image) != "" {
			img := strings.TrimSpace(*form.Image)
			patch.Image = &img
		}
		category, err := optionalObjectID(form.Category)
		if err != nil {
			respondError(c, apperrors.ValidationFailed("Category not found"))
			return
		}
		patch.Category = category
		sub, err := optionalObjectID(form.SubCategory)
		if err != nil {
			respondError(c, apperrors.ValidationFailed("Subcategory not found"))
			return
		}
		patch.SubCategory = sub

		slug := ""
		if form.Name != nil {
			slug = utils.GenerateSlug(*form.Name)
		}
		if slug == "" && len(formFiles(c, "images")) > 0 {
			existing, err := h.Engine.Product(ctx, id)
			if err != nil {
				respondError(c, err)
				return
			}
			slug = existing.Slug
		}
		urls, err := h.upload(c, productFolder(slug))
		if err != nil {
			respondError(c, err)
			return
		}
		patch.Images = urls

		product, err := h.Engine.UpdateProduct(ctx, id, patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// DELETE /api/products/:id
func (h *Products) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.Engine.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
	}
}

// DELETE /api/products
func (h *Products) DeleteMany() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.BulkDeleteDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, apperrors.ValidationFailed("No product ids provided"))
			return
		}

		n, err := h.Engine.DeleteProducts(c.Request.Context(), body.IDs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deletedCount": n})
	}
}

// upload validates and stores the "images" files of a multipart request.
// Requests without files return no URLs.
func (h *Products) upload(c *gin.Context, folder string) ([]string, error) {
	files := formFiles(c, "images")
	if len(files) == 0 {
		return nil, nil
	}
	if err := h.Validator.ValidateAll(files); err != nil {
		return nil, apperrors.ValidationFailed(err.Error())
	}
	urls, err := storage.UploadAll(c.Request.Context(), h.Images, folder, files)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return urls, nil
}

func productFolder(slug string) string {
	return "products/" + slug
}

func formFiles(c *gin.Context, field string) []*multipart.FileHeader {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil
	}
	return form.File[field]
}

// optionalObjectID parses a form id; absent or blank values yield nil.
func optionalObjectID(raw *string) (*bson.ObjectID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	oid, err := bson.ObjectIDFromHex(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &oid, nil
}
