package dto

// CreateCategoryDTO is bound from a multipart form; the optional image is
// read from the "image" file field.
type CreateCategoryDTO struct {
	Name        string `form:"name" json:"name" binding:"required"`
	Description string `form:"description" json:"description"`
}

type CreateSubCategoryDTO struct {
	Name       string `json:"name" binding:"required"`
	CategoryID string `json:"categoryId" binding:"required,objectid"`
}
