package dto

// ProductForm is the multipart body of product create and update. Pointer
// fields distinguish "absent" from zero; new images arrive in the "images"
// file field.
type ProductForm struct {
	Name         *string  `form:"name"`
	Price        *float64 `form:"price"`
	Description  *string  `form:"description"`
	Category     *string  `form:"category" binding:"omitempty,objectid"`
	SubCategory  *string  `form:"subcategory" binding:"omitempty,objectid"`
	CountInStock *int     `form:"countInStock"`
	Discount     *float64 `form:"discount"`
	IsActive     *bool    `form:"isActive"`
	Image        *string  `form:"image"`
}

// HasRequired reports whether every field a new product needs is present.
func (f ProductForm) HasRequired() bool {
	return f.Name != nil && *f.Name != "" &&
		f.Price != nil &&
		f.Description != nil && *f.Description != "" &&
		f.Category != nil && *f.Category != "" &&
		f.CountInStock != nil
}

type ReviewDTO struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type BulkDeleteDTO struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}
