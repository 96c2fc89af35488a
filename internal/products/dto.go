package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ListInput captures browse filters. Category "All" or empty disables the
// category filter; Query matches product names case-insensitively.
type ListInput struct {
	Category        string
	Query           string
	IncludeInactive bool
	Pagination      pagination.Params
}

// CreateInput holds the validated payload to create a product.
type CreateInput struct {
	Name        string
	Description *string
	Category    enums.ProductCategory
	Price       decimal.Decimal
	ImageURL    *string
	IsActive    *bool
}

// UpdateInput holds optional mutation values for a product.
type UpdateInput struct {
	Name        *string
	Description *string
	Category    *enums.ProductCategory
	Price       *decimal.Decimal
	ImageURL    *string
	IsActive    *bool
}

func toDTO(p models.Product, placeholder string) ProductDTO {
	image := placeholder
	if p.ImageURL != nil && *p.ImageURL != "" {
		image = *p.ImageURL
	}
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category.String(),
		Price:       p.Price.Round(2),
		ImageURL:    image,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func cursorOf(p models.Product) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}
