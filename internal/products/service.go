package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	List(ctx context.Context, input ListInput) ([]models.Product, error)
}

// Service exposes catalog browse and admin product management.
type Service interface {
	List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Create(ctx context.Context, input CreateInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Categories() []string
}

type service struct {
	repo        repository
	placeholder string
}

// NewService builds the catalog service. placeholder is served for products
// without an image.
func NewService(repo repository, placeholder string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if strings.TrimSpace(placeholder) == "" {
		return nil, fmt.Errorf("placeholder image required")
	}
	return &service{repo: repo, placeholder: placeholder}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not load products")
	}
	page := pagination.Trim(rows, input.Pagination.Limit, cursorOf)
	items := make([]ProductDTO, 0, len(page.Items))
	for _, row := range page.Items {
		items = append(items, toDTO(row, s.placeholder))
	}
	return &pagination.Page[ProductDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

// Get returns an active product.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	dto := toDTO(*product, s.placeholder)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	created, err := s.repo.Create(ctx, &models.Product{
		Name:        name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price.Round(2),
		ImageURL:    input.ImageURL,
		IsActive:    active,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not create product")
	}
	dto := toDTO(*created, s.placeholder)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		product.Category = *input.Category
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		product.Price = input.Price.Round(2)
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not update product")
	}
	dto := toDTO(*updated, s.placeholder)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// Categories lists the browse filters, "All" first.
func (s *service) Categories() []string {
	cats := enums.ProductCategories()
	out := make([]string, 0, len(cats)+1)
	out = append(out, enums.CategoryAll)
	for _, c := range cats {
		out = append(out, c.String())
	}
	return out
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not load product")
	}
	return product, nil
}
