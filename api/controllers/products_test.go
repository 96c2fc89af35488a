package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	productsvc "github.com/cyglobaltech/storefront-backend/internal/products"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

type stubProductService struct {
	listInput   *productsvc.ListInput
	created     *productsvc.CreateInput
	updated     *productsvc.UpdateInput
	deleted     uuid.UUID
	deleteError error
}

func (s *stubProductService) List(_ context.Context, input productsvc.ListInput) (*pagination.Page[productsvc.ProductDTO], error) {
	s.listInput = &input
	return &pagination.Page[productsvc.ProductDTO]{Items: []productsvc.ProductDTO{}}, nil
}

func (s *stubProductService) Get(_ context.Context, id uuid.UUID) (*productsvc.ProductDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubProductService) Create(_ context.Context, input productsvc.CreateInput) (*productsvc.ProductDTO, error) {
	s.created = &input
	return &productsvc.ProductDTO{ID: uuid.New(), Name: input.Name, Category: input.Category.String(), Price: input.Price}, nil
}

func (s *stubProductService) Update(_ context.Context, id uuid.UUID, input productsvc.UpdateInput) (*productsvc.ProductDTO, error) {
	s.updated = &input
	return &productsvc.ProductDTO{ID: id}, nil
}

func (s *stubProductService) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = id
	return s.deleteError
}

func (s *stubProductService) Categories() []string {
	return []string{enums.CategoryAll, enums.ProductCategoryMice.String()}
}

func TestProductsListPassesFilters(t *testing.T) {
	svc := &stubProductService{}
	rec := serve(ProductsList(svc, testLogger()), jsonRequest(http.MethodGet, "/api/v1/products?category=mice&q=%20wireless%20&limit=5", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.listInput.Category != "mice" || svc.listInput.Query != "wireless" || svc.listInput.Pagination.Limit != 5 {
		t.Fatalf("unexpected input %+v", svc.listInput)
	}
	if svc.listInput.IncludeInactive {
		t.Fatal("public listing must not include inactive products")
	}
}

func TestProductsListRejectsBadLimit(t *testing.T) {
	rec := serve(ProductsList(&stubProductService{}, testLogger()), jsonRequest(http.MethodGet, "/api/v1/products?limit=1000", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminProductsListIncludeInactive(t *testing.T) {
	svc := &stubProductService{}
	serve(AdminProductsList(svc, testLogger()), jsonRequest(http.MethodGet, "/api/admin/v1/products?include_inactive=true", ""))
	if !svc.listInput.IncludeInactive {
		t.Fatal("expected inactive products to be requested")
	}

	rec := serve(AdminProductsList(svc, testLogger()), jsonRequest(http.MethodGet, "/api/admin/v1/products?include_inactive=maybe", ""))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestProductsGet(t *testing.T) {
	handler := ProductsGet(&stubProductService{}, testLogger())

	rec := serve(handler, withURLParams(jsonRequest(http.MethodGet, "/api/v1/products/x", ""), map[string]string{"productId": "x"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	id := uuid.NewString()
	rec = serve(handler, withURLParams(jsonRequest(http.MethodGet, "/api/v1/products/"+id, ""), map[string]string{"productId": id}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestProductCategories(t *testing.T) {
	rec := serve(ProductCategories(&stubProductService{}, testLogger()), jsonRequest(http.MethodGet, "/api/v1/products/categories", ""))
	var body map[string][]string
	decodeData(t, rec, &body)
	if len(body["categories"]) != 2 || body["categories"][0] != enums.CategoryAll {
		t.Fatalf("unexpected categories %+v", body)
	}
}

func TestAdminCreateProduct(t *testing.T) {
	svc := &stubProductService{}
	handler := AdminCreateProduct(svc, testLogger())

	rec := serve(handler, jsonRequest(http.MethodPost, "/api/admin/v1/products", `{"name":"Keyboard","category":"keyboards","price":"799.90"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.created.Category != enums.ProductCategoryKeyboards || !svc.created.Price.Equal(decimal.RequireFromString("799.9")) {
		t.Fatalf("unexpected input %+v", svc.created)
	}

	rec = serve(handler, jsonRequest(http.MethodPost, "/api/admin/v1/products", `{"name":"Toaster","category":"Kitchen","price":"10"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}

	rec = serve(handler, jsonRequest(http.MethodPost, "/api/admin/v1/products", `{"category":"Mice","price":"10"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing name got %d", rec.Code)
	}
}

func TestAdminUpdateProduct(t *testing.T) {
	svc := &stubProductService{}
	id := uuid.NewString()
	req := withURLParams(jsonRequest(http.MethodPatch, "/api/admin/v1/products/"+id, `{"category":"Printers","is_active":false}`), map[string]string{"productId": id})
	rec := serve(AdminUpdateProduct(svc, testLogger()), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.updated.Category == nil || *svc.updated.Category != enums.ProductCategoryPrinters {
		t.Fatalf("unexpected category %+v", svc.updated.Category)
	}
	if svc.updated.IsActive == nil || *svc.updated.IsActive {
		t.Fatal("expected is_active=false to be forwarded")
	}
	if svc.updated.Name != nil || svc.updated.Price != nil {
		t.Fatal("absent fields must stay nil")
	}
}

func TestAdminDeleteProduct(t *testing.T) {
	svc := &stubProductService{}
	id := uuid.New()
	req := withURLParams(jsonRequest(http.MethodDelete, "/api/admin/v1/products/"+id.String(), ""), map[string]string{"productId": id.String()})
	rec := serve(AdminDeleteProduct(svc, testLogger()), req)
	if rec.Code != http.StatusNoContent || svc.deleted != id {
		t.Fatalf("expected delete of %s, got %d", id, rec.Code)
	}

	svc.deleteError = pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	rec = serve(AdminDeleteProduct(svc, testLogger()), req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
