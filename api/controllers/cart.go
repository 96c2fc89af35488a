package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/api/middleware"
	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/api/validators"
	cartsvc "github.com/cyglobaltech/storefront-backend/internal/cart"
	"github.com/cyglobaltech/storefront-backend/internal/identity"
	productsvc "github.com/cyglobaltech/storefront-backend/internal/products"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

type CartService interface {
	Backend() string
	AddItem(ctx context.Context, sess *identity.Session, item cartsvc.Item) (cartsvc.AddResult, error)
	RemoveItem(ctx context.Context, sess *identity.Session, key string) (string, error)
	Lines(ctx context.Context, sess *identity.Session) ([]cartsvc.Line, error)
	Checkout(ctx context.Context, sess *identity.Session) (*cartsvc.CheckoutResult, error)
	Clear(ctx context.Context, sess *identity.Session) error
}

type ProductLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*productsvc.ProductDTO, error)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

type cartResponse struct {
	Backend string         `json:"backend"`
	Items   []cartsvc.Line `json:"items"`
	Count   int            `json:"count"`
	Total   string         `json:"total"`
}

type removeCartItemResponse struct {
	Removed bool   `json:"removed"`
	Message string `json:"message,omitempty"`
}

// CartGet returns the lines, unit count and rounded total of the caller's cart.
func CartGet(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		lines, err := svc.Lines(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(svc.Backend(), lines))
	}
}

// CartAddItem adds one unit of a catalog product. Name, price and image come
// from the catalog, not the request.
func CartAddItem(svc CartService, products ProductLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || products == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		product, err := products.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddItem(r.Context(), middleware.SessionFromContext(r.Context()), cartsvc.Item{
			ProductID: product.ID.String(),
			Name:      product.Name,
			Price:     product.Price,
			ImageRef:  product.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CartRemoveItem is a no-op for keys not in the cart.
func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		key := strings.TrimSpace(chi.URLParam(r, "key"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item key is required"))
			return
		}

		msg, err := svc.RemoveItem(r.Context(), middleware.SessionFromContext(r.Context()), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, removeCartItemResponse{Removed: msg != "", Message: msg})
	}
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		if err := svc.Clear(r.Context(), middleware.SessionFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// CartCheckout answers with the payment redirect; the client follows it.
func CartCheckout(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		result, err := svc.Checkout(r.Context(), middleware.SessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func newCartResponse(backend string, lines []cartsvc.Line) cartResponse {
	if lines == nil {
		lines = []cartsvc.Line{}
	}
	return cartResponse{
		Backend: backend,
		Items:   lines,
		Count:   cartsvc.Count(lines),
		Total:   cartsvc.Total(lines).StringFixed(2),
	}
}
