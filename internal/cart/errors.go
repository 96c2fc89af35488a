package cart

import pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"

var (
	// ErrLoginRequired is returned by session-bound storage policies for guests.
	ErrLoginRequired = pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to add items to your cart")
	// ErrNoCartOwner is returned by the blob policy for a caller with neither a
	// login nor a device.
	ErrNoCartOwner = pkgerrors.New(pkgerrors.CodeValidation, "X-Device-Id header is required for a guest cart")
	// ErrEmptyCart is returned by Checkout when there is nothing to pay for.
	ErrEmptyCart = pkgerrors.New(pkgerrors.CodeStateConflict, "empty cart")

	errItemKey   = pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	errItemName  = pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	errItemPrice = pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
)

// storeError passes typed errors through and wraps raw backend failures so
// the backend's own text reaches the caller.
func storeError(err error, prefix string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, prefix)
}
