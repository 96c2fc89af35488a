package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
)

// Options configures an Accumulator.
type Options struct {
	PlaceholderImage string
	// AtomicIncrement routes AddItem through Incrementer when the store has one.
	AtomicIncrement bool
	Redirect        PaymentRedirect
}

// AddResult is the outcome of AddItem.
type AddResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Line    Line   `json:"line"`
}

// Accumulator implements cart semantics on top of a storage policy.
type Accumulator struct {
	store   Store
	opts    Options
	logg    *logger.Logger
	metrics *metrics.Storefront
	now     func() time.Time
}

// NewAccumulator builds an accumulator over store.
func NewAccumulator(store Store, opts Options, logg *logger.Logger, m *metrics.Storefront) (*Accumulator, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(opts.PlaceholderImage) == "" {
		return nil, fmt.Errorf("placeholder image required")
	}
	return &Accumulator{
		store:   store,
		opts:    opts,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Backend names the storage policy in use.
func (a *Accumulator) Backend() string {
	return string(a.store.Backend())
}

// AddItem increments the line for item's product, or inserts it with
// quantity 1. A missing image reference becomes the placeholder.
func (a *Accumulator) AddItem(ctx context.Context, sess *identity.Session, item Item) (AddResult, error) {
	if err := item.validate(); err != nil {
		return AddResult{}, err
	}
	if err := a.requireSession(sess); err != nil {
		a.record("add", metrics.OutcomeRejected)
		return AddResult{}, err
	}

	line := Line{
		Key:      strings.TrimSpace(item.ProductID),
		Name:     item.Name,
		Price:    item.Price,
		Quantity: 1,
		ImageRef: strings.TrimSpace(item.ImageRef),
	}
	if line.ImageRef == "" {
		line.ImageRef = a.opts.PlaceholderImage
	}

	var err error
	if inc, ok := a.store.(Incrementer); ok && a.opts.AtomicIncrement {
		if err = inc.IncrementOrInsert(ctx, sess, line); err == nil {
			var stored *Line
			if stored, err = a.store.Find(ctx, sess, line.Key); err == nil && stored != nil {
				line = *stored
			}
		}
	} else {
		err = a.readModifyWrite(ctx, sess, &line)
	}
	if err != nil {
		a.record("add", metrics.OutcomeFailure)
		return AddResult{}, storeError(err, "could not add item to cart")
	}

	a.record("add", metrics.OutcomeSuccess)
	return AddResult{
		Success: true,
		Message: fmt.Sprintf("%s added to cart!", item.Name),
		Line:    line,
	}, nil
}

// readModifyWrite is the non-atomic add path: concurrent adds of the same
// product may both read quantity n and both write n+1.
func (a *Accumulator) readModifyWrite(ctx context.Context, sess *identity.Session, line *Line) error {
	existing, err := a.store.Find(ctx, sess, line.Key)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Quantity++
		*line = *existing
	}
	return a.store.Put(ctx, sess, *line)
}

// RemoveItem deletes the line with key. A missing key is not an error; the
// returned message is empty in that case.
func (a *Accumulator) RemoveItem(ctx context.Context, sess *identity.Session, key string) (string, error) {
	if err := a.requireSession(sess); err != nil {
		return "", err
	}
	existing, err := a.store.Find(ctx, sess, key)
	if err != nil {
		a.record("remove", metrics.OutcomeFailure)
		return "", storeError(err, "could not remove item")
	}
	if existing == nil {
		a.record("remove", metrics.OutcomeRejected)
		return "", nil
	}
	if err := a.store.Delete(ctx, sess, key); err != nil {
		a.record("remove", metrics.OutcomeFailure)
		return "", storeError(err, "could not remove item")
	}
	a.record("remove", metrics.OutcomeSuccess)
	return fmt.Sprintf("%s removed from cart.", existing.Name), nil
}

// Lines returns the cart contents.
func (a *Accumulator) Lines(ctx context.Context, sess *identity.Session) ([]Line, error) {
	if err := a.requireSession(sess); err != nil {
		return nil, err
	}
	lines, err := a.store.List(ctx, sess)
	if err != nil {
		return nil, storeError(err, "could not load cart")
	}
	return lines, nil
}

// Total is the rounded sum of price*quantity.
func (a *Accumulator) Total(ctx context.Context, sess *identity.Session) (decimal.Decimal, error) {
	lines, err := a.Lines(ctx, sess)
	if err != nil {
		return decimal.Zero, err
	}
	return Total(lines), nil
}

// Count is the number of units in the cart.
func (a *Accumulator) Count(ctx context.Context, sess *identity.Session) (int, error) {
	lines, err := a.Lines(ctx, sess)
	if err != nil {
		return 0, err
	}
	return Count(lines), nil
}

// Checkout hands a non-empty cart to the payment redirect and then clears it.
// An empty cart fails with ErrEmptyCart and nothing changes.
func (a *Accumulator) Checkout(ctx context.Context, sess *identity.Session) (*CheckoutResult, error) {
	lines, err := a.Lines(ctx, sess)
	if err != nil {
		a.record("checkout", metrics.OutcomeFailure)
		return nil, err
	}
	if len(lines) == 0 {
		a.record("checkout", metrics.OutcomeRejected)
		return nil, ErrEmptyCart
	}

	total := Total(lines)
	redirectURL, orderID, err := a.opts.Redirect.build(total, a.now())
	if err != nil {
		a.record("checkout", metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment redirect unavailable")
	}

	if err := a.store.Clear(ctx, sess); err != nil {
		// The redirect is already issued; the stale cart is logged, not fatal.
		ctx = a.logg.WithFields(ctx, map[string]any{
			"order_id": orderID,
			"backend":  a.Backend(),
		})
		a.logg.Error(ctx, "cart not cleared after checkout", err)
	}

	// The histogram only needs an approximate amount.
	amount := total.InexactFloat64()
	a.metrics.ObserveCheckout(a.Backend(), amount)
	a.record("checkout", metrics.OutcomeSuccess)

	return &CheckoutResult{
		RedirectURL: redirectURL,
		OrderID:     orderID,
		Amount:      total,
		Currency:    a.opts.Redirect.Currency,
		ItemCount:   Count(lines),
	}, nil
}

// Clear empties the cart. Clearing an empty cart is fine.
func (a *Accumulator) Clear(ctx context.Context, sess *identity.Session) error {
	if err := a.requireSession(sess); err != nil {
		return err
	}
	if err := a.store.Clear(ctx, sess); err != nil {
		a.record("clear", metrics.OutcomeFailure)
		return storeError(err, "could not clear cart")
	}
	a.record("clear", metrics.OutcomeSuccess)
	return nil
}

func (a *Accumulator) requireSession(sess *identity.Session) error {
	if a.store.RequiresSession() && !sess.Active() {
		return ErrLoginRequired
	}
	if sess.CartOwner() == "" {
		return ErrNoCartOwner
	}
	return nil
}

func (a *Accumulator) record(op, outcome string) {
	a.metrics.CartOp(a.Backend(), op, outcome)
}
