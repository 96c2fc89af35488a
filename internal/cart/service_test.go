package cart

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
)

func TestAddSameProductTwiceYieldsOneLine(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.name, func(t *testing.T) {
			ctx := context.Background()
			acc := newTestAccumulator(t, p.store(t), p.atomic)
			sess := p.session()

			res, err := acc.AddItem(ctx, sess, item("prod-1", "Gaming Mouse", "10.00"))
			require.NoError(t, err)
			assert.True(t, res.Success)
			assert.Equal(t, "Gaming Mouse added to cart!", res.Message)

			res, err = acc.AddItem(ctx, sess, item("prod-1", "Gaming Mouse", "10.00"))
			require.NoError(t, err)
			assert.Equal(t, 2, res.Line.Quantity)

			lines, err := acc.Lines(ctx, sess)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.Equal(t, 2, lines[0].Quantity)
			assert.Equal(t, testPlaceholder, lines[0].ImageRef)
		})
	}
}

func TestTotalRoundsToCents(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.name, func(t *testing.T) {
			ctx := context.Background()
			acc := newTestAccumulator(t, p.store(t), p.atomic)
			sess := p.session()

			for _, it := range []Item{
				item("kbd", "Keyboard", "10.00"),
				item("kbd", "Keyboard", "10.00"),
				item("cam", "Webcam", "5.50"),
			} {
				_, err := acc.AddItem(ctx, sess, it)
				require.NoError(t, err)
			}

			total, err := acc.Total(ctx, sess)
			require.NoError(t, err)
			assert.Equal(t, "25.50", total.StringFixed(2))
			assert.True(t, total.Equal(decimal.RequireFromString("25.5")))

			count, err := acc.Count(ctx, sess)
			require.NoError(t, err)
			assert.Equal(t, 3, count)
		})
	}
}

func TestTotalRoundsHalfUp(t *testing.T) {
	lines := []Line{
		{Price: decimal.RequireFromString("0.125"), Quantity: 1},
		{Price: decimal.RequireFromString("1"), Quantity: 1},
	}
	assert.Equal(t, "1.13", Total(lines).StringFixed(2))
	assert.True(t, Total(nil).IsZero())
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.name, func(t *testing.T) {
			ctx := context.Background()
			acc := newTestAccumulator(t, p.store(t), p.atomic)
			sess := p.session()

			_, err := acc.AddItem(ctx, sess, item("hs", "Headset", "49.99"))
			require.NoError(t, err)

			msg, err := acc.RemoveItem(ctx, sess, "does-not-exist")
			require.NoError(t, err)
			assert.Empty(t, msg)

			lines, err := acc.Lines(ctx, sess)
			require.NoError(t, err)
			require.Len(t, lines, 1)
			assert.Equal(t, 1, lines[0].Quantity)

			msg, err = acc.RemoveItem(ctx, sess, "hs")
			require.NoError(t, err)
			assert.Equal(t, "Headset removed from cart.", msg)

			count, err := acc.Count(ctx, sess)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestCheckout(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.name, func(t *testing.T) {
			ctx := context.Background()
			acc := newTestAccumulator(t, p.store(t), p.atomic)
			sess := p.session()

			_, err := acc.Checkout(ctx, sess)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
			lines, err := acc.Lines(ctx, sess)
			require.NoError(t, err)
			assert.Empty(t, lines)

			_, err = acc.AddItem(ctx, sess, item("mon", "Monitor", "1999.90"))
			require.NoError(t, err)
			_, err = acc.AddItem(ctx, sess, item("mon", "Monitor", "1999.90"))
			require.NoError(t, err)

			res, err := acc.Checkout(ctx, sess)
			require.NoError(t, err)
			assert.Equal(t, "3999.80", res.Amount.StringFixed(2))
			assert.Equal(t, "1700000000000", res.OrderID)
			assert.Equal(t, 2, res.ItemCount)

			u, err := url.Parse(res.RedirectURL)
			require.NoError(t, err)
			assert.Equal(t, "example.com", u.Host)
			assert.Equal(t, "/payment-gateway", u.Path)
			assert.Equal(t, "3999.80", u.Query().Get("amount"))
			assert.Equal(t, "ZAR", u.Query().Get("currency"))
			assert.Equal(t, "1700000000000", u.Query().Get("orderId"))

			lines, err = acc.Lines(ctx, sess)
			require.NoError(t, err)
			assert.Empty(t, lines)
		})
	}
}

func TestClearIsIdempotent(t *testing.T) {
	for _, p := range policies() {
		t.Run(p.name, func(t *testing.T) {
			ctx := context.Background()
			acc := newTestAccumulator(t, p.store(t), p.atomic)
			sess := p.session()

			_, err := acc.AddItem(ctx, sess, item("mouse", "Mouse", "5"))
			require.NoError(t, err)
			require.NoError(t, acc.Clear(ctx, sess))
			require.NoError(t, acc.Clear(ctx, sess))

			count, err := acc.Count(ctx, sess)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestDocumentPolicyRequiresLogin(t *testing.T) {
	acc := newTestAccumulator(t, NewDocumentStore(nil), false)

	_, err := acc.AddItem(context.Background(), nil, item("p", "Printer", "100"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, "please log in to add items to your cart", pkgerrors.As(err).Message())
}

func TestAddItemValidates(t *testing.T) {
	acc := newTestAccumulator(t, newTestBlobStore(newMemoryKV()), false)
	ctx := context.Background()

	cases := []Item{
		item("", "Mouse", "1"),
		item("m", " ", "1"),
		item("m", "Mouse", "-1"),
	}
	for _, it := range cases {
		_, err := acc.AddItem(ctx, nil, it)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "item %+v: %v", it, err)
	}
}

func TestBackendFailureCarriesBackendText(t *testing.T) {
	kv := newMemoryKV()
	kv.getErr = assert.AnError
	acc := newTestAccumulator(t, newTestBlobStore(kv), false)

	_, err := acc.AddItem(context.Background(), identity.Guest("kiosk-1"), item("m", "Mouse", "1"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, pkgerrors.As(err).Message(), assert.AnError.Error())
}

func TestCheckoutRejectsBadGateway(t *testing.T) {
	acc := newTestAccumulator(t, newTestBlobStore(newMemoryKV()), false)
	acc.opts.Redirect.GatewayURL = "not a url"
	ctx := context.Background()

	guest := identity.Guest("kiosk-1")
	_, err := acc.AddItem(ctx, guest, item("m", "Mouse", "1"))
	require.NoError(t, err)
	_, err = acc.Checkout(ctx, guest)
	require.Error(t, err)

	count, err := acc.Count(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "failed redirect must leave the cart intact")
}

func TestGuestCartsAreIsolatedPerDevice(t *testing.T) {
	acc := newTestAccumulator(t, newTestBlobStore(newMemoryKV()), false)
	ctx := context.Background()
	first, second := identity.Guest("tablet-a"), identity.Guest("tablet-b")

	_, err := acc.AddItem(ctx, first, item("mon", "Monitor", "1999.90"))
	require.NoError(t, err)

	lines, err := acc.Lines(ctx, second)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, err = acc.Checkout(ctx, second)
	assert.ErrorIs(t, err, ErrEmptyCart)
	require.NoError(t, acc.Clear(ctx, second))

	count, err := acc.Count(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBlobPolicyNeedsAnOwner(t *testing.T) {
	acc := newTestAccumulator(t, newTestBlobStore(newMemoryKV()), false)
	ctx := context.Background()

	_, err := acc.AddItem(ctx, nil, item("mon", "Monitor", "10"))
	assert.ErrorIs(t, err, ErrNoCartOwner)
	_, err = acc.Lines(ctx, nil)
	assert.ErrorIs(t, err, ErrNoCartOwner)
	_, err = acc.Checkout(ctx, &identity.Session{})
	assert.ErrorIs(t, err, ErrNoCartOwner)
}

func TestCheckoutRecordsAmount(t *testing.T) {
	reg := prometheus.NewRegistry()
	acc, err := NewAccumulator(newTestBlobStore(newMemoryKV()), Options{
		PlaceholderImage: testPlaceholder,
		Redirect:         PaymentRedirect{GatewayURL: "https://example.com/payment-gateway", Currency: "ZAR"},
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), metrics.NewStorefront(reg))
	require.NoError(t, err)
	acc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	ctx := context.Background()
	sess := identity.Guest("till-9")
	_, err = acc.AddItem(ctx, sess, item("hs", "Headset", "749.95"))
	require.NoError(t, err)
	_, err = acc.Checkout(ctx, sess)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	var count uint64
	for _, mf := range families {
		if mf.GetName() != "storefront_checkout_amount" {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetHistogram().GetSampleSum()
			count += m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(1), count)
	assert.InDelta(t, 749.95, sum, 1e-9)
}
