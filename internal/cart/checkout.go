package cart

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutResult describes the simulated hand-off to the payment gateway.
type CheckoutResult struct {
	RedirectURL string          `json:"redirectUrl"`
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	ItemCount   int             `json:"itemCount"`
}

// PaymentRedirect builds gateway URLs of the form
// <gateway>?amount=<total>&currency=<code>&orderId=<unix ms>.
type PaymentRedirect struct {
	GatewayURL string
	Currency   string
}

func (p PaymentRedirect) build(amount decimal.Decimal, at time.Time) (string, string, error) {
	base, err := url.Parse(strings.TrimSpace(p.GatewayURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", "", fmt.Errorf("invalid payment gateway url %q", p.GatewayURL)
	}
	orderID := strconv.FormatInt(at.UnixMilli(), 10)
	q := base.Query()
	q.Set("amount", amount.StringFixed(2))
	q.Set("currency", p.Currency)
	q.Set("orderId", orderID)
	base.RawQuery = q.Encode()
	return base.String(), orderID, nil
}
