package razorpay

import (
	"context"
	"encoding/json"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
	"github.com/dscnitrourkela/project-zucchini/internal/telemetry"
)

// DefaultRateLimit keeps bursts of order creation under the gateway's limits
const DefaultRateLimit = rate.Limit(20)

// ErrGateway wraps every failure reported by the Razorpay API.
var ErrGateway = apperr.New(apperr.KindUpstream, "Payment gateway error")

// OrderCreator is the order resource of the Razorpay SDK.
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client creates orders through the Razorpay Go SDK and checks checkout
// signatures with the account secret.
type Client struct {
	orders    OrderCreator
	keyID     string
	keySecret string
	limiter   *rate.Limiter
}

type Option func(*Client)

// WithOrderCreator replaces the SDK order resource.
func WithOrderCreator(orders OrderCreator) Option {
	return func(c *Client) {
		if orders != nil {
			c.orders = orders
		}
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func NewClient(keyID, keySecret string, opts ...Option) *Client {
	client := &Client{
		orders:    rzp.NewClient(keyID, keySecret).Order,
		keyID:     keyID,
		keySecret: keySecret,
		limiter:   rate.NewLimiter(DefaultRateLimit, 5),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// KeyID is the public key checkout clients need to open the payment widget.
func (c *Client) KeyID() string {
	return c.keyID
}

// VerifySignature checks a checkout signature against this client's secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

// CreateOrder creates a gateway order. req.Amount must already be in paise.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (_ *Order, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "razorpay.create_order",
		attribute.Int64("payment.amount", req.Amount),
		attribute.String("payment.receipt", req.Receipt),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	raw, err := c.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrGateway, err)
	}
	return decodeOrder(raw)
}

// decodeOrder converts the SDK's generic map into an Order.
func decodeOrder(raw map[string]interface{}) (*Order, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: encode order: %v", ErrGateway, err)
	}
	var order Order
	if err := json.Unmarshal(encoded, &order); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", ErrGateway, err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("%w: order response has no id", ErrGateway)
	}
	return &order, nil
}
