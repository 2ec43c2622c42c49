package razorpay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSign_KnownVector(t *testing.T) {
	got := Sign("order_NZ4Q8x1", "pay_NZ4R2abc", "rzp_test_secret")
	require.Equal(t, "3479506b416170e04fedee7b2a6bfcfe143c986a808bdd5884857d6ceb30c4d1", got)
}

func TestVerifySignature(t *testing.T) {
	secret := "rzp_test_secret"
	valid := Sign("order_1", "pay_1", secret)

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		secret    string
		want      bool
	}{
		{name: "valid", orderID: "order_1", paymentID: "pay_1", signature: valid, secret: secret, want: true},
		{name: "wrong secret", orderID: "order_1", paymentID: "pay_1", signature: valid, secret: "other", want: false},
		{name: "swapped ids", orderID: "pay_1", paymentID: "order_1", signature: valid, secret: secret, want: false},
		{name: "other payment", orderID: "order_1", paymentID: "pay_2", signature: valid, secret: secret, want: false},
		{name: "uppercase hex", orderID: "order_1", paymentID: "pay_1", signature: strings.ToUpper(valid), secret: secret, want: false},
		{name: "truncated", orderID: "order_1", paymentID: "pay_1", signature: valid[:32], secret: secret, want: false},
		{name: "empty signature", orderID: "order_1", paymentID: "pay_1", signature: "", secret: secret, want: false},
		{name: "empty order", orderID: "", paymentID: "pay_1", signature: valid, secret: secret, want: false},
		{name: "empty secret", orderID: "order_1", paymentID: "pay_1", signature: Sign("order_1", "pay_1", ""), secret: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, VerifySignature(tt.orderID, tt.paymentID, tt.signature, tt.secret))
		})
	}
}

type fakeOrders struct {
	got      map[string]interface{}
	response map[string]interface{}
	err      error
	calls    int
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.calls++
	f.got = data
	return f.response, f.err
}

func TestClient_CreateOrder_Success(t *testing.T) {
	orders := &fakeOrders{response: map[string]interface{}{
		"id":         "order_123",
		"entity":     "order",
		"amount":     float64(49900),
		"amount_due": float64(49900),
		"currency":   "INR",
		"receipt":    "NU26-abc",
		"status":     "created",
		"created_at": float64(1767225600),
	}}

	client := NewClient("rzp_test_key", "rzp_test_secret", WithOrderCreator(orders))
	order, err := client.CreateOrder(context.Background(), OrderRequest{
		Amount:  49900,
		Receipt: "NU26-abc",
		Notes:   map[string]string{"userId": "7"},
	})
	require.NoError(t, err)
	require.Equal(t, "order_123", order.ID)
	require.Equal(t, int64(49900), order.Amount)
	require.Equal(t, "created", order.Status)
	require.Equal(t, "rzp_test_key", client.KeyID())

	require.Equal(t, int64(49900), orders.got["amount"])
	require.Equal(t, "INR", orders.got["currency"])
	require.Equal(t, "NU26-abc", orders.got["receipt"])
	require.Equal(t, map[string]string{"userId": "7"}, orders.got["notes"])
}

func TestClient_CreateOrder_GatewayFailure(t *testing.T) {
	orders := &fakeOrders{err: errors.New("The amount must be atleast INR 1.00")}

	client := NewClient("k", "s", WithOrderCreator(orders))
	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 1})
	require.ErrorIs(t, err, ErrGateway)
	require.ErrorContains(t, err, "atleast INR 1.00")
	require.Equal(t, 1, orders.calls)
}

func TestClient_CreateOrder_ResponseWithoutID(t *testing.T) {
	client := NewClient("k", "s", WithOrderCreator(&fakeOrders{response: map[string]interface{}{"status": "created"}}))
	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 100})
	require.ErrorIs(t, err, ErrGateway)
}

func TestClient_CreateOrder_RejectsNonPositiveAmount(t *testing.T) {
	orders := &fakeOrders{}
	client := NewClient("k", "s", WithOrderCreator(orders))
	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 0})
	require.Error(t, err)
	require.Zero(t, orders.calls)
}

func TestClient_CreateOrder_WaitsForRateLimit(t *testing.T) {
	orders := &fakeOrders{response: map[string]interface{}{"id": "order_1"}}
	client := NewClient("k", "s", WithOrderCreator(orders), WithRateLimit(0.001))

	_, err := client.CreateOrder(context.Background(), OrderRequest{Amount: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.CreateOrder(ctx, OrderRequest{Amount: 100})
	require.Error(t, err)
	require.Equal(t, 1, orders.calls)
}

func TestClient_VerifySignatureUsesSecret(t *testing.T) {
	client := NewClient("k", "secret")
	require.True(t, client.VerifySignature("order_9", "pay_9", Sign("order_9", "pay_9", "secret")))
	require.False(t, client.VerifySignature("order_9", "pay_9", Sign("order_9", "pay_9", "other")))
}
