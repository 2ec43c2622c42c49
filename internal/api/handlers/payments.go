package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dscnitrourkela/project-zucchini/internal/api/respond"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/payments"
	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

type PaymentService interface {
	InitiateOrder(ctx context.Context, uid string) (payments.Order, error)
	InitiateMunOrder(ctx context.Context, uid, studentType, committee string) (payments.Order, error)
	VerifyPayment(ctx context.Context, uid string, req payments.VerifyRequest) (payments.VerifyResult, error)
	VerifyMunPayment(ctx context.Context, uid string, req payments.VerifyRequest) (payments.VerifyResult, error)
	GetStatus(ctx context.Context, uid string) (*payments.Status, error)
}

type PaymentsHandler struct {
	Service PaymentService
	Env     string
}

func NewPaymentsHandler(service PaymentService, env string) *PaymentsHandler {
	return &PaymentsHandler{Service: service, Env: env}
}

// verifyOrderRequest uses the field names of the checkout callback.
type verifyOrderRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	Amount    *int   `json:"amount,omitempty"`
}

func (v verifyOrderRequest) toDomain() payments.VerifyRequest {
	return payments.VerifyRequest{
		OrderID:   v.OrderID,
		PaymentID: v.PaymentID,
		Signature: v.Signature,
		Amount:    v.Amount,
	}
}

type munOrderRequest struct {
	StudentType     string `json:"studentType"`
	CommitteeChoice string `json:"committeeChoice"`
}

func (h *PaymentsHandler) InitiateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	order, err := h.Service.InitiateOrder(r.Context(), id.UID)
	h.writeOrder(w, r, "nitrutsav", order, err)
}

// InitiateMunOrder accepts an optional body naming the student type and
// committee, used only when the caller has no stored MUN registration yet.
func (h *PaymentsHandler) InitiateMunOrder(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	var req munOrderRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	order, err := h.Service.InitiateMunOrder(r.Context(), id.UID, req.StudentType, req.CommitteeChoice)
	h.writeOrder(w, r, "mun", order, err)
}

func (h *PaymentsHandler) writeOrder(w http.ResponseWriter, r *http.Request, event string, order payments.Order, err error) {
	if err != nil {
		if !errors.Is(err, payments.ErrAlreadyVerified) {
			metrics.OrdersCreatedTotal.WithLabelValues(event, "error").Inc()
		}
		respond.Error(w, r, err, h.Env)
		return
	}
	metrics.OrdersCreatedTotal.WithLabelValues(event, "created").Inc()
	respond.OK(w, order)
}

func (h *PaymentsHandler) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, "nitrutsav", h.Service.VerifyPayment)
}

func (h *PaymentsHandler) VerifyMunOrder(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, "mun", h.Service.VerifyMunPayment)
}

type verifyFunc func(ctx context.Context, uid string, req payments.VerifyRequest) (payments.VerifyResult, error)

func (h *PaymentsHandler) verify(w http.ResponseWriter, r *http.Request, event string, fn verifyFunc) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	var req verifyOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	result, err := fn(r.Context(), id.UID, req.toDomain())
	if err != nil {
		outcome := "rejected"
		var httpErr *respond.HTTPError
		if !errors.As(err, &httpErr) && !isClientPaymentError(err) {
			outcome = "error"
		}
		metrics.PaymentVerificationsTotal.WithLabelValues(event, outcome).Inc()
		respond.Error(w, r, err, h.Env)
		return
	}

	if result.AlreadyVerified {
		metrics.PaymentVerificationsTotal.WithLabelValues(event, "already_verified").Inc()
	} else {
		metrics.PaymentVerificationsTotal.WithLabelValues(event, "verified").Inc()
	}
	respond.Success(w, http.StatusOK, result.Message, result)
}

func isClientPaymentError(err error) bool {
	var missing *payments.MissingFieldsError
	return errors.As(err, &missing) ||
		errors.Is(err, payments.ErrInvalidSignature) ||
		errors.Is(err, payments.ErrAmountMismatch) ||
		errors.Is(err, payments.ErrNotRegistered)
}

type paymentStatusResponse struct {
	IsPaymentVerified bool    `json:"isPaymentVerified"`
	PaymentMethod     *string `json:"paymentMethod"`
	OrderID           *string `json:"orderId"`
	PaymentID         *string `json:"paymentId"`
	VerifiedAt        *string `json:"verifiedAt"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *PaymentsHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	status, err := h.Service.GetStatus(r.Context(), id.UID)
	if err != nil {
		respond.Error(w, r, err, h.Env)
		return
	}

	out := paymentStatusResponse{
		IsPaymentVerified: status.IsVerified,
		PaymentMethod:     optional(string(status.PaymentMethod)),
		OrderID:           optional(status.OrderID),
		PaymentID:         optional(status.PaymentID),
	}
	if status.VerifiedAt != nil {
		out.VerifiedAt = optional(status.VerifiedAt.UTC().Format(time.RFC3339))
	}
	respond.OK(w, out)
}
