package payments

import (
	"context"
	"time"

	"github.com/dscnitrourkela/project-zucchini/internal/apperr"
	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/payment/razorpay"
)

var (
	ErrNotRegistered    = apperr.New(apperr.KindNotFound, "Registration not found")
	ErrInvalidSignature = apperr.New(apperr.KindInvalid, "Invalid payment signature")
	ErrAlreadyVerified  = apperr.New(apperr.KindConflict, "Payment already verified")
	ErrAmountMismatch   = apperr.New(apperr.KindInvalid, "Amount does not match the registration fee")
)

// MissingFieldsError lists required payment fields that were empty.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required payment fields"
}

func (e *MissingFieldsError) Kind() apperr.Kind     { return apperr.KindInvalid }
func (e *MissingFieldsError) PublicMessage() string { return "Missing required payment fields" }
func (e *MissingFieldsError) PublicDetails() any    { return map[string]any{"fields": e.Fields} }

type Method string

const (
	MethodRazorpay Method = "razorpay"
	MethodQR       Method = "qr"
)

// Transaction is the verified NITRUTSAV payment for one user.
type Transaction struct {
	ID            int64
	UserID        int64
	PaymentID     string
	PaymentMethod Method
	Amount        int
	IsVerified    bool
	CreatedAt     time.Time
}

// GatewayPayment holds the checkout references for a transaction.
type GatewayPayment struct {
	TransactionID int64
	OrderID       string
	PaymentID     string
	Signature     string
	IsVerified    bool
	VerifiedAt    time.Time
}

// MunTransaction is the verified payment for one MUN team key.
type MunTransaction struct {
	ID            int64
	TeamKey       string
	PaymentID     string
	OrderID       string
	Signature     string
	Amount        int
	PaymentMethod Method
	IsVerified    bool
	CreatedAt     time.Time
}

// Status is the payment state of one NITRUTSAV registration.
type Status struct {
	IsVerified    bool
	PaymentMethod Method
	VerifiedAt    *time.Time
	OrderID       string
	PaymentID     string
}

// Order is what a checkout client needs to open the payment widget.
type Order struct {
	OrderID  string `json:"orderId"`
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	Receipt  string `json:"receipt"`
}

// VerifyRequest carries the checkout callback fields.
type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
	// Amount is optional for MUN; when set it must equal the computed fee.
	Amount *int
}

// VerifyResult is returned by both verification flows.
type VerifyResult struct {
	Message         string `json:"message"`
	AlreadyVerified bool   `json:"alreadyVerified"`
	TeamKey         string `json:"teamId,omitempty"`
	MembersVerified int64  `json:"membersVerified,omitempty"`
}

// Gateway creates orders and checks checkout signatures.
type Gateway interface {
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// Registrations looks up the caller's registration.
type Registrations interface {
	GetByUID(ctx context.Context, uid string) (*registrations.User, error)
	GetMunByUID(ctx context.Context, uid string) (*registrations.MunRegistration, error)
	GetTeamMembers(ctx context.Context, teamID string) (registrations.Team, error)
}

// Confirmation describes a freshly verified payment for notification.
type Confirmation struct {
	Event     registrations.EventType
	Email     string
	Name      string
	Amount    int
	PaymentID string
	OrderID   string
	TeamKey   string
}

// Notifier is told about each verification after it commits.
type Notifier interface {
	PaymentVerified(ctx context.Context, c Confirmation) error
}

// Repository persists payment state. WithTx runs fn inside one database
// transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	// MarkUserVerified flips is_verified for one user and reports whether
	// this call made the change.
	MarkUserVerified(ctx context.Context, userID int64) (bool, error)
	InsertTransaction(ctx context.Context, t Transaction) (int64, error)
	InsertGatewayPayment(ctx context.Context, p GatewayPayment) error
	GetStatus(ctx context.Context, userID int64) (*Status, error)

	// MarkMunVerified flips is_verified on every unverified row of a team
	// (or the single row when teamID is empty) and returns how many changed.
	MarkMunVerified(ctx context.Context, teamID string, registrationID int64) (int64, error)
	// InsertMunTransaction inserts unless the team key already has one.
	InsertMunTransaction(ctx context.Context, t MunTransaction) (bool, error)
}
