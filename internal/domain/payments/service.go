package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/dscnitrourkela/project-zucchini/internal/domain/registrations"
	"github.com/dscnitrourkela/project-zucchini/internal/payment/razorpay"
)

const (
	nitrutsavReceiptPrefix = "NU26-"
	munReceiptPrefix       = "MUN-"

	msgVerified    = "Payment verified successfully"
	msgMunVerified = "MUN payment verified successfully"
)

type Service struct {
	repo       Repository
	regs       Registrations
	gateway    Gateway
	fees       registrations.Fees
	currency   string
	notifier   Notifier
	logger     zerolog.Logger
	newReceipt func(prefix string) string
}

func NewService(repo Repository, regs Registrations, gateway Gateway, fees registrations.Fees, currency string, logger zerolog.Logger) *Service {
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		repo:     repo,
		regs:     regs,
		gateway:  gateway,
		fees:     fees,
		currency: currency,
		logger:   logger.With().Str("component", "payments").Logger(),
		newReceipt: func(prefix string) string {
			return prefix + ulid.Make().String()
		},
	}
}

// SetNotifier registers a post-commit hook for verified payments.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// InitiateOrder opens a gateway order for the NITRUTSAV fee.
func (s *Service) InitiateOrder(ctx context.Context, uid string) (Order, error) {
	user, err := s.regs.GetByUID(ctx, uid)
	switch {
	case err == nil && user.IsVerified:
		return Order{}, ErrAlreadyVerified
	case err != nil && !errors.Is(err, registrations.ErrNotFound):
		return Order{}, fmt.Errorf("get registration: %w", err)
	}

	return s.createOrder(ctx, s.fees.Nitrutsav, nitrutsavReceiptPrefix, map[string]string{
		"firebase_uid": uid,
		"event":        string(registrations.EventNitrutsav),
	})
}

// InitiateMunOrder opens a gateway order for the caller's MUN fee. The fee
// comes from the stored registration when there is one, otherwise from the
// student type and committee in the request.
func (s *Service) InitiateMunOrder(ctx context.Context, uid, studentType, committee string) (Order, error) {
	var amount int
	reg, err := s.regs.GetMunByUID(ctx, uid)
	switch {
	case err == nil:
		if reg.IsVerified {
			return Order{}, ErrAlreadyVerified
		}
		amount, err = s.munFee(ctx, reg)
		if err != nil {
			return Order{}, err
		}
	case errors.Is(err, registrations.ErrNotFound):
		st := registrations.StudentType(strings.ToUpper(strings.TrimSpace(studentType)))
		c := registrations.Committee(strings.ToUpper(strings.TrimSpace(committee)))
		fields := map[string]string{}
		if st != registrations.StudentCollege && st != registrations.StudentSchool {
			fields["studentType"] = "must be one of: SCHOOL COLLEGE"
		}
		if !c.Valid() {
			fields["committeeChoice"] = "must be a known committee"
		}
		if len(fields) > 0 {
			return Order{}, &registrations.ValidationError{Fields: fields}
		}
		amount = s.fees.MunFee(st, c)
	default:
		return Order{}, fmt.Errorf("get mun registration: %w", err)
	}

	return s.createOrder(ctx, amount, munReceiptPrefix, map[string]string{
		"firebase_uid": uid,
		"event":        string(registrations.EventMun),
	})
}

func (s *Service) createOrder(ctx context.Context, amount int, prefix string, notes map[string]string) (Order, error) {
	receipt := s.newReceipt(prefix)
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   int64(amount) * 100,
		Currency: s.currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return Order{}, fmt.Errorf("create gateway order: %w", err)
	}

	s.logger.Info().Str("order_id", order.ID).Str("receipt", receipt).Int("amount", amount).Msg("order created")
	return Order{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: s.currency,
		KeyID:    s.gateway.KeyID(),
		Receipt:  receipt,
	}, nil
}

// munFee prices a team at its leader's student type, so the amount does not
// depend on which member pays.
func (s *Service) munFee(ctx context.Context, reg *registrations.MunRegistration) (int, error) {
	pricing := reg
	if reg.TeamID != "" && !reg.IsTeamLeader {
		team, err := s.regs.GetTeamMembers(ctx, reg.TeamID)
		if err != nil {
			return 0, fmt.Errorf("get team: %w", err)
		}
		for i := range team.Members {
			if team.Members[i].IsTeamLeader {
				pricing = &team.Members[i]
				break
			}
		}
	}
	return s.fees.MunFee(pricing.StudentType, pricing.Committee), nil
}

func checkFields(req VerifyRequest) error {
	var missing []string
	if strings.TrimSpace(req.OrderID) == "" {
		missing = append(missing, "razorpay_order_id")
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		missing = append(missing, "razorpay_payment_id")
	}
	if strings.TrimSpace(req.Signature) == "" {
		missing = append(missing, "razorpay_signature")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// VerifyPayment checks the checkout signature and marks the caller's
// NITRUTSAV registration paid. A repeat call succeeds without writing.
func (s *Service) VerifyPayment(ctx context.Context, uid string, req VerifyRequest) (VerifyResult, error) {
	if err := checkFields(req); err != nil {
		return VerifyResult{}, err
	}

	user, err := s.regs.GetByUID(ctx, uid)
	if errors.Is(err, registrations.ErrNotFound) {
		return VerifyResult{}, ErrNotRegistered
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("get registration: %w", err)
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn().Int64("user_id", user.ID).Str("order_id", req.OrderID).Msg("payment signature mismatch")
		return VerifyResult{}, ErrInvalidSignature
	}

	already := false
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		changed, err := tx.MarkUserVerified(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("mark user verified: %w", err)
		}
		if !changed {
			already = true
			return nil
		}

		txID, err := tx.InsertTransaction(ctx, Transaction{
			UserID:        user.ID,
			PaymentID:     req.PaymentID,
			PaymentMethod: MethodRazorpay,
			Amount:        s.fees.Nitrutsav,
			IsVerified:    true,
		})
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		return tx.InsertGatewayPayment(ctx, GatewayPayment{
			TransactionID: txID,
			OrderID:       req.OrderID,
			PaymentID:     req.PaymentID,
			Signature:     req.Signature,
			IsVerified:    true,
		})
	})
	if err != nil {
		return VerifyResult{}, err
	}

	if !already {
		s.logger.Info().Int64("user_id", user.ID).Str("payment_id", req.PaymentID).Msg("payment verified")
		s.notify(ctx, Confirmation{
			Event:     registrations.EventNitrutsav,
			Email:     user.Email,
			Name:      user.Name,
			Amount:    s.fees.Nitrutsav,
			PaymentID: req.PaymentID,
			OrderID:   req.OrderID,
		})
	}
	return VerifyResult{Message: msgVerified, AlreadyVerified: already}, nil
}

// VerifyMunPayment checks the checkout signature and marks every member of
// the caller's team paid, recording one transaction for the team key.
func (s *Service) VerifyMunPayment(ctx context.Context, uid string, req VerifyRequest) (VerifyResult, error) {
	if err := checkFields(req); err != nil {
		return VerifyResult{}, err
	}

	reg, err := s.regs.GetMunByUID(ctx, uid)
	if errors.Is(err, registrations.ErrNotFound) {
		return VerifyResult{}, ErrNotRegistered
	}
	if err != nil {
		return VerifyResult{}, fmt.Errorf("get mun registration: %w", err)
	}

	if !s.gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn().Int64("mun_id", reg.ID).Str("order_id", req.OrderID).Msg("mun payment signature mismatch")
		return VerifyResult{}, ErrInvalidSignature
	}

	fee, err := s.munFee(ctx, reg)
	if err != nil {
		return VerifyResult{}, err
	}
	if req.Amount != nil && *req.Amount != fee {
		return VerifyResult{}, ErrAmountMismatch
	}

	teamKey := reg.TeamKey()
	result := VerifyResult{Message: msgMunVerified, TeamKey: teamKey}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		inserted, err := tx.InsertMunTransaction(ctx, MunTransaction{
			TeamKey:       teamKey,
			PaymentID:     req.PaymentID,
			OrderID:       req.OrderID,
			Signature:     req.Signature,
			Amount:        fee,
			PaymentMethod: MethodRazorpay,
			IsVerified:    true,
		})
		if err != nil {
			return fmt.Errorf("insert mun transaction: %w", err)
		}
		if !inserted {
			result.AlreadyVerified = true
			return nil
		}

		n, err := tx.MarkMunVerified(ctx, reg.TeamID, reg.ID)
		if err != nil {
			return fmt.Errorf("mark team verified: %w", err)
		}
		result.MembersVerified = n
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	if !result.AlreadyVerified {
		s.logger.Info().Str("team_id", teamKey).Int64("members", result.MembersVerified).Str("payment_id", req.PaymentID).Msg("mun payment verified")
		s.notify(ctx, Confirmation{
			Event:     registrations.EventMun,
			Email:     reg.Email,
			Name:      reg.Name,
			Amount:    fee,
			PaymentID: req.PaymentID,
			OrderID:   req.OrderID,
			TeamKey:   teamKey,
		})
	}
	return result, nil
}

// GetStatus reports the caller's NITRUTSAV payment state.
func (s *Service) GetStatus(ctx context.Context, uid string) (*Status, error) {
	user, err := s.regs.GetByUID(ctx, uid)
	if errors.Is(err, registrations.ErrNotFound) {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return s.repo.GetStatus(ctx, user.ID)
}

func (s *Service) notify(ctx context.Context, c Confirmation) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PaymentVerified(ctx, c); err != nil {
		s.logger.Warn().Err(err).Str("payment_id", c.PaymentID).Msg("failed to queue payment confirmation")
	}
}
