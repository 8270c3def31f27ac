package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/id-scanner/internal/circuitbreaker"
	"github.com/id-scanner/internal/entitlement"
	apperrors "github.com/id-scanner/internal/errors"
	"github.com/id-scanner/internal/logging"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/payment"
	"github.com/id-scanner/internal/types"
)

// SubscriptionService sells paid plans: it charges through the payment
// gateway, keeps the payment history and grants the plan once paid
type SubscriptionService struct {
	entitlements *EntitlementService
	gateway      payment.Gateway
	payments     PaymentStore
	returnURL    string
	now          func() time.Time
	logger       *logging.Logger
}

// NewSubscriptionService creates a subscription service. A nil gateway
// makes every upgrade fail as unavailable.
func NewSubscriptionService(entitlements *EntitlementService, gateway payment.Gateway, payments PaymentStore, returnURL string) *SubscriptionService {
	return &SubscriptionService{
		entitlements: entitlements,
		gateway:      gateway,
		payments:     payments,
		returnURL:    returnURL,
		now:          time.Now,
		logger:       logging.GetGlobalLogger().WithField("component", "subscription"),
	}
}

// UpgradeRequest asks to buy plan with method
type UpgradeRequest struct {
	Plan    types.Plan           `json:"plan"`
	Method  payment.Method       `json:"method"`
	Card    *payment.CardDetails `json:"card,omitempty"`
	Billing payment.Billing      `json:"billing"`
}

// UpgradeResult reports the charge. Subscription is set once the plan is granted.
type UpgradeResult struct {
	Payment      *models.Payment           `json:"payment"`
	Status       payment.Status            `json:"status"`
	RedirectURL  string                    `json:"redirectUrl,omitempty"`
	Subscription *models.SubscriptionState `json:"subscription,omitempty"`
}

// Plans returns the plan catalog
func (s *SubscriptionService) Plans() []entitlement.PlanDetails {
	return entitlement.Catalog()
}

// Upgrade charges userID for req.Plan. The plan is granted only on a
// succeeded charge; pending and requires_action charges return the
// redirect the payer must follow and are finished with Confirm.
func (s *SubscriptionService) Upgrade(ctx context.Context, userID string, req UpgradeRequest) (*UpgradeResult, error) {
	if !req.Plan.IsPaid() {
		return nil, apperrors.NewInvalidPlanError(string(req.Plan))
	}
	if !req.Method.Valid() {
		return nil, apperrors.NewInvalidParameterError("method", fmt.Sprintf("unsupported payment method %q", req.Method))
	}
	if req.Method == payment.MethodCard {
		if req.Card == nil {
			return nil, apperrors.NewInvalidParameterError("card", "card details are required")
		}
		if err := req.Card.Validate(s.now()); err != nil {
			var verr *payment.ValidationError
			if errors.As(err, &verr) {
				return nil, apperrors.NewInvalidParameterError("card", strings.Join(verr.Problems, "; "))
			}
			return nil, apperrors.NewInvalidParameterError("card", err.Error())
		}
	}
	if s.gateway == nil {
		return nil, apperrors.NewServiceUnavailableError("payment gateway")
	}

	details := entitlement.DetailsFor(req.Plan)
	charge, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Amount:      details.Amount,
		Currency:    details.Currency,
		Method:      req.Method,
		Description: details.Name + " subscription",
		Card:        req.Card,
		Billing:     req.Billing,
		ReturnURL:   s.returnURL,
	})
	if err != nil {
		return nil, s.chargeError(userID, err)
	}

	record := &models.Payment{
		UserID:    userID,
		Plan:      req.Plan,
		Amount:    details.Amount,
		Currency:  details.Currency,
		Method:    string(req.Method),
		Status:    string(charge.Status),
		Reference: charge.Reference,
	}
	if charge.RedirectURL != "" {
		redirect := charge.RedirectURL
		record.RedirectURL = &redirect
	}
	if err := s.payments.Create(ctx, record); err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"userId":    userID,
			"reference": charge.Reference,
			"status":    charge.Status,
		}).Error("Failed to store payment")
		// Confirm needs the stored row, so an unfinished checkout is not handed out
		if charge.Status != payment.StatusSucceeded {
			return nil, apperrors.NewPaymentRecordError(charge.Reference, err)
		}
	}

	result := &UpgradeResult{Payment: record, Status: charge.Status, RedirectURL: charge.RedirectURL}
	switch charge.Status {
	case payment.StatusSucceeded:
		state, err := s.entitlements.UpdatePlan(ctx, userID, req.Plan)
		if err != nil {
			return nil, err
		}
		result.Subscription = &state
	case payment.StatusFailed:
		return nil, apperrors.NewPaymentError(string(charge.Status), nil)
	}
	return result, nil
}

// Confirm finishes a pending or requires_action payment of userID by
// asking the gateway for its current status
func (s *SubscriptionService) Confirm(ctx context.Context, userID, paymentID string) (*UpgradeResult, error) {
	record, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get payment", err)
	}
	if record == nil || record.UserID != userID {
		return nil, apperrors.NewNotFoundError("payment", paymentID)
	}

	status := payment.Status(record.Status)
	if status != payment.StatusSucceeded && status != payment.StatusFailed {
		if s.gateway == nil {
			return nil, apperrors.NewServiceUnavailableError("payment gateway")
		}
		status, err = s.gateway.Status(ctx, record.Reference)
		if err != nil {
			return nil, s.chargeError(userID, err)
		}
		if string(status) != record.Status {
			if err := s.payments.UpdateStatus(ctx, record.ID, string(status)); err != nil {
				return nil, apperrors.NewDatabaseError("update payment", err)
			}
			record.Status = string(status)
		}
	}

	result := &UpgradeResult{Payment: record, Status: status}
	switch status {
	case payment.StatusSucceeded:
		state, err := s.grantOnce(ctx, userID, record)
		if err != nil {
			return nil, err
		}
		result.Subscription = &state
	case payment.StatusFailed:
		return nil, apperrors.NewPaymentError(string(status), nil)
	}
	return result, nil
}

// grantOnce applies the plan of a succeeded payment unless a plan change
// already happened after the payment was made
func (s *SubscriptionService) grantOnce(ctx context.Context, userID string, record *models.Payment) (models.SubscriptionState, error) {
	view, err := s.entitlements.GetSubscription(ctx, userID)
	if err != nil {
		return models.SubscriptionState{}, err
	}
	state := view.State
	if state.Plan == record.Plan && state.UpdatedAt != nil && !state.UpdatedAt.Before(record.CreatedAt) {
		return state, nil
	}
	return s.entitlements.UpdatePlan(ctx, userID, record.Plan)
}

// PaymentHistory returns the payments of userID, newest first
func (s *SubscriptionService) PaymentHistory(ctx context.Context, userID string) ([]*models.Payment, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list payments", err)
	}
	return payments, nil
}

func (s *SubscriptionService) chargeError(userID string, err error) error {
	s.logger.WithError(err).WithField("userId", userID).Warn("Payment gateway call failed")
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return apperrors.NewServiceUnavailableError("payment gateway")
	}
	var apiErr *payment.APIError
	if errors.As(err, &apiErr) {
		return apperrors.NewPaymentError(string(payment.StatusFailed), err)
	}
	if errors.Is(err, payment.ErrUnsupportedMethod) || errors.Is(err, payment.ErrCardRequired) {
		return apperrors.NewInvalidParameterError("method", err.Error())
	}
	return apperrors.NewPaymentError("error", err)
}
