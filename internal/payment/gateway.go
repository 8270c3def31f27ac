// Package payment charges plan upgrades through an external payment gateway.
package payment

import (
	"context"
	"errors"
)

// Method is a payment method accepted by the gateway
type Method string

const (
	MethodCard    Method = "card"
	MethodGCash   Method = "gcash"
	MethodPayMaya Method = "paymaya"
)

// Valid reports whether m is a supported payment method
func (m Method) Valid() bool {
	switch m {
	case MethodCard, MethodGCash, MethodPayMaya:
		return true
	}
	return false
}

// Status is the outcome of a charge as reported by the gateway
type Status string

const (
	StatusSucceeded      Status = "succeeded"
	StatusPending        Status = "pending"
	StatusFailed         Status = "failed"
	StatusRequiresAction Status = "requires_action"
)

// Billing identifies the payer
type Billing struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ChargeRequest is one charge for a plan. Amount is in centavos.
type ChargeRequest struct {
	Amount      int64
	Currency    string
	Method      Method
	Description string
	Card        *CardDetails
	Billing     Billing
	ReturnURL   string
}

// ChargeResult is the gateway's answer to a charge. RedirectURL is set
// when the payer must finish the payment outside the app.
type ChargeResult struct {
	Status      Status `json:"status"`
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// Gateway is the payment collaborator
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	// Status re-reads the state of an earlier charge by its reference
	Status(ctx context.Context, reference string) (Status, error)
}

var (
	// ErrCardRequired is returned for card charges without card details
	ErrCardRequired = errors.New("card details are required for card payments")
	// ErrUnsupportedMethod is returned for methods the gateway cannot charge
	ErrUnsupportedMethod = errors.New("unsupported payment method")
)
