package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/id-scanner/internal/circuitbreaker"
	"github.com/id-scanner/internal/logging"
)

// DefaultPayMongoBaseURL is the PayMongo v1 API root
const DefaultPayMongoBaseURL = "https://api.paymongo.com/v1"

// APIError is a non-2xx answer from PayMongo
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paymongo: %s (status %d)", e.Detail, e.StatusCode)
}

// PayMongoClient charges payments through the PayMongo REST API
type PayMongoClient struct {
	baseURL    string
	authHeader string
	httpClient *retryablehttp.Client
	breaker    *circuitbreaker.CircuitBreaker
	logger     *logging.Logger
}

// NewPayMongoClient creates a client authenticating with secretKey. An
// empty baseURL uses DefaultPayMongoBaseURL.
func NewPayMongoClient(baseURL, secretKey string, timeout time.Duration) *PayMongoClient {
	if baseURL == "" {
		baseURL = DefaultPayMongoBaseURL
	}
	return &PayMongoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":")),
		httpClient: newRetryingClient(timeout),
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("paymongo")),
		logger:     logging.GetGlobalLogger().WithField("component", "paymongo"),
	}
}

// idempotentKey marks a request context as safe to resend
type idempotentKey struct{}

// newRetryingClient retries transport errors and 5xx answers of idempotent
// requests only. Charges are never resent.
func newRetryingClient(timeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = timeout
	client.Logger = nil
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if idempotent, _ := ctx.Value(idempotentKey{}).(bool); !idempotent {
			return false, ctx.Err()
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return client
}

// Breaker exposes the circuit breaker guarding PayMongo calls
func (c *PayMongoClient) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Charge starts a payment. Card charges complete synchronously unless 3-D
// Secure is needed; e-wallet charges always return a checkout redirect.
func (c *PayMongoClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	switch req.Method {
	case MethodCard:
		if req.Card == nil {
			return nil, ErrCardRequired
		}
		card := req.Card.Normalized()
		details := map[string]interface{}{
			"card_number": card.Number,
			"exp_month":   card.ExpMonth,
			"exp_year":    card.ExpYear,
			"cvc":         card.CVC,
		}
		billing := req.Billing
		if billing.Name == "" {
			billing = Billing{Name: card.Name, Email: card.Email}
		}
		return c.chargeIntent(ctx, req, "card", details, billing)
	case MethodPayMaya:
		return c.chargeIntent(ctx, req, "paymaya", nil, req.Billing)
	case MethodGCash:
		return c.chargeSource(ctx, req, "gcash")
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, req.Method)
}

// chargeIntent runs the payment intent workflow: create a payment method,
// create an intent that allows it, then attach the two
func (c *PayMongoClient) chargeIntent(ctx context.Context, req ChargeRequest, methodType string, details map[string]interface{}, billing Billing) (*ChargeResult, error) {
	methodAttrs := map[string]interface{}{
		"type":    methodType,
		"billing": map[string]interface{}{"name": billing.Name, "email": billing.Email},
	}
	if details != nil {
		methodAttrs["details"] = details
	}
	method, err := c.do(ctx, http.MethodPost, "/payment_methods", envelope(methodAttrs))
	if err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}

	intentAttrs := map[string]interface{}{
		"amount":                 req.Amount,
		"currency":               req.Currency,
		"description":            req.Description,
		"payment_method_allowed": []string{methodType},
		"capture_type":           "automatic",
	}
	if methodType == "card" {
		intentAttrs["payment_method_options"] = map[string]interface{}{
			"card": map[string]interface{}{"request_three_d_secure": "automatic"},
		}
	}
	intent, err := c.do(ctx, http.MethodPost, "/payment_intents", envelope(intentAttrs))
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	intentID := intent.Get("data.id").String()

	attachAttrs := map[string]interface{}{
		"payment_method": method.Get("data.id").String(),
		"client_key":     intent.Get("data.attributes.client_key").String(),
	}
	if req.ReturnURL != "" {
		attachAttrs["return_url"] = req.ReturnURL
	}
	attached, err := c.do(ctx, http.MethodPost, "/payment_intents/"+intentID+"/attach", envelope(attachAttrs))
	if err != nil {
		return nil, fmt.Errorf("attach payment method: %w", err)
	}

	result := &ChargeResult{
		Status:      intentStatus(attached.Get("data.attributes.status").String()),
		Reference:   intentID,
		RedirectURL: attached.Get("data.attributes.next_action.redirect.url").String(),
	}
	c.logger.WithFields(map[string]interface{}{
		"reference": result.Reference,
		"method":    methodType,
		"status":    result.Status,
	}).Info("Payment intent attached")
	return result, nil
}

// chargeSource creates an e-wallet source the payer authorizes on the
// wallet's checkout page
func (c *PayMongoClient) chargeSource(ctx context.Context, req ChargeRequest, sourceType string) (*ChargeResult, error) {
	attrs := map[string]interface{}{
		"type":     sourceType,
		"amount":   req.Amount,
		"currency": req.Currency,
		"redirect": map[string]interface{}{
			"success": withQuery(req.ReturnURL, "status=success"),
			"failed":  withQuery(req.ReturnURL, "status=failed"),
		},
	}
	if req.Billing.Name != "" {
		attrs["billing"] = map[string]interface{}{"name": req.Billing.Name, "email": req.Billing.Email}
	}
	source, err := c.do(ctx, http.MethodPost, "/sources", envelope(attrs))
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}

	return &ChargeResult{
		Status:      StatusPending,
		Reference:   source.Get("data.id").String(),
		RedirectURL: source.Get("data.attributes.redirect.checkout_url").String(),
	}, nil
}

// Status re-reads a charge. A source the payer has authorized is turned
// into a payment here, which is when the money actually moves.
func (c *PayMongoClient) Status(ctx context.Context, reference string) (Status, error) {
	switch {
	case strings.HasPrefix(reference, "pi_"):
		intent, err := c.do(ctx, http.MethodGet, "/payment_intents/"+reference, nil)
		if err != nil {
			return "", fmt.Errorf("get payment intent: %w", err)
		}
		return intentStatus(intent.Get("data.attributes.status").String()), nil

	case strings.HasPrefix(reference, "src_"):
		source, err := c.do(ctx, http.MethodGet, "/sources/"+reference, nil)
		if err != nil {
			return "", fmt.Errorf("get source: %w", err)
		}
		switch source.Get("data.attributes.status").String() {
		case "chargeable":
			return c.chargeChargeableSource(ctx, reference, source)
		case "paid", "consumed":
			return StatusSucceeded, nil
		case "cancelled", "expired", "failed":
			return StatusFailed, nil
		}
		return StatusPending, nil

	case strings.HasPrefix(reference, "pay_"):
		payment, err := c.do(ctx, http.MethodGet, "/payments/"+reference, nil)
		if err != nil {
			return "", fmt.Errorf("get payment: %w", err)
		}
		return paymentStatus(payment.Get("data.attributes.status").String()), nil
	}
	return "", fmt.Errorf("unrecognized payment reference %q", reference)
}

func (c *PayMongoClient) chargeChargeableSource(ctx context.Context, reference string, source gjson.Result) (Status, error) {
	attrs := map[string]interface{}{
		"amount":   source.Get("data.attributes.amount").Int(),
		"currency": source.Get("data.attributes.currency").String(),
		"source":   map[string]interface{}{"id": reference, "type": "source"},
	}
	payment, err := c.do(ctx, http.MethodPost, "/payments", envelope(attrs))
	if err != nil {
		return "", fmt.Errorf("create payment from source: %w", err)
	}
	return paymentStatus(payment.Get("data.attributes.status").String()), nil
}

func intentStatus(s string) Status {
	switch s {
	case "succeeded":
		return StatusSucceeded
	case "awaiting_next_action":
		return StatusRequiresAction
	case "processing":
		return StatusPending
	}
	return StatusFailed
}

func paymentStatus(s string) Status {
	switch s {
	case "paid":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	}
	return StatusPending
}

// do sends one API request. Transport errors and 5xx answers left after
// retries count against the circuit breaker; 4xx answers are returned as
// *APIError.
func (c *PayMongoClient) do(ctx context.Context, method, path string, body interface{}) (gjson.Result, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return gjson.Result{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	if method == http.MethodGet {
		ctx = context.WithValue(ctx, idempotentKey{}, true)
	}

	var (
		status  int
		content []byte
	)
	err := c.breaker.Execute(ctx, func() error {
		req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		content, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if status >= http.StatusInternalServerError {
			return apiError(status, content)
		}
		return nil
	})
	if err != nil {
		return gjson.Result{}, err
	}

	if status < 200 || status >= 300 {
		return gjson.Result{}, apiError(status, content)
	}
	return gjson.ParseBytes(content), nil
}

func apiError(status int, content []byte) *APIError {
	detail := gjson.GetBytes(content, "errors.0.detail").String()
	if detail == "" {
		detail = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Detail: detail}
}

func envelope(attributes map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{"attributes": attributes},
	}
}

func withQuery(rawURL, query string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
