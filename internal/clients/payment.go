package clients

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/money"
)

// PaymentGateway starts and verifies hosted checkout payments.
type PaymentGateway interface {
	Provider() string
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// InitializeRequest describes a hosted checkout session.
type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      money.Amount
	Currency    string
	CallbackURL string
	Metadata    map[string]string
}

// InitializeResponse carries the URL the customer is redirected to.
type InitializeResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	Reference        string `json:"reference"`
}

// Verification is the provider's view of a payment.
type Verification struct {
	Reference string
	Paid      bool
	Status    string
	Amount    money.Amount
	Currency  string
	Email     string
	Provider  string
}

// NewReference returns a fresh payment reference.
func NewReference() string {
	return "sachio_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewPaymentGateway builds the gateway named by cfg.Provider.
func NewPaymentGateway(cfg config.PaymentConfig, logger *logging.Logger) (PaymentGateway, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderPaystack:
		return NewPaystackClient(cfg, logger), nil
	case ProviderFlutterwave:
		return NewFlutterwaveClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}

// CallbackResult is what the checkout redirect URL says about a payment.
type CallbackResult struct {
	Reference string
	Success   bool
}

// ParseCallbackURL inspects the URL the hosted checkout redirected to.
// Paystack appends reference (and trxref); Flutterwave appends tx_ref and
// status. A URL with a reference and no failing status counts as success.
// Success here only means the caller should verify; it is not proof of payment.
func ParseCallbackURL(raw string) (CallbackResult, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return CallbackResult{}, err
	}
	q := u.Query()

	ref := q.Get("reference")
	if ref == "" {
		ref = q.Get("trxref")
	}
	if ref == "" {
		ref = q.Get("tx_ref")
	}
	if ref == "" {
		return CallbackResult{}, nil
	}

	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	switch status {
	case "", "success", "successful", "completed":
		return CallbackResult{Reference: ref, Success: true}, nil
	default:
		return CallbackResult{Reference: ref}, nil
	}
}
