package clients

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/money"
)

const (
	ProviderPaystack       = "paystack"
	defaultPaystackBaseURL = "https://api.paystack.co"
)

// Ensure PaystackClient implements PaymentGateway
var _ PaymentGateway = (*PaystackClient)(nil)

// PaystackClient talks to the Paystack transaction API. Amounts cross the
// wire in kobo.
type PaystackClient struct {
	http    *resty.Client
	breaker *CircuitBreaker
	logger  *logging.Logger
}

type paystackEnvelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type paystackInitData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type paystackVerifyData struct {
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// NewPaystackClient creates a new Paystack client.
func NewPaystackClient(cfg config.PaymentConfig, logger *logging.Logger) *PaystackClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}

	return &PaystackClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(cfg.Timeout).
			SetAuthToken(cfg.SecretKey).
			SetHeader("Accept", "application/json").
			SetRetryCount(0),
		breaker: NewCircuitBreaker("Paystack", logger),
		logger:  logger,
	}
}

func (c *PaystackClient) Provider() string { return ProviderPaystack }

// Initialize starts a Paystack transaction.
func (c *PaystackClient) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	c.logger.Debug("Initializing Paystack transaction", logging.Fields{
		"reference": req.Reference,
		"amount":    req.Amount.String(),
	})

	body := map[string]interface{}{
		"email":        req.Email,
		"amount":       toKobo(req.Amount),
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
		"currency":     req.Currency,
		"metadata":     req.Metadata,
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out paystackEnvelope[paystackInitData]
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/transaction/initialize")
		if err != nil {
			return nil, err
		}
		if resp.IsError() || !out.Status {
			return nil, fmt.Errorf("paystack initialize returned status %d: %s", resp.StatusCode(), out.Message)
		}
		return &out.Data, nil
	})
	if err != nil {
		c.logger.Error("Paystack initialize failed", logging.Fields{
			"reference": req.Reference,
			"error":     err.Error(),
		})
		return nil, err
	}

	data := result.(*paystackInitData)
	ref := data.Reference
	if ref == "" {
		ref = req.Reference
	}
	return &InitializeResponse{AuthorizationURL: data.AuthorizationURL, Reference: ref}, nil
}

// Verify fetches the transaction for reference.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*Verification, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out paystackEnvelope[paystackVerifyData]
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&out).
			Get("/transaction/verify/" + url.PathEscape(reference))
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("paystack verify returned status %d", resp.StatusCode())
		}
		return &out.Data, nil
	})
	if err != nil {
		c.logger.Error("Paystack verify failed", logging.Fields{
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, err
	}

	data := result.(*paystackVerifyData)
	return &Verification{
		Reference: reference,
		Paid:      data.Status == "success",
		Status:    data.Status,
		Amount:    money.FromDecimal(decimal.New(data.Amount, -2)),
		Currency:  data.Currency,
		Email:     data.Customer.Email,
		Provider:  ProviderPaystack,
	}, nil
}

func toKobo(a money.Amount) int64 {
	return a.Decimal().Shift(2).Round(0).IntPart()
}
