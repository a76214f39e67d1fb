package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/money"
)

const (
	ProviderFlutterwave       = "flutterwave"
	defaultFlutterwaveBaseURL = "https://api.flutterwave.com"
)

// Ensure FlutterwaveClient implements PaymentGateway
var _ PaymentGateway = (*FlutterwaveClient)(nil)

// FlutterwaveClient talks to the Flutterwave v3 standard checkout API.
type FlutterwaveClient struct {
	http    *resty.Client
	breaker *CircuitBreaker
	logger  *logging.Logger
}

type flutterwaveResponse[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type flutterwaveVerifyData struct {
	Status   string          `json:"status"`
	TxRef    string          `json:"tx_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Customer struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// NewFlutterwaveClient creates a new Flutterwave client.
func NewFlutterwaveClient(cfg config.PaymentConfig, logger *logging.Logger) *FlutterwaveClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultFlutterwaveBaseURL
	}

	return &FlutterwaveClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(cfg.Timeout).
			SetAuthToken(cfg.SecretKey).
			SetHeader("Accept", "application/json").
			SetRetryCount(0),
		breaker: NewCircuitBreaker("Flutterwave", logger),
		logger:  logger,
	}
}

func (c *FlutterwaveClient) Provider() string { return ProviderFlutterwave }

// Initialize creates a hosted payment link.
func (c *FlutterwaveClient) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	c.logger.Debug("Initializing Flutterwave payment", logging.Fields{
		"reference": req.Reference,
		"amount":    req.Amount.String(),
	})

	body := map[string]interface{}{
		"tx_ref":       req.Reference,
		"amount":       req.Amount.Float64(),
		"currency":     req.Currency,
		"redirect_url": req.CallbackURL,
		"customer":     map[string]string{"email": req.Email},
		"meta":         req.Metadata,
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out flutterwaveResponse[struct {
			Link string `json:"link"`
		}]
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			Post("/v3/payments")
		if err != nil {
			return nil, err
		}
		if resp.IsError() || out.Status != "success" {
			return nil, fmt.Errorf("flutterwave payments returned status %d: %s", resp.StatusCode(), out.Message)
		}
		return out.Data.Link, nil
	})
	if err != nil {
		c.logger.Error("Flutterwave initialize failed", logging.Fields{
			"reference": req.Reference,
			"error":     err.Error(),
		})
		return nil, err
	}

	return &InitializeResponse{AuthorizationURL: result.(string), Reference: req.Reference}, nil
}

// Verify looks the transaction up by tx_ref.
func (c *FlutterwaveClient) Verify(ctx context.Context, reference string) (*Verification, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out flutterwaveResponse[flutterwaveVerifyData]
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("tx_ref", reference).
			SetResult(&out).
			Get("/v3/transactions/verify_by_reference")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("flutterwave verify returned status %d", resp.StatusCode())
		}
		return &out.Data, nil
	})
	if err != nil {
		c.logger.Error("Flutterwave verify failed", logging.Fields{
			"reference": reference,
			"error":     err.Error(),
		})
		return nil, err
	}

	data := result.(*flutterwaveVerifyData)
	status := strings.ToLower(data.Status)
	return &Verification{
		Reference: reference,
		Paid:      status == "successful" || status == "completed",
		Status:    data.Status,
		Amount:    money.FromDecimal(data.Amount),
		Currency:  data.Currency,
		Email:     data.Customer.Email,
		Provider:  ProviderFlutterwave,
	}, nil
}
