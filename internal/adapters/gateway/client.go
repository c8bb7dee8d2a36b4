package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/pkg/encoding"
	httpclient "github.com/kevin07696/chit-service/pkg/http"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/resilience"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// Config holds the gateway credentials and endpoint
type Config struct {
	BaseURL   string // e.g. https://api.gateway.example/v1
	KeyID     string
	KeySecret string

	Timeouts    *resilience.TimeoutConfig
	MaxAttempts int // attempts for idempotent reads
}

// Validate checks the settings needed to call the gateway
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid gateway base URL: %w", err)
	}
	if c.KeyID == "" || c.KeySecret == "" {
		return fmt.Errorf("gateway key id and secret are required")
	}
	return nil
}

// Client implements ports.PaymentGateway over the gateway's HTTP API.
// Amounts travel in minor units (paise).
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	backoff    resilience.BackoffStrategy
	logger     *zap.Logger
}

var _ ports.PaymentGateway = (*Client)(nil)

// NewClient creates a gateway client with a pooled HTTP client and a circuit breaker
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = resilience.DefaultTimeoutConfig()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	breakerCfg := resilience.DefaultCircuitBreakerConfig("payment_gateway")
	breakerCfg.IsFailure = isTransient
	breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
		logger.Warn("Circuit breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpclient.NewClient(httpclient.GatewayPoolConfig(), cfg.Timeouts.SingleRetry),
		breaker:    resilience.NewCircuitBreaker(breakerCfg),
		backoff:    resilience.DefaultExponentialBackoff(),
		logger:     logger,
	}, nil
}

type orderPayload struct {
	ID       string            `json:"id,omitempty"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Status   string            `json:"status,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type errorPayload struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// statusError is a non-2xx gateway response
type statusError struct {
	Status  int
	Code    string
	Message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway returned %d %s: %s", e.Status, e.Code, e.Message)
}

// isTransient reports errors worth retrying and counting against the breaker
func isTransient(err error) bool {
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusTooManyRequests
	}
	return !errors.Is(err, context.Canceled)
}

// CreateOrder opens a checkout order. It is not retried because a lost
// response would otherwise open a second order.
func (c *Client) CreateOrder(ctx context.Context, req *ports.OrderRequest) (*ports.Order, error) {
	ctx, cancel := c.cfg.Timeouts.ExternalAPIContext(ctx)
	defer cancel()

	body := orderPayload{
		Amount:   toMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	}

	var out orderPayload
	err := c.call(ctx, "create_order", func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, "/orders", body, &out)
	})
	if err != nil {
		return nil, c.gatewayError("create order", err)
	}

	c.logger.Info("Gateway order created",
		zap.String("order_id", out.ID),
		zap.String("receipt", req.Receipt),
		zap.String("amount", req.Amount.String()),
	)
	return out.toOrder(), nil
}

// GetOrder fetches an order, retrying transient failures
func (c *Client) GetOrder(ctx context.Context, orderID string) (*ports.Order, error) {
	if orderID == "" {
		return nil, domain.NewValidationError("order_id", "must not be empty")
	}

	ctx, cancel := c.cfg.Timeouts.ExternalAPIContext(ctx)
	defer cancel()

	var out orderPayload
	err := resilience.Retry(ctx, c.backoff, c.cfg.MaxAttempts, isTransient, func(ctx context.Context) error {
		return c.call(ctx, "get_order", func(ctx context.Context) error {
			return c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &out)
		})
	})
	if err != nil {
		return nil, c.gatewayError("get order", err)
	}
	return out.toOrder(), nil
}

// Verify checks the checkout signature locally; no network call is made
func (c *Client) Verify(ctx context.Context, req *ports.VerifyRequest) (*ports.VerificationResult, error) {
	start := time.Now()
	result := &ports.VerificationResult{Verified: true}

	expected := Sign(c.cfg.KeySecret, req.OrderID, req.PaymentID)
	given, err := hex.DecodeString(req.Signature)
	if err != nil || !hmac.Equal(expected, given) {
		result = &ports.VerificationResult{Verified: false, Reason: "signature mismatch"}
		c.logger.Warn("Gateway signature mismatch",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
	}

	observability.RecordGatewayCall("verify", verifyStatus(result), time.Since(start).Seconds())
	return result, nil
}

// Sign computes HMAC-SHA256(secret, orderID + "|" + paymentID)
func Sign(secret, orderID, paymentID string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return mac.Sum(nil)
}

// SignHex is Sign encoded the way the checkout returns it
func SignHex(secret, orderID, paymentID string) string {
	return hex.EncodeToString(Sign(secret, orderID, paymentID))
}

// call runs one attempt through the breaker and records its latency
func (c *Client) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := c.cfg.Timeouts.RetryAttemptContext(ctx)
		defer cancel()
		return fn(attemptCtx)
	})
	observability.RecordGatewayCall(operation, callStatus(err), time.Since(start).Seconds())
	return err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := encoding.EncodeJSON(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &statusError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var ep errorPayload
		if json.Unmarshal(raw, &ep) == nil && ep.Error.Description != "" {
			se.Code = ep.Error.Code
			se.Message = ep.Error.Description
		}
		return se
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) gatewayError(op string, err error) error {
	c.logger.Error("Gateway request failed", zap.String("operation", op), zap.Error(err))

	e := domain.WrapError(domain.ErrorCodeGatewayError, "payment gateway "+op+" failed", err).
		WithRemediation("retry shortly; the payment gateway is unavailable")
	e.Retryable = isTransient(err) || errors.Is(err, resilience.ErrCircuitOpen)
	return e
}

func (p *orderPayload) toOrder() *ports.Order {
	return &ports.Order{
		ID:       p.ID,
		Amount:   fromMinorUnits(p.Amount),
		Currency: p.Currency,
		Receipt:  p.Receipt,
		Status:   p.Status,
		Notes:    p.Notes,
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		return "circuit_open"
	}
	return "error"
}

func verifyStatus(r *ports.VerificationResult) string {
	if r.Verified {
		return "ok"
	}
	return "rejected"
}
