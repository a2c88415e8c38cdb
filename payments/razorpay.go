package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/nirmalhandloom/storebackend/config"
)

var (
	ErrNotConfigured = errors.New("payment gateway not configured")
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("payment gateway temporarily unavailable")
)

// GatewayOrder is the order object returned by Razorpay.
type GatewayOrder struct {
	ID         string `json:"id"`
	Entity     string `json:"entity"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	AmountDue  int64  `json:"amount_due"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	CreatedAt  int64  `json:"created_at"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.Status, e.Code, e.Description)
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Razorpay creates gateway orders over the REST API.
type Razorpay struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
	currency   string
	breaker    *gobreaker.CircuitBreaker[*GatewayOrder]
	logger     *slog.Logger
	now        func() time.Time
}

func NewRazorpay(cfg config.RazorpayConfig, logger *slog.Logger) *Razorpay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "INR"
	}

	settings := gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		// rejected requests are the caller's fault, not an outage
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Razorpay{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		currency:   currency,
		breaker:    gobreaker.NewCircuitBreaker[*GatewayOrder](settings),
		logger:     logger,
		now:        time.Now,
	}
}

// ToPaise converts a rupee amount to the smallest currency unit.
func ToPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

// CreateOrder creates a gateway order for amount rupees.
func (r *Razorpay) CreateOrder(ctx context.Context, amount float64) (*GatewayOrder, error) {
	if r.keyID == "" || r.keySecret == "" {
		return nil, ErrNotConfigured
	}
	paise := ToPaise(amount)
	if paise <= 0 {
		return nil, ErrInvalidAmount
	}

	req := createOrderRequest{
		Amount:   paise,
		Currency: r.currency,
		Receipt:  fmt.Sprintf("receipt_%d", r.now().UnixMilli()),
	}

	order, err := r.breaker.Execute(func() (*GatewayOrder, error) {
		return r.createOrder(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Razorpay) createOrder(ctx context.Context, body createOrderRequest) (*GatewayOrder, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(r.keyID, r.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read razorpay response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &envelope)
		r.logger.ErrorContext(ctx, "razorpay order creation failed",
			slog.Int("status", resp.StatusCode),
			slog.String("code", envelope.Error.Code),
		)
		return nil, &APIError{Status: resp.StatusCode, Code: envelope.Error.Code, Description: envelope.Error.Description}
	}

	var order GatewayOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("decode razorpay order: %w", err)
	}
	return &order, nil
}

// State returns the circuit breaker state.
func (r *Razorpay) State() gobreaker.State {
	return r.breaker.State()
}
