// Package portone клиент REST API PortOne (iamport)
package portone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Freeeeeet/consult_booking/internal/apperr"
	"github.com/Freeeeeet/consult_booking/internal/gateway"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.iamport.kr"
	DefaultTimeout = 10 * time.Second

	// запас до истечения токена
	tokenSkew = time.Minute
)

// Коды ошибок шлюза
const (
	CodeUnavailable   = "PORTONE_UNAVAILABLE"
	CodeRejected      = "PORTONE_REJECTED"
	CodeBadResponse   = "PORTONE_BAD_RESPONSE"
	CodeMisconfigured = "PORTONE_MISCONFIGURED"
)

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client реализует gateway.Gateway
type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenStore
	logger *zap.Logger
}

var _ gateway.Gateway = (*Client)(nil)

func NewClient(cfg Config, tokens TokenStore, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		tokens: tokens,
		logger: logger,
	}
}

type envelope struct {
	Code     int             `json:"code"`
	Message  *string         `json:"message"`
	Response json.RawMessage `json:"response"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Now         int64  `json:"now"`
	ExpiredAt   int64  `json:"expired_at"`
}

type paymentResponse struct {
	ImpUID      string  `json:"imp_uid"`
	MerchantUID string  `json:"merchant_uid"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	PGProvider  string  `json:"pg_provider"`
	PayMethod   string  `json:"pay_method"`
	ReceiptURL  string  `json:"receipt_url"`
	CardName    string  `json:"card_name"`
	CardNumber  string  `json:"card_number"`
	PaidAt      int64   `json:"paid_at"`
}

type cancelBody struct {
	ImpUID      string `json:"imp_uid,omitempty"`
	MerchantUID string `json:"merchant_uid,omitempty"`
	Amount      int64  `json:"amount,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// GetPayment GET /payments/{imp_uid}
func (c *Client) GetPayment(ctx context.Context, impUID string) (*gateway.PaymentInfo, error) {
	if impUID == "" {
		return nil, apperr.Validation("IMP_UID_REQUIRED", "imp_uid is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var resp paymentResponse
	if err := c.authorized(ctx, http.MethodGet, "/payments/"+url.PathEscape(impUID), nil, &resp); err != nil {
		return nil, err
	}

	info := &gateway.PaymentInfo{
		ImpUID:      resp.ImpUID,
		MerchantUID: resp.MerchantUID,
		Status:      resp.Status,
		Amount:      int64(math.Round(resp.Amount)),
		PGProvider:  resp.PGProvider,
		PayMethod:   resp.PayMethod,
		ReceiptURL:  resp.ReceiptURL,
		CardBrand:   resp.CardName,
		CardLast4:   gateway.Last4(resp.CardNumber),
	}
	if resp.PaidAt > 0 {
		info.PaidAt = time.Unix(resp.PaidAt, 0).UTC()
	}

	c.logger.Info("PortOne payment fetched",
		zap.String("imp_uid", impUID),
		zap.String("status", info.Status),
		zap.Int64("amount", info.Amount),
		zap.String("card_last4", info.CardLast4),
	)

	return info, nil
}

// Cancel POST /payments/cancel
func (c *Client) Cancel(ctx context.Context, req gateway.CancelRequest) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := cancelBody{
		ImpUID:      req.ImpUID,
		MerchantUID: req.MerchantUID,
		Amount:      req.Amount,
		Reason:      req.Reason,
	}

	if err := c.authorized(ctx, http.MethodPost, "/payments/cancel", body, nil); err != nil {
		return err
	}

	c.logger.Info("PortOne payment cancelled",
		zap.String("imp_uid", req.ImpUID),
		zap.String("merchant_uid", req.MerchantUID),
		zap.Int64("amount", req.Amount),
	)

	return nil
}

// authorized выполняет запрос с токеном. На 401 токен сбрасывается, чтобы следующий вызов получил новый.
func (c *Client) authorized(ctx context.Context, method, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	status, err := c.do(ctx, method, path, token, body, out)
	if status == http.StatusUnauthorized {
		if derr := c.tokens.Delete(ctx); derr != nil {
			c.logger.Warn("Failed to drop PortOne token", zap.Error(derr))
		}
	}
	return err
}

func (c *Client) token(ctx context.Context) (string, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil {
		// кэш недоступен, берём токен напрямую
		c.logger.Warn("PortOne token cache unavailable", zap.Error(err))
	}
	if token != "" {
		return token, nil
	}

	if strings.TrimSpace(c.cfg.APIKey) == "" || strings.TrimSpace(c.cfg.APISecret) == "" {
		return "", apperr.Gateway(CodeMisconfigured, errors.New("portone credentials are empty"))
	}

	body := map[string]string{
		"imp_key":    strings.TrimSpace(c.cfg.APIKey),
		"imp_secret": strings.TrimSpace(c.cfg.APISecret),
	}

	var resp tokenResponse
	if _, err := c.do(ctx, http.MethodPost, "/users/getToken", "", body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", apperr.Gateway(CodeBadResponse, errors.New("access token missing"))
	}

	ttl := time.Duration(resp.ExpiredAt-resp.Now)*time.Second - tokenSkew
	if ttl > 0 {
		if err := c.tokens.Set(ctx, resp.AccessToken, ttl); err != nil {
			c.logger.Warn("Failed to cache PortOne token", zap.Error(err))
		}
	}

	return resp.AccessToken, nil
}

// do отправляет запрос и разбирает конверт {code, message, response}
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal portone request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build portone request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("PortOne request failed", zap.String("path", path), zap.Error(err))
		return 0, apperr.Gateway(CodeUnavailable, err)
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return res.StatusCode, apperr.Gateway(CodeBadResponse,
			fmt.Errorf("decode %s response (http %d): %w", path, res.StatusCode, err))
	}

	if env.Code != 0 || res.StatusCode >= http.StatusBadRequest {
		msg := ""
		if env.Message != nil {
			msg = *env.Message
		}
		c.logger.Warn("PortOne rejected request",
			zap.String("path", path),
			zap.Int("http_status", res.StatusCode),
			zap.Int("code", env.Code),
			zap.String("message", msg),
		)
		return res.StatusCode, apperr.Gateway(CodeRejected,
			fmt.Errorf("%s: http %d, code %d: %s", path, res.StatusCode, env.Code, msg))
	}

	if out == nil {
		return res.StatusCode, nil
	}
	if len(env.Response) == 0 || string(env.Response) == "null" {
		return res.StatusCode, apperr.Gateway(CodeBadResponse, fmt.Errorf("%s: empty response", path))
	}
	if err := json.Unmarshal(env.Response, out); err != nil {
		return res.StatusCode, apperr.Gateway(CodeBadResponse, fmt.Errorf("decode %s payload: %w", path, err))
	}

	return res.StatusCode, nil
}
