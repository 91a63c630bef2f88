package payos

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VCongNam/CinemaGo-sub001/pkg/booking"
)

const (
	// DefaultBaseURL is the production merchant API endpoint.
	DefaultBaseURL = "https://api-merchant.payos.vn"

	defaultTimeout          = 15 * time.Second
	paymentRequestsPath     = "/v2/payment-requests"
	headerClientID          = "x-client-id"
	headerAPIKey            = "x-api-key"
	codeSuccess             = "00"
	codeInvalidParameters   = "20"
	codePaymentLinkNotFound = "101"
	maxResponseBytes        = 1 << 20
	defaultItemName         = "Ve xem phim"
)

// Config configures the gateway client.
type Config struct {
	ClientID    string
	APIKey      string
	ChecksumKey string
	BaseURL     string
	ReturnURL   string
	CancelURL   string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client talks to the PayOS merchant API and verifies its webhooks.
type Client struct {
	clientID    string
	apiKey      string
	checksumKey string
	baseURL     string
	returnURL   string
	cancelURL   string
	httpClient  *http.Client
}

// New validates credentials and returns a Client. Missing credentials are a configuration error.
func New(config Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(config.ClientID) == "" {
		missing = append(missing, "client id")
	}
	if strings.TrimSpace(config.APIKey) == "" {
		missing = append(missing, "api key")
	}
	if strings.TrimSpace(config.ChecksumKey) == "" {
		missing = append(missing, "checksum key")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", booking.ErrGatewayMisconfigured, strings.Join(missing, ", "))
	}
	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: base url: %v", booking.ErrGatewayMisconfigured, err)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		clientID:    config.ClientID,
		apiKey:      config.APIKey,
		checksumKey: config.ChecksumKey,
		baseURL:     baseURL,
		returnURL:   config.ReturnURL,
		cancelURL:   config.CancelURL,
		httpClient:  httpClient,
	}, nil
}

type paymentItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type createPaymentRequest struct {
	OrderCode   int64         `json:"orderCode"`
	Amount      int64         `json:"amount"`
	Description string        `json:"description"`
	CancelURL   string        `json:"cancelUrl"`
	ReturnURL   string        `json:"returnUrl"`
	Items       []paymentItem `json:"items"`
	Signature   string        `json:"signature"`
}

type envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature,omitempty"`
}

type createPaymentData struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	QRCode        string `json:"qrCode"`
	Status        string `json:"status"`
	OrderCode     int64  `json:"orderCode"`
	Amount        int64  `json:"amount"`
}

type paymentLinkData struct {
	ID         string `json:"id"`
	OrderCode  int64  `json:"orderCode"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amountPaid"`
	Status     string `json:"status"`
}

// CreatePaymentLink opens a checkout for the order.
func (client *Client) CreatePaymentLink(ctx context.Context, request booking.PaymentLinkRequest) (booking.PaymentLink, error) {
	amount := request.Amount.Int64()
	body := createPaymentRequest{
		OrderCode:   request.OrderCode,
		Amount:      amount,
		Description: request.Description,
		CancelURL:   client.cancelURL,
		ReturnURL:   client.returnURL,
		Items:       []paymentItem{{Name: defaultItemName, Quantity: 1, Price: amount}},
		Signature:   sign(client.checksumKey, PaymentRequestSignatureData(amount, client.cancelURL, request.Description, request.OrderCode, client.returnURL)),
	}
	response, err := client.do(ctx, http.MethodPost, paymentRequestsPath, body)
	if err != nil {
		return booking.PaymentLink{}, err
	}
	var data createPaymentData
	if err := json.Unmarshal(response.Data, &data); err != nil {
		return booking.PaymentLink{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Description: "malformed payment link response"}
	}
	if data.PaymentLinkID == "" || data.CheckoutURL == "" {
		return booking.PaymentLink{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Description: "payment link response missing link"}
	}
	return booking.PaymentLink{
		OrderCode:     request.OrderCode,
		PaymentLinkID: data.PaymentLinkID,
		CheckoutURL:   data.CheckoutURL,
		QRCode:        data.QRCode,
		Amount:        request.Amount,
		Status:        data.Status,
	}, nil
}

// GetPaymentLink returns the gateway status of a payment link.
func (client *Client) GetPaymentLink(ctx context.Context, paymentLinkID string) (booking.PaymentLinkStatus, error) {
	response, err := client.do(ctx, http.MethodGet, paymentRequestsPath+"/"+url.PathEscape(paymentLinkID), nil)
	if err != nil {
		return booking.PaymentLinkStatus{}, err
	}
	var data paymentLinkData
	if err := json.Unmarshal(response.Data, &data); err != nil {
		return booking.PaymentLinkStatus{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Description: "malformed payment link status"}
	}
	return booking.PaymentLinkStatus{
		PaymentLinkID: data.ID,
		OrderCode:     data.OrderCode,
		Amount:        booking.Money(data.Amount),
		AmountPaid:    booking.Money(data.AmountPaid),
		Status:        data.Status,
	}, nil
}

type webhookData struct {
	OrderCode     json.Number `json:"orderCode"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description"`
	Reference     string      `json:"reference"`
	PaymentLinkID string      `json:"paymentLinkId"`
	Code          string      `json:"code"`
	Desc          string      `json:"desc"`
}

// VerifyWebhook authenticates a webhook body and extracts the notification.
// Any malformed or unsigned payload fails with booking.ErrWebhookSignature.
func (client *Client) VerifyWebhook(payload []byte) (booking.WebhookNotification, error) {
	var body envelope
	if err := json.Unmarshal(payload, &body); err != nil {
		return booking.WebhookNotification{}, fmt.Errorf("%w: malformed payload", booking.ErrWebhookSignature)
	}
	if body.Signature == "" || len(body.Data) == 0 {
		return booking.WebhookNotification{}, fmt.Errorf("%w: missing signature or data", booking.ErrWebhookSignature)
	}
	expected, err := SignWebhookData(client.checksumKey, body.Data)
	if err != nil {
		return booking.WebhookNotification{}, fmt.Errorf("%w: %v", booking.ErrWebhookSignature, err)
	}
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(body.Signature))) {
		return booking.WebhookNotification{}, fmt.Errorf("%w: signature mismatch", booking.ErrWebhookSignature)
	}
	decoder := json.NewDecoder(bytes.NewReader(body.Data))
	decoder.UseNumber()
	var data webhookData
	if err := decoder.Decode(&data); err != nil {
		return booking.WebhookNotification{}, fmt.Errorf("%w: malformed data", booking.ErrWebhookSignature)
	}
	orderCode, err := data.OrderCode.Int64()
	if err != nil {
		return booking.WebhookNotification{}, fmt.Errorf("%w: order code", booking.ErrWebhookSignature)
	}
	amount, err := data.Amount.Int64()
	if err != nil {
		return booking.WebhookNotification{}, fmt.Errorf("%w: amount", booking.ErrWebhookSignature)
	}
	code := data.Code
	if code == "" {
		code = body.Code
	}
	description := data.Desc
	if description == "" {
		description = body.Desc
	}
	return booking.WebhookNotification{
		Code:          code,
		Description:   description,
		OrderCode:     orderCode,
		Amount:        booking.Money(amount),
		PaymentLinkID: data.PaymentLinkID,
		Reference:     data.Reference,
		Raw:           payload,
	}, nil
}

func (client *Client) do(ctx context.Context, method string, path string, body any) (envelope, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return envelope{}, fmt.Errorf("encode gateway request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return envelope{}, fmt.Errorf("build gateway request: %w", err)
	}
	request.Header.Set(headerClientID, client.clientID)
	request.Header.Set(headerAPIKey, client.apiKey)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return envelope{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Description: err.Error()}
	}
	defer response.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes))
	if err != nil {
		return envelope{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Description: err.Error()}
	}
	var decoded envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return envelope{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Description: fmt.Sprintf("http %d: malformed response", response.StatusCode)}
	}
	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return envelope{}, booking.GatewayError{Kind: booking.ErrGatewayMisconfigured, Code: decoded.Code, Description: decoded.Desc}
	}
	if response.StatusCode >= http.StatusInternalServerError {
		return envelope{}, booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Code: decoded.Code, Description: fmt.Sprintf("http %d", response.StatusCode)}
	}
	if decoded.Code != codeSuccess {
		return envelope{}, classify(decoded)
	}
	return decoded, nil
}

func classify(response envelope) error {
	switch {
	case response.Code == codeInvalidParameters, strings.Contains(strings.ToLower(response.Desc), "description"):
		return booking.GatewayError{Kind: booking.ErrGatewayRejected, Code: response.Code, Description: response.Desc}
	case response.Code == codePaymentLinkNotFound:
		return booking.GatewayError{Kind: booking.ErrPaymentLinkNotFound, Code: response.Code, Description: response.Desc}
	default:
		return booking.GatewayError{Kind: booking.ErrGatewayUnavailable, Code: response.Code, Description: response.Desc}
	}
}

var _ booking.PaymentGateway = (*Client)(nil)

// IsRetryable reports whether a gateway error is worth retrying later.
func IsRetryable(err error) bool {
	return errors.Is(err, booking.ErrGatewayUnavailable)
}
