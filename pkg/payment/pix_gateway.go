package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PixGatewayProvider talks to the PIX gateway's REST API with a bearer API key.
type PixGatewayProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
	log     *slog.Logger
}

func NewPixGatewayProvider(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *PixGatewayProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PixGatewayProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// FormatBRL renders cents as the gateway's decimal amount, e.g. 2500 -> "25.00".
func FormatBRL(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

type pixPayer struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Document string `json:"document,omitempty"`
}

type pixChargeReq struct {
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	ExternalID  string            `json:"external_id"`
	Description string            `json:"description,omitempty"`
	Payer       *pixPayer         `json:"payer,omitempty"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
	ExpiresIn   int64             `json:"expires_in,omitempty"` // seconds
	Metadata    map[string]string `json:"metadata"`
}

// pixChargeResp accepts the field spellings seen across gateway versions.
type pixChargeResp struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	ExternalID    string `json:"external_id"`
	Status        string `json:"status"`
	QRCode        string `json:"qr_code"`
	PixCopyPaste  string `json:"pix_copy_paste"`
	QRCodeImage   string `json:"qr_code_image"`
	QRCodeBase64  string `json:"qr_code_base64"`
	ExpiresAt     string `json:"expires_at"`
	Data          *struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		QRCode       string `json:"qr_code"`
		QRCodeBase64 string `json:"qr_code_base64"`
	} `json:"data"`
}

func (r *pixChargeResp) toCharge() *Charge {
	c := &Charge{
		GatewayReference: firstNonEmpty(r.ID, r.TransactionID),
		ExternalID:       r.ExternalID,
		Status:           r.Status,
		QRCode:           firstNonEmpty(r.QRCode, r.PixCopyPaste),
		QRCodeImage:      firstNonEmpty(r.QRCodeImage, r.QRCodeBase64),
	}
	if r.Data != nil {
		c.GatewayReference = firstNonEmpty(c.GatewayReference, r.Data.ID)
		c.Status = firstNonEmpty(c.Status, r.Data.Status)
		c.QRCode = firstNonEmpty(c.QRCode, r.Data.QRCode)
		c.QRCodeImage = firstNonEmpty(c.QRCodeImage, r.Data.QRCodeBase64)
	}
	if t, err := time.Parse(time.RFC3339, r.ExpiresAt); err == nil {
		c.ExpiresAt = t
	}
	return c
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p *PixGatewayProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := pixChargeReq{
		Amount:      FormatBRL(req.AmountCents),
		Currency:    "BRL",
		ExternalID:  req.ExternalID,
		Description: req.Description,
		WebhookURL:  req.WebhookURL,
		ExpiresIn:   int64(req.ExpiresIn / time.Second),
		Metadata: map[string]string{
			"external_id": req.ExternalID,
			"user_id":     req.UserID,
		},
	}
	if req.Payer != (Payer{}) {
		payload.Payer = &pixPayer{Name: req.Payer.Name, Email: req.Payer.Email, Document: req.Payer.Document}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/pix/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	p.log.Info("[PIX] create charge", "url", p.BaseURL+"/pix/charges", "external_id", req.ExternalID, "amount", payload.Amount)

	var out pixChargeResp
	if err := p.do(apiReq, &out); err != nil {
		return nil, err
	}
	c := out.toCharge()
	if c.GatewayReference == "" || c.QRCode == "" {
		return nil, fmt.Errorf("pix gateway: malformed charge response for %s", req.ExternalID)
	}
	if c.ExternalID == "" {
		c.ExternalID = req.ExternalID
	}
	return c, nil
}

func (p *PixGatewayProvider) GetCharge(ctx context.Context, gatewayReference string) (*Charge, error) {
	endpoint := p.BaseURL + "/pix/charges/" + url.PathEscape(gatewayReference)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	var out pixChargeResp
	if err := p.do(apiReq, &out); err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode == http.StatusNotFound {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	c := out.toCharge()
	if c.GatewayReference == "" {
		c.GatewayReference = gatewayReference
	}
	return c, nil
}

// do sends the request, logs the raw answer, and decodes a 200/201 body into out.
func (p *PixGatewayProvider) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error("[PIX] request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return fmt.Errorf("pix gateway: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	p.log.Info("[PIX] response", "method", req.Method, "status", resp.StatusCode, "body", string(respBody))
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &GatewayError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("pix gateway: decode response: %w", err)
	}
	return nil
}
