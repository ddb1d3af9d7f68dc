package router

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"vipclub/config"
	"vipclub/internal/auth"
	"vipclub/internal/database"
	"vipclub/internal/models"
	"vipclub/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingProvider struct{}

func (failingProvider) CreateCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	return nil, &payment.GatewayError{StatusCode: http.StatusServiceUnavailable, Body: "down"}
}

func (failingProvider) GetCharge(ctx context.Context, ref string) (*payment.Charge, error) {
	return nil, errors.New("down")
}

type app struct {
	t      *testing.T
	cfg    *config.Config
	db     *gorm.DB
	svc    *Services
	engine *gin.Engine
}

func newApp(t *testing.T, provider payment.Provider, tweak func(*config.Config)) *app {
	t.Helper()
	db, err := database.OpenMemory(uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"
	if tweak != nil {
		tweak(cfg)
	}
	if provider == nil {
		provider = payment.NewStubProvider()
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewServices(cfg, db, Deps{Provider: provider, Logger: logger})
	return &app{t: t, cfg: cfg, db: db, svc: svc, engine: Setup(cfg, db, svc, nil, logger)}
}

func (a *app) bearer(userID string) string {
	tok, err := auth.GenerateAccessToken(&a.cfg.JWT, userID, userID+"@example.com", "authenticated")
	require.NoError(a.t, err)
	return tok
}

func (a *app) do(method, path, userID string, body interface{}, headers ...string) (int, map[string]interface{}) {
	a.t.Helper()
	var r io.Reader
	if raw, ok := body.([]byte); ok {
		r = bytes.NewReader(raw)
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.bearer(userID))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	out := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func (a *app) seedTokens(n int) {
	a.t.Helper()
	_, err := a.svc.Tokens.Generate("", n)
	require.NoError(a.t, err)
}

func (a *app) initiate(userID string, body map[string]interface{}) string {
	a.t.Helper()
	code, out := a.do(http.MethodPost, "/api/v1/payments/pix", userID, body)
	require.Equal(a.t, http.StatusCreated, code, out)
	id, _ := out["external_id"].(string)
	require.NotEmpty(a.t, id)
	return id
}

func (a *app) usedTokens() int64 {
	var n int64
	require.NoError(a.t, a.db.Model(&models.Token{}).Where("is_used = ?", true).Count(&n).Error)
	return n
}

func TestHealthz(t *testing.T) {
	a := newApp(t, nil, nil)
	code, out := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
}

func TestPurchaseFlow_WebhookThenPoll(t *testing.T) {
	a := newApp(t, nil, nil)
	a.seedTokens(3)

	id := a.initiate("user-1", map[string]interface{}{"amount": 25000})

	code, out := a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "user-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", out["status"])
	assert.Nil(t, out["token"])

	code, out = a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{"external_id": id, "status": "paid"})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "approved", out["status"])

	code, out = a.do(http.MethodPost, "/api/v1/payments/pix/status", "user-1", map[string]interface{}{"externalId": id})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "approved", out["status"])
	assert.NotEmpty(t, out["token"])
	assert.Equal(t, true, out["token_redeemed"])
	assert.Equal(t, float64(25000), out["amount_cents"])

	code, out = a.do(http.MethodGet, "/api/v1/me/vip", "user-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["is_vip"])

	code, _ = a.do(http.MethodGet, "/api/v1/vip/access", "user-1", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestWebhook_DuplicateDeliverySettlesOnce(t *testing.T) {
	a := newApp(t, nil, nil)
	a.seedTokens(3)
	id := a.initiate("user-1", nil)

	for i := 0; i < 3; i++ {
		code, _ := a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{
			"event": "charge.paid",
			"data":  map[string]interface{}{"status": "PAID", "metadata": map[string]string{"external_id": id}},
		})
		require.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int64(1), a.usedTokens())

	_, first := a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "user-1", nil)
	_, second := a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "user-1", nil)
	assert.Equal(t, first["token"], second["token"])
}

func TestWebhook_UnknownTransaction(t *testing.T) {
	a := newApp(t, nil, nil)
	code, _ := a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{"external_id": "pix-missing", "status": "paid"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{"external_id": "pix-missing"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWebhook_Signature(t *testing.T) {
	a := newApp(t, nil, func(c *config.Config) { c.Payment.WebhookSecret = "whsec" })
	a.seedTokens(1)
	id := a.initiate("user-1", nil)
	body, _ := json.Marshal(map[string]string{"external_id": id, "status": "approved"})

	code, _ := a.do(http.MethodPost, "/api/v1/webhooks/pix", "", body)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodPost, "/api/v1/webhooks/pix", "", body, "X-Webhook-Signature", "sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, int64(0), a.usedTokens())

	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(body)
	code, _ = a.do(http.MethodPost, "/api/v1/webhooks/pix", "", body, "X-Webhook-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(1), a.usedTokens())
}

func TestInitiate_GatewayFailureStoresNothing(t *testing.T) {
	a := newApp(t, failingProvider{}, nil)
	code, out := a.do(http.MethodPost, "/api/v1/payments/pix", "user-1", map[string]interface{}{"amount": 2500})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, false, out["success"])

	var n int64
	require.NoError(t, a.db.Model(&models.Transaction{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestInitiate_Validation(t *testing.T) {
	a := newApp(t, nil, nil)

	code, _ := a.do(http.MethodPost, "/api/v1/payments/pix", "user-1", map[string]interface{}{"amount": 50})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = a.do(http.MethodPost, "/api/v1/payments/pix", "user-1", map[string]interface{}{"payer": map[string]string{"document": "111.111.111-11"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/v1/payments/pix", "user-1", map[string]interface{}{"payer": map[string]string{"document": "529.982.247-25"}})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = a.do(http.MethodPost, "/api/v1/payments/pix", "user-1", map[string]interface{}{"userId": "user-2"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(http.MethodPost, "/api/v1/payments/pix", "", map[string]interface{}{"userId": "user-2"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestInitiate_RequireAuth(t *testing.T) {
	a := newApp(t, nil, func(c *config.Config) { c.Payment.RequireAuth = true })
	code, _ := a.do(http.MethodPost, "/api/v1/payments/pix", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestGuestPurchase_ReservedTokenRedeemedLater(t *testing.T) {
	a := newApp(t, nil, nil)
	a.seedTokens(2)
	id := a.initiate("", nil)

	code, _ := a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{"external_id": id, "status": "completed"})
	require.Equal(t, http.StatusOK, code)

	code, out := a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	token, _ := out["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, false, out["token_redeemed"])

	code, out = a.do(http.MethodPost, "/api/v1/tokens/redeem", "user-9", map[string]string{"token": token})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["success"])

	code, out = a.do(http.MethodPost, "/api/v1/tokens/redeem", "user-10", map[string]string{"token": token})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token", out["message"])
}

func TestRedeem_InvalidAndUnauthenticated(t *testing.T) {
	a := newApp(t, nil, nil)
	code, out := a.do(http.MethodPost, "/api/v1/tokens/redeem", "user-1", map[string]string{"token": "NOPE-NOPE"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid token", out["message"])

	code, _ = a.do(http.MethodPost, "/api/v1/tokens/redeem", "", map[string]string{"token": "NOPE-NOPE"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestPoll_OtherUsersTransactionIsHidden(t *testing.T) {
	a := newApp(t, nil, nil)
	id := a.initiate("owner", nil)

	code, _ := a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "intruder", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.do(http.MethodGet, "/api/v1/payments/pix/"+id, "owner", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRoulette_SpinOnce(t *testing.T) {
	a := newApp(t, nil, nil)
	id := a.initiate("player", map[string]interface{}{"purpose": "roulette"})

	code, _ := a.do(http.MethodPost, "/api/v1/roulette/spin", "player", map[string]string{"transactionExternalId": id})
	assert.Equal(t, http.StatusConflict, code, "pending payment cannot be spent")

	code, _ = a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{"external_id": id, "status": "paid"})
	require.Equal(t, http.StatusOK, code)
	assert.Zero(t, a.usedTokens())

	code, _ = a.do(http.MethodPost, "/api/v1/roulette/spin", "someone-else", map[string]string{"transactionExternalId": id})
	assert.Equal(t, http.StatusNotFound, code)

	code, out := a.do(http.MethodPost, "/api/v1/roulette/spin", "player", map[string]string{"transaction_external_id": id})
	require.Equal(t, http.StatusOK, code, out)
	assert.Contains(t, []interface{}{"win", "lose"}, out["result"])

	code, out = a.do(http.MethodPost, "/api/v1/roulette/spin", "player", map[string]string{"transactionExternalId": id})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already used", out["error"])
}

func TestAdminRoutes(t *testing.T) {
	a := newApp(t, nil, nil)

	code, _ := a.do(http.MethodPost, "/api/v1/admin/tokens", "", map[string]int{"count": 5})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.do(http.MethodPost, "/api/v1/admin/tokens", "member", map[string]int{"count": 5})
	assert.Equal(t, http.StatusForbidden, code)

	require.NoError(t, a.svc.Profiles.SetAdmin("boss", true))

	code, out := a.do(http.MethodPost, "/api/v1/admin/tokens", "boss", map[string]int{"count": 5})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, float64(5), out["count"])

	code, out = a.do(http.MethodGet, "/api/v1/admin/tokens/stats", "boss", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5), out["available"])

	code, out = a.do(http.MethodPost, "/api/v1/admin/users/member/vip", "boss", map[string]int{"days": 10})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["is_vip"])

	code, _ = a.do(http.MethodDelete, "/api/v1/admin/users/member/vip", "boss", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodGet, "/api/v1/vip/access", "member", nil)
	assert.Equal(t, http.StatusForbidden, code)

	id := a.initiate("member", nil)
	code, out = a.do(http.MethodGet, "/api/v1/admin/transactions?status=pending", "boss", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["total"])

	code, out = a.do(http.MethodPost, "/api/v1/admin/transactions/"+id+"/reconcile", "boss", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", out["status"])
}

func TestNotifications(t *testing.T) {
	a := newApp(t, nil, nil)
	a.seedTokens(1)
	id := a.initiate("user-1", nil)
	code, _ := a.do(http.MethodPost, "/api/v1/webhooks/pix", "", map[string]interface{}{"external_id": id, "status": "paid"})
	require.Equal(t, http.StatusOK, code)

	code, out := a.do(http.MethodGet, "/api/v1/me/notifications", "user-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["total"])

	code, _ = a.do(http.MethodPost, "/api/v1/me/fcm-token", "user-1", map[string]string{"token": "device-1"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = a.do(http.MethodPost, "/api/v1/me/notifications/abc/read", "user-1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestNewProviderAndLimiter(t *testing.T) {
	cfg := config.Default()
	p, err := NewProvider(cfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &payment.StubProvider{}, p)

	cfg.Gateway.Provider = "carrier-pigeon"
	_, err = NewProvider(cfg, slog.Default())
	assert.Error(t, err)

	l, err := NewLimiter(cfg)
	require.NoError(t, err)
	assert.NotNil(t, l)

	cfg.RateLimit.Backend = "redis"
	cfg.Redis.URL = "not a url"
	_, err = NewLimiter(cfg)
	assert.Error(t, err)
}
