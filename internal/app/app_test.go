//go:build integration

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/pkg/health"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())
}

type client struct {
	t    *testing.T
	base string
}

func (c *client) call(method, path, credential string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	if credential != "" {
		req.Header.Set("Authorization", credential)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAPI_CouponRedemptionScenario(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		DatabaseURL:  startPostgres(t),
		APIKeyPepper: "pepper",
		JWT:          JWTConfig{Secret: "secret", TTL: time.Hour},
		Tx:           TxConfig{MaxRetries: 5},
	}

	pool, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	svc, err := NewServices(pool, noopTelemetry{}, cfg)
	require.NoError(t, err)

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", time.Second, health.PingCheck(pool))
	healthSvc.SetReady(true)

	srv := httptest.NewServer(NewRouter(zap.NewNop(), noopTelemetry{}, svc, healthSvc))
	t.Cleanup(srv.Close)
	c := &client{t: t, base: srv.URL}

	code, _ := c.call(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, code)

	// Account.
	code, body := c.call(http.MethodPost, "/api/register", "", map[string]any{
		"name": "Ann", "email": "ann@example.com", "password": "secret-pw", "address": "1 Main St", "phone": "555",
	})
	require.Equal(t, http.StatusCreated, code, body)
	apiKey := body["api_key"].(string)
	userID := body["user_id"]

	code, body = c.call(http.MethodPost, "/api/register", "", map[string]any{
		"name": "Ann", "email": "ann@example.com", "password": "x", "address": "x", "phone": "x",
	})
	require.Equal(t, http.StatusConflict, code, body)

	code, body = c.call(http.MethodPost, "/api/login", "", map[string]any{
		"email": "ann@example.com", "password": "secret-pw",
	})
	require.Equal(t, http.StatusOK, code, body)
	bearer := "Bearer " + body["token"].(string)

	code, body = c.call(http.MethodGet, "/api/me", bearer, nil)
	require.Equal(t, http.StatusOK, code, body)
	require.Equal(t, "ann@example.com", body["user"].(map[string]any)["email"])

	// Catalog and grant.
	code, body = c.call(http.MethodPost, "/api/coupons", "", map[string]any{
		"code": "WELCOME5", "name": "Welcome", "discount_type": "cash", "discount_detail": "5",
	})
	require.Equal(t, http.StatusCreated, code, body)

	code, _ = c.call(http.MethodPost, "/api/coupons", "", map[string]any{
		"code": "WELCOME5", "name": "Again", "discount_type": "cash", "discount_detail": "5",
	})
	require.Equal(t, http.StatusConflict, code)

	code, body = c.call(http.MethodPost, "/api/usercoupons", "", map[string]any{
		"coupon_code": "WELCOME5", "user_id": userID, "expires_at": "2025-31-01 23:59:59",
	})
	require.Equal(t, http.StatusBadRequest, code, body)

	code, body = c.call(http.MethodPost, "/api/usercoupons", "", map[string]any{
		"coupon_code": "WELCOME5", "user_id": userID, "expires_at": "2099-01-31 23:59:59",
	})
	require.Equal(t, http.StatusCreated, code, body)
	grantID := int64(body["user_coupon_id"].(float64))

	// Redemption.
	order := map[string]any{
		"name": "Ann", "email": "ann@example.com", "address": "1 Main St", "phone": "555",
		"amount": "20.00", "user_coupon_id": grantID,
	}
	code, body = c.call(http.MethodPost, "/api/orders", apiKey, order)
	require.Equal(t, http.StatusCreated, code, body)
	orderID := body["order_id"]

	code, body = c.call(http.MethodGet, fmt.Sprintf("/api/usercoupons/%d", grantID), apiKey, nil)
	require.Equal(t, http.StatusOK, code, body)
	grant := body["usercoupon"].(map[string]any)
	require.Equal(t, "Used", grant["status"])
	require.Equal(t, orderID, grant["order_id"])
	require.Equal(t, "2099-01-31 23:59:59", grant["expires_at"])

	code, body = c.call(http.MethodPost, "/api/orders", apiKey, order)
	require.Equal(t, http.StatusUnprocessableEntity, code, body)
	require.Equal(t, true, body["error"])

	code, body = c.call(http.MethodGet, "/api/orders", apiKey, nil)
	require.Equal(t, http.StatusOK, code, body)
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].(map[string]any)["user_coupon"])

	// Unauthenticated access.
	code, _ = c.call(http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.call(http.MethodGet, "/api/orders", "not-a-key", nil)
	require.Equal(t, http.StatusUnauthorized, code)
}
