package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ogurasousui/stockly/internal/core/nfe"
	"github.com/ogurasousui/stockly/internal/core/notification"
	"github.com/ogurasousui/stockly/internal/platform/config"
)

const testAccessKey = "35250611222333000181550010000012341000000014"

func endpoint(url string) config.EndpointConfig {
	return config.EndpointConfig{BaseURL: url, Token: "secret", Timeout: 2 * time.Second}
}

func TestNFeGateway_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/nfe/"+testAccessKey+"/xml", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte("<nfeProc/>"))
	}))
	defer srv.Close()

	gw := NewNFeGateway(endpoint(srv.URL), zap.NewNop())
	raw, err := gw.Lookup(context.Background(), testAccessKey)
	require.NoError(t, err)
	assert.Equal(t, "<nfeProc/>", string(raw))
}

func TestNFeGateway_Lookup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gw := NewNFeGateway(endpoint(srv.URL), zap.NewNop())
	_, err := gw.Lookup(context.Background(), testAccessKey)
	assert.ErrorIs(t, err, nfe.ErrInvoiceNotFound)
}

func TestNFeGateway_Lookup_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("<nfeProc/>"))
	}))
	defer srv.Close()

	cfg := endpoint(srv.URL)
	cfg.RetryCount = 1
	gw := NewNFeGateway(cfg, zap.NewNop())

	_, err := gw.Lookup(context.Background(), testAccessKey)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestNFeGateway_Lookup_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	gw := NewNFeGateway(endpoint(srv.URL), zap.NewNop())
	_, err := gw.Lookup(context.Background(), testAccessKey)
	assert.ErrorIs(t, err, nfe.ErrGatewayUnavailable)
}

func TestNFeGateway_Manifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/nfe/"+testAccessKey+"/manifest", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "confirmacao", body["event"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	gw := NewNFeGateway(endpoint(srv.URL), zap.NewNop())
	require.NoError(t, gw.Manifest(context.Background(), testAccessKey, nfe.ManifestConfirmed))
}

func TestOCRClient_ExtractFromDANFE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_key": "3525 0611 2223 3300 0181 5500 1000 0012 3410 0000 0014",
			"number": "1234",
			"series": "1",
			"emitter_cnpj": "11.222.333/0001-81",
			"emitter_name": " Fornecedor Ltda ",
			"issued_at": "2025-06-02",
			"total_value": "1520.75",
			"confidence": 0.92
		}`))
	}))
	defer srv.Close()

	client := NewOCRClient(endpoint(srv.URL), zap.NewNop())
	got, err := client.ExtractFromDANFE(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)

	assert.Equal(t, testAccessKey, got.AccessKey)
	assert.Equal(t, "11222333000181", got.EmitterCNPJ)
	assert.Equal(t, "Fornecedor Ltda", got.EmitterName)
	require.NotNil(t, got.IssuedAt)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), *got.IssuedAt)
	require.NotNil(t, got.TotalValue)
	assert.Equal(t, "1520.75", got.TotalValue.String())
	assert.InDelta(t, 0.92, got.Confidence, 1e-9)
}

func TestMailer_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		var body sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alertas@stockly.example", body.From)
		assert.Equal(t, []string{"sst@acme.example"}, body.To)
		assert.Equal(t, "Assunto", body.Subject)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1"}`))
	}))
	defer srv.Close()

	mailer := NewMailer(config.EmailConfig{EndpointConfig: endpoint(srv.URL), From: "alertas@stockly.example"}, zap.NewNop())
	err := mailer.Send(context.Background(), notification.Message{
		To:      []string{"sst@acme.example"},
		Subject: "Assunto",
		Text:    "Corpo",
	})
	require.NoError(t, err)
}

func TestMailer_Send_InvalidMessage(t *testing.T) {
	mailer := NewMailer(config.EmailConfig{EndpointConfig: endpoint("http://127.0.0.1:1")}, zap.NewNop())
	err := mailer.Send(context.Background(), notification.Message{Subject: "x", Text: "y"})
	assert.ErrorIs(t, err, notification.ErrNoRecipients)
}

func TestMailer_Send_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid from"}`))
	}))
	defer srv.Close()

	mailer := NewMailer(config.EmailConfig{EndpointConfig: endpoint(srv.URL)}, zap.NewNop())
	err := mailer.Send(context.Background(), notification.Message{To: []string{"a@b.example"}, Subject: "x", Text: "y"})

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
}
