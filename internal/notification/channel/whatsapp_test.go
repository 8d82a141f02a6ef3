package channel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockflow/stockflow-backend/internal/notification/channel"
	"github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

func strPtr(s string) *string { return &s }

func whatsappNotification() *repository.Notification {
	return &repository.Notification{
		ID:        "n-1",
		Channel:   repository.ChannelWhatsApp,
		Title:     "Rupture de stock",
		Message:   "Rupture de stock: Paracetamol 500mg",
		Recipient: strPtr("+21698123456"),
	}
}

func TestWhatsApp_Send(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := channel.NewWhatsApp(config.WhatsAppConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
		Timeout:  5 * time.Second,
	}, logger.Nop())

	require.Equal(t, repository.ChannelWhatsApp, ch.Name())
	require.NoError(t, ch.Send(context.Background(), whatsappNotification()))

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "+21698123456", gotBody["to"])
	assert.Equal(t, "text", gotBody["type"])

	text, ok := gotBody["text"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "*StockFlow Pro*\n\nRupture de stock: Paracetamol 500mg", text["body"])
}

func TestWhatsApp_SendGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch := channel.NewWhatsApp(config.WhatsAppConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
		Timeout:  5 * time.Second,
	}, logger.Nop())

	err := ch.Send(context.Background(), whatsappNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWhatsApp_SendDisabled(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	ch := channel.NewWhatsApp(config.WhatsAppConfig{Timeout: 5 * time.Second}, logger.Nop())

	err := ch.Send(context.Background(), whatsappNotification())
	require.Error(t, err)
	assert.False(t, called)
}

func TestWhatsApp_SendWithoutRecipient(t *testing.T) {
	ch := channel.NewWhatsApp(config.WhatsAppConfig{
		APIURL:   "http://localhost:1",
		APIToken: "test-token",
		Timeout:  time.Second,
	}, logger.Nop())

	n := whatsappNotification()
	n.Recipient = nil
	require.Error(t, ch.Send(context.Background(), n))
}

func TestEmail_Send(t *testing.T) {
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ch := channel.NewEmail(config.EmailConfig{
		APIURL:   server.URL,
		APIToken: "test-token",
		Sender:   "alerts@stockflow.app",
		Timeout:  5 * time.Second,
	}, logger.Nop())

	n := &repository.Notification{
		ID:        "n-2",
		Channel:   repository.ChannelEmail,
		Title:     "Stock faible",
		Message:   "Stock faible: Amoxicilline (3 restants, minimum 10)",
		Recipient: strPtr("owner@example.com"),
	}
	require.NoError(t, ch.Send(context.Background(), n))

	assert.Equal(t, "alerts@stockflow.app", gotBody["from"])
	assert.Equal(t, "owner@example.com", gotBody["to"])
	assert.Equal(t, "Stock faible", gotBody["subject"])
}

func TestInApp_SendAlwaysSucceeds(t *testing.T) {
	ch := channel.NewInApp()
	assert.Equal(t, repository.ChannelInApp, ch.Name())
	assert.NoError(t, ch.Send(context.Background(), &repository.Notification{ID: "n-3"}))
}
