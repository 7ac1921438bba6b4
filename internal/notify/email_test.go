package notify

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricepulse/internal/domain"
)

func testProduct() *domain.TrackedProduct {
	price := 199.0
	return &domain.TrackedProduct{
		ID:           1,
		URL:          "https://shop.example/dp/B0CHFM8N75",
		Name:         "Refrigerator",
		ImageURL:     "https://img.example/fridge.jpg",
		CurrentPrice: &price,
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("alerts@pricepulse.example", "user@example.com", testProduct(), 220)

	assert.Contains(t, msg, "From: alerts@pricepulse.example\r\n")
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "Subject: Price Alert: Refrigerator is now below your target price!\r\n")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "<strong>Current Price:</strong> $199.00")
	assert.Contains(t, msg, "<strong>Your Target Price:</strong> $220.00")
	assert.Contains(t, msg, `<a href="https://shop.example/dp/B0CHFM8N75">`)
	assert.Contains(t, msg, `<img src="https://img.example/fridge.jpg"`)
}

func TestSendPriceAlert_NoKnownPrice(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	sender := NewEmail(Config{Host: "localhost", Port: 2525, From: "alerts@pricepulse.example"}, logger)

	product := testProduct()
	product.CurrentPrice = nil

	err := sender.SendPriceAlert(context.Background(), "user@example.com", product, 220)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no known price")
}

func TestSendPriceAlert_DialFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	// port 1 refuses connections on any sane host
	sender := NewEmail(Config{Host: "127.0.0.1", Port: 1, From: "alerts@pricepulse.example", DialTimeout: 100 * time.Millisecond}, logger)

	err := sender.SendPriceAlert(context.Background(), "user@example.com", testProduct(), 220)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial smtp")
}
