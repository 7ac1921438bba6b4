package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"pricepulse/internal/domain"
)

// Config holds SMTP settings for outbound price alerts.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	DialTimeout time.Duration
}

// Email sends price-alert notifications over SMTP. Every send dials a fresh
// connection with a bounded timeout so dispatch can never wedge the
// reconciliation loop.
type Email struct {
	cfg    Config
	logger *slog.Logger
}

func NewEmail(cfg Config, logger *slog.Logger) *Email {
	return &Email{
		cfg:    cfg,
		logger: logger.With("component", "notify"),
	}
}

func (n *Email) SendPriceAlert(ctx context.Context, recipient string, product *domain.TrackedProduct, targetPrice float64) error {
	if product.CurrentPrice == nil {
		return fmt.Errorf("product %d has no known price", product.ID)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	dialer := net.Dialer{Timeout: n.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(n.cfg.From, recipient, product, targetPrice))); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close message: %w", err)
	}

	n.logger.Debug("price alert emailed", "recipient", recipient, "product_id", product.ID)

	return client.Quit()
}

func buildMessage(from, recipient string, product *domain.TrackedProduct, targetPrice float64) string {
	subject := fmt.Sprintf("Price Alert: %s is now below your target price!", product.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")

	fmt.Fprintf(&b, `<html>
<body>
<h2>Price Alert!</h2>
<p>The price of %s has dropped below your target price!</p>
<img src="%s" alt="%s" style="max-width: 300px;">
<p><strong>Current Price:</strong> $%.2f</p>
<p><strong>Your Target Price:</strong> $%.2f</p>
<p><a href="%s">View Product</a></p>
<p>Sent at: %s</p>
</body>
</html>`,
		product.Name,
		product.ImageURL,
		product.Name,
		*product.CurrentPrice,
		targetPrice,
		product.URL,
		time.Now().Format("2006-01-02 15:04:05"),
	)

	return b.String()
}
