package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/config"
	"github.com/retainly/retention-service/internal/domain"
)

// Transport delivers a rendered notification over one channel.
// Validate reports whether the transport is configured to deliver at
// all; a Validate failure is recorded on the job without counting a
// delivery attempt.
type Transport interface {
	Validate() error
	Send(ctx context.Context, job *domain.NotificationJob) error
}

// SMTPTransport delivers email notifications.
type SMTPTransport struct {
	host string
	port string
	from string
	log  *zap.Logger
}

// NewSMTPTransport creates an email transport from config.
func NewSMTPTransport(cfg config.Notify, log *zap.Logger) *SMTPTransport {
	return &SMTPTransport{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.SMTPFrom,
		log:  log,
	}
}

// Validate checks the SMTP endpoint configuration.
func (t *SMTPTransport) Validate() error {
	if t.host == "" {
		return &domain.TransportError{Channel: domain.ChannelEmail, Err: fmt.Errorf("SMTP host not configured")}
	}
	return nil
}

// Send delivers one email.
func (t *SMTPTransport) Send(ctx context.Context, job *domain.NotificationJob) error {
	if err := ctx.Err(); err != nil {
		return &domain.TransportError{Channel: domain.ChannelEmail, Err: err}
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		t.from, job.Recipient, job.RenderedSubject, job.RenderedBody)

	addr := t.host + ":" + t.port
	if err := smtp.SendMail(addr, nil, t.from, []string{job.Recipient}, []byte(msg)); err != nil {
		t.log.Warn("SMTP delivery failed",
			zap.String("recipient", job.Recipient),
			zap.Error(err))
		return &domain.TransportError{Channel: domain.ChannelEmail, Err: err}
	}
	return nil
}

// WebhookTransport delivers chat notifications to an incoming webhook.
type WebhookTransport struct {
	webhookURL string
	httpClient *http.Client
	log        *zap.Logger
}

// NewWebhookTransport creates a chat transport from config.
func NewWebhookTransport(cfg config.Notify, log *zap.Logger) *WebhookTransport {
	return &WebhookTransport{
		webhookURL: cfg.ChatWebhookURL,
		httpClient: &http.Client{Timeout: cfg.SendTimeout()},
		log:        log,
	}
}

// Validate checks the webhook endpoint configuration.
func (t *WebhookTransport) Validate() error {
	if t.webhookURL == "" {
		return &domain.TransportError{Channel: domain.ChannelChat, Err: fmt.Errorf("chat webhook URL not configured")}
	}
	return nil
}

// Send posts one chat message.
func (t *WebhookTransport) Send(ctx context.Context, job *domain.NotificationJob) error {
	body, err := json.Marshal(map[string]string{
		"channel": job.Recipient,
		"text":    job.RenderedBody,
	})
	if err != nil {
		return &domain.TransportError{Channel: domain.ChannelChat, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.webhookURL, bytes.NewReader(body))
	if err != nil {
		return &domain.TransportError{Channel: domain.ChannelChat, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Warn("Webhook delivery failed",
			zap.String("recipient", job.Recipient),
			zap.Error(err))
		return &domain.TransportError{Channel: domain.ChannelChat, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.TransportError{Channel: domain.ChannelChat, Err: fmt.Errorf("webhook returned status %d", resp.StatusCode)}
	}
	return nil
}
