package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/dto"
)

// HTTPPublisher posts reported events to the ingestion API.
type HTTPPublisher struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewHTTPPublisher creates a publisher for the given ingestion base URL.
func NewHTTPPublisher(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint:   baseURL + "/api/v1/events",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Publish delivers one event.
func (p *HTTPPublisher) Publish(ctx context.Context, event *dto.ReportEventRequest) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ingestion returned status %d", resp.StatusCode)
	}
	return nil
}
