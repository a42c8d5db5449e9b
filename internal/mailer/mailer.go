package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/logger"
)

const maxAttempts = 3

// Message is one outgoing email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from"`
}

// Mailer delivers email through the serverless dispatch function. Delivery
// is best effort: callers treat a returned error as a logging concern, never
// as a reason to roll back the producing operation.
type Mailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
	logg     *logger.Logger
}

// New builds a mailer from configuration. An empty endpoint yields a
// disabled mailer that drops messages, which keeps local development free
// of external calls.
func New(cfg config.MailerConfig, logg *logger.Logger) (*Mailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Mailer{
		endpoint: cfg.EndpointURL,
		apiKey:   cfg.APIKey,
		from:     cfg.DefaultFrom,
		client:   &http.Client{Timeout: timeout},
		logg:     logg,
	}, nil
}

// Enabled reports whether an endpoint is configured.
func (m *Mailer) Enabled() bool {
	return m.endpoint != ""
}

// Send posts the message to the dispatch function, retrying transient
// failures with exponential backoff.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if !m.Enabled() {
		m.logg.Info(ctx, "mailer disabled, dropping message to "+msg.To)
		return nil
	}
	if msg.To == "" {
		return fmt.Errorf("recipient required")
	}
	if msg.From == "" {
		msg.From = m.from
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	backoff := retry.WithMaxRetries(maxAttempts, retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		return m.post(ctx, payload)
	})
}

func (m *Mailer) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("mailer endpoint returned %d", resp.StatusCode))
	default:
		return fmt.Errorf("mailer endpoint returned %d", resp.StatusCode)
	}
}
