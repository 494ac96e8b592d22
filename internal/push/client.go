package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sortir/pkg/logx"
)

// Config configures the HTTP push client.
type Config struct {
	// Endpoint is the push service send URL.
	Endpoint string
	// APIKey is the server key sent as `Authorization: key=<APIKey>`.
	APIKey string
	// Timeout bounds one send round-trip. 0 means a 10s default.
	Timeout time.Duration
}

// Client sends push messages with one JSON POST per Send call, in the
// legacy FCM send shape (registration_ids + notification + data).
type Client struct {
	cfg Config
	hc  *http.Client
	log logx.Logger
}

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("push endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
		log: log,
	}, nil
}

func (c *Client) Send(ctx context.Context, m Message) error {
	if len(m.Tokens) == 0 {
		return nil
	}

	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "key="+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused. The per-token results in the
	// response are intentionally ignored.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push send: unexpected status %d", resp.StatusCode)
	}

	c.log.Debug("push sent",
		logx.Int("tokens", len(m.Tokens)),
		logx.String("title", m.Notification.Title),
		logx.Duration("took", time.Since(start)),
	)
	return nil
}
