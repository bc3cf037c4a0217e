package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier delivers operator messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// NoopNotifier drops every message; used when no bot token is configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string) error { return nil }

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string
	APIBase    string
	MaxRetries int
	Client     *http.Client
	Log        *zap.Logger

	// backoff returns the wait before retry attempt i.
	backoff func(i int) time.Duration
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, log *zap.Logger) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TelegramNotifier{
		BotToken:   botToken,
		ChatID:     chatID,
		APIBase:    defaultAPIBase,
		MaxRetries: 3,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Log: log,
		backoff: func(i int) time.Duration {
			return time.Duration(1<<uint(i)) * time.Second
		},
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.APIBase, t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		// url.Error would carry the token-bearing URL.
		return fmt.Errorf("send message: %w", redact(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(ctx, text); err != nil {
			lastErr = err
			if i == maxRetries {
				break
			}
			backoff := t.backoff(i)
			t.Log.Warn("telegram send failed",
				zap.Int("attempt", i+1), zap.Int("max", maxRetries+1),
				zap.Duration("retry_in", backoff), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// Notify implements Notifier.
func (t *TelegramNotifier) Notify(ctx context.Context, text string) error {
	return t.SendWithRetry(ctx, text, t.MaxRetries)
}

func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}
