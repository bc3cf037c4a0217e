package page

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"WalletCampaign/internal/model"
)

// HTTPSource implements Source against the campaign site: the wallet card is served as
// text under /card and spins are posted to /spin.
type HTTPSource struct {
	BaseURL      string
	Client       *http.Client
	CardTimeout  time.Duration
	PollInterval time.Duration
	Log          *zap.Logger
}

// NewHTTPSource creates a page source with optional proxy support.
func NewHTTPSource(baseURL, proxyURL string, cardTimeout time.Duration, log *zap.Logger) *HTTPSource {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if cardTimeout <= 0 {
		cardTimeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSource{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		CardTimeout:  cardTimeout,
		PollInterval: 2 * time.Second,
		Log:          log,
	}
}

func (s *HTTPSource) Name() string { return "http" }

// WaitForCard polls the card endpoint until it renders or CardTimeout elapses.
func (s *HTTPSource) WaitForCard(ctx context.Context, address string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.CardTimeout)
	defer cancel()

	for {
		body, err := s.fetchCard(ctx, address)
		if err == nil && len(bytes.TrimSpace(body)) > 0 {
			return true
		}
		if err != nil {
			s.Log.Debug("wallet card not ready", zap.String("address", address), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.PollInterval):
		}
	}
}

// ExtractState fetches the card and pattern-matches its text.
func (s *HTTPSource) ExtractState(ctx context.Context, address string) (model.ObservedState, error) {
	body, err := s.fetchCard(ctx, address)
	if err != nil {
		return model.ObservedState{}, err
	}
	return ParseState(string(body)), nil
}

// spinResponse is the expected JSON shape from the spin endpoint.
type spinResponse struct {
	Success bool   `json:"success"`
	Reward  string `json:"reward"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// PerformSpin posts one spin for the wallet.
func (s *HTTPSource) PerformSpin(ctx context.Context, address string) (model.SpinResult, error) {
	payload, err := json.Marshal(map[string]string{"address": address})
	if err != nil {
		return model.SpinResult{}, fmt.Errorf("marshal spin: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/spin", bytes.NewReader(payload))
	if err != nil {
		return model.SpinResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return model.SpinResult{}, fmt.Errorf("spin: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SpinResult{}, fmt.Errorf("spin read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.SpinResult{}, fmt.Errorf("spin: status %d, body: %s", resp.StatusCode, string(body))
	}

	var sr spinResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return model.SpinResult{}, fmt.Errorf("spin decode: %w", err)
	}
	if !sr.Success {
		if sr.Error == "" {
			sr.Error = "spin rejected"
		}
		return model.SpinResult{}, fmt.Errorf("spin: %s", sr.Error)
	}

	reward := sr.Reward
	if reward == "" {
		reward = ParseReward(sr.Message)
	}
	return model.SpinResult{RewardText: reward}, nil
}

func (s *HTTPSource) fetchCard(ctx context.Context, address string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/card?address=%s", s.BaseURL, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read card: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch card: status %d", resp.StatusCode)
	}
	return body, nil
}
