package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ReputationConfig configures the IP reputation client.
type ReputationConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ReputationService talks to an iprepd-style reputation service. Every
// failure is logged and reported as "no signal"; customs decisions never wait
// on it longer than the configured timeout.
type ReputationService struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewReputationService creates a new ReputationService
func NewReputationService(cfg ReputationConfig, logger *slog.Logger) *ReputationService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &ReputationService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type reputationResponse struct {
	Reputation *int `json:"reputation"`
}

type violationRequest struct {
	IP        string `json:"ip"`
	Violation string `json:"violation"`
}

// Reputation returns the score for ip. ok is false when the service has no
// opinion or could not be asked.
func (s *ReputationService) Reputation(ctx context.Context, ip string) (score int, ok bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/type/ip/"+url.PathEscape(ip), nil)
	if err != nil {
		s.logger.Error("failed to build reputation request", slog.Any("error", err))
		return 0, false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("reputation lookup failed", slog.String("op", "reputation.get"), slog.Any("error", err))
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("reputation lookup failed",
			slog.String("op", "reputation.get"),
			slog.Int("status", resp.StatusCode))
		return 0, false
	}

	var body reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Reputation == nil {
		s.logger.Warn("reputation response malformed", slog.String("op", "reputation.get"))
		return 0, false
	}
	return *body.Reputation, true
}

// ReportViolation tells the reputation service that ip triggered violation.
func (s *ReputationService) ReportViolation(ctx context.Context, ip, violation string) error {
	payload, err := json.Marshal(violationRequest{IP: ip, Violation: violation})
	if err != nil {
		return fmt.Errorf("failed to encode violation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		s.baseURL+"/violations/type/ip/"+url.PathEscape(ip), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build violation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to report violation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("failed to report violation: status %d", resp.StatusCode)
	}
	return nil
}
