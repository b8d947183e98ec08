package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	errors "github.com/frahmantamala/credify/internal"
	"github.com/frahmantamala/credify/internal/debt"
	"github.com/sethvargo/go-retry"
)

type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Language    string
	Timeout     time.Duration
	MaxRetries  int
	BackoffBase time.Duration
}

// GeminiGenerator asks the Gemini generateContent endpoint for a reminder message.
type GeminiGenerator struct {
	apiKey      string
	endpoint    string
	language    string
	timeout     time.Duration
	maxRetries  uint64
	backoffBase time.Duration
	httpClient  *http.Client
	logger      *slog.Logger
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func NewGeminiGenerator(cfg GeminiConfig, httpClient *http.Client, logger *slog.Logger) *GeminiGenerator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.Language == "" {
		cfg.Language = "pt-BR"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &GeminiGenerator{
		apiKey:      cfg.APIKey,
		endpoint:    fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(cfg.BaseURL, "/"), cfg.Model),
		language:    cfg.Language,
		timeout:     cfg.Timeout,
		maxRetries:  uint64(maxRetries),
		backoffBase: cfg.BackoffBase,
		httpClient:  httpClient,
		logger:      logger,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, req debt.ReminderRequest) (string, error) {
	prompt, err := Prompt(req, g.language)
	if err != nil {
		return "", errors.NewInternalError("Failed to build reminder prompt", err)
	}

	payload, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", errors.NewInternalError("Failed to encode reminder request", err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewExponential(g.backoffBase))

	var message string
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		text, err := g.call(ctx, payload)
		if err != nil {
			g.logger.Warn("reminder generation attempt failed",
				"debt_id", req.DebtID,
				"attempt", attempt,
				"error", err)
			return err
		}
		message = text
		return nil
	})
	if err != nil {
		return "", errors.NewExternalError("Failed to generate reminder", errors.ErrCodeReminderFailed, err)
	}

	g.logger.Debug("reminder generated", "debt_id", req.DebtID, "attempts", attempt)
	return message, nil
}

func (g *GeminiGenerator) call(ctx context.Context, payload []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", retry.RetryableError(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", retry.RetryableError(fmt.Errorf("upstream returned %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upstream returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 {
		return "", fmt.Errorf("response has no candidates")
	}

	var text strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	message := strings.TrimSpace(text.String())
	if message == "" {
		return "", fmt.Errorf("response has no text")
	}
	return message, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
