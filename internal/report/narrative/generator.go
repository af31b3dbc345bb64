// Package narrative calls the external text-generation service.
package narrative

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"health-report-workers/internal/common/config"
	"health-report-workers/internal/common/errors"
	commonhttp "health-report-workers/internal/common/http"
	"health-report-workers/internal/common/logger"
	"health-report-workers/internal/common/metrics"

	"golang.org/x/time/rate"
)

// Generator turns a composed prompt into narrative text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	Burst             int
	MaxTokens         int
	Temperature       float64
	BackoffBase       time.Duration
}

func ConfigFromApp(cfg config.NarrativeConfig) Config {
	return Config{
		BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:            cfg.APIKey,
		Model:             cfg.Model,
		Timeout:           config.GetDuration(cfg.Timeout),
		MaxRetries:        cfg.MaxRetries,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.Burst,
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		BackoffBase:       500 * time.Millisecond,
	}
}

// HTTPGenerator posts prompts to <BaseURL>/api/ai/generate.
type HTTPGenerator struct {
	config  Config
	client  *commonhttp.Client
	limiter *rate.Limiter
	logger  logger.Logger
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func NewHTTPGenerator(cfg Config, log logger.Logger) *HTTPGenerator {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}

	return &HTTPGenerator{
		config:  cfg,
		client:  commonhttp.NewClient(cfg.Timeout),
		limiter: rate.NewLimiter(limit, burst),
		logger: log.With(map[string]interface{}{
			"component": "narrative-generator",
		}),
	}
}

// Generate returns the narrative verbatim. Empty or whitespace-only text is
// an EMPTY_NARRATIVE error; transport failures are retried with backoff.
func (g *HTTPGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.NarrativeDuration.Observe(time.Since(start).Seconds())
	}()

	headers := map[string]string{}
	if g.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + g.config.APIKey
	}
	payload := generateRequest{
		Prompt:      prompt,
		Model:       g.config.Model,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}
	url := g.config.BaseURL + "/api/ai/generate"

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.config.BackoffBase * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", contextError(ctx.Err())
			}
		}

		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", contextError(ctx.Err())
			}
			return "", errors.NewGenerationTransportError(err)
		}

		text, retry, err := g.call(ctx, url, headers, payload)
		if err == nil {
			g.logger.Info("Narrative generated", map[string]interface{}{
				"attempt":       attempt + 1,
				"promptLength":  len(prompt),
				"contentLength": len(text),
				"durationMs":    time.Since(start).Milliseconds(),
			})
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", contextError(ctx.Err())
		}
		if !retry {
			return "", err
		}
		g.logger.Warn("Narrative generation attempt failed", map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	return "", lastErr
}

// call performs one request. The bool reports whether a failure is worth
// retrying.
func (g *HTTPGenerator) call(ctx context.Context, url string, headers map[string]string, payload generateRequest) (string, bool, error) {
	resp, err := g.client.PostJSON(ctx, url, headers, payload)
	if err != nil {
		return "", true, errors.NewGenerationTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retry, errors.NewGenerationTransportError(statusErr)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, errors.NewGenerationTransportError(fmt.Errorf("decode response: %w", err))
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", false, errors.NewEmptyNarrativeError()
	}
	return out.Text, false, nil
}

func contextError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewGenerationTimeoutError(err)
	}
	return errors.NewGenerationTransportError(err)
}
