// Package genai is a thin client for the Gemini generateContent REST
// endpoint with structured (JSON schema) output.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/sloth-organize-bfa/internal/domain"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/observability"
	"github.com/boddenberg/sloth-organize-bfa/internal/infra/resilience"
	"github.com/boddenberg/sloth-organize-bfa/internal/port"
)

var tracer = otel.Tracer("genai")

const serviceName = "gemini"

// Client calls a Gemini model.
type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a Gemini client. An empty apiKey yields a client
// whose every call fails with domain.ErrUnavailable.
func NewClient(httpClient *http.Client, baseURL, model, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// Available reports whether an API key is configured.
func (c *Client) Available() bool { return c.apiKey != "" }

// --- wire format ---

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func buildRequest(req port.GenerationRequest) generateRequest {
	user := content{Role: "user", Parts: []part{{Text: req.Prompt}}}
	if req.AudioBase64 != "" {
		mime := req.AudioMIME
		if mime == "" {
			mime = "audio/webm"
		}
		user.Parts = append(user.Parts, part{InlineData: &inlineData{MimeType: mime, Data: req.AudioBase64}})
	}
	out := generateRequest{
		Contents: []content{user},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}
	if req.SystemInstruction != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	return out
}

// GenerateJSON sends req and returns the JSON text of the first
// candidate. Transport failures come back as domain.ErrExternalService.
func (c *Client) GenerateJSON(ctx context.Context, req port.GenerationRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "GenaiClient.GenerateJSON")
	defer span.End()
	span.SetAttributes(
		attribute.String("ai.operation", req.Operation),
		attribute.String("ai.model", c.model),
	)

	if !c.Available() {
		return nil, &domain.ErrUnavailable{Service: serviceName}
	}

	payload, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, err
	}

	var text []byte
	err = resilience.Execute(ctx, c.cb, c.cfg, func() error {
		var callErr error
		text, callErr = c.call(ctx, req.Operation, payload)
		return callErr
	})
	if err != nil {
		span.RecordError(err)
		var open *domain.ErrCircuitOpen
		if !errors.As(err, &open) {
			c.metrics.IncrExternalError(serviceName)
		}
		return nil, &domain.ErrExternalService{Service: serviceName, Err: err}
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, operation string, payload []byte) ([]byte, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("gemini: non-200 response",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
		)
		statusErr := fmt.Errorf("gemini API returned status %d", resp.StatusCode)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
			return nil, resilience.Permanent(statusErr)
		}
		return nil, statusErr
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, resilience.Permanent(fmt.Errorf("decode gemini response: %w", err))
	}
	c.metrics.RecordTokens(gr.UsageMetadata.PromptTokenCount, gr.UsageMetadata.CandidatesTokenCount)

	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return nil, resilience.Permanent(fmt.Errorf("prompt blocked: %s", gr.PromptFeedback.BlockReason))
	}
	if len(gr.Candidates) == 0 {
		return nil, resilience.Permanent(errors.New("gemini returned no candidates"))
	}

	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return nil, resilience.Permanent(errors.New("gemini returned an empty candidate"))
	}

	c.logger.Debug("gemini: generation OK",
		zap.String("operation", operation),
		zap.Int("prompt_tokens", gr.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", gr.UsageMetadata.CandidatesTokenCount),
	)
	return []byte(out), nil
}
