package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"healthmate/backend/internal/config"
)

const (
	defaultTemperature = 0.7
	defaultTopP        = 0.9
)

// Prompt is the input of one generation call.
type Prompt struct {
	Persona string
	Context string
	Message string
}

func (p Prompt) Render() string {
	return p.Persona + "\n\nContext: " + p.Context + "\n\nUser: " + p.Message + "\n\nAssistant:"
}

// Generator produces a reply for a prompt. An empty reply with a nil error
// means the service answered without text.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

type OllamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaClient(cfg config.Config) *OllamaClient {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 240
	}
	model := strings.TrimSpace(cfg.OllamaModel)
	if model == "" {
		model = "llama2"
	}
	return &OllamaClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.OllamaHost), "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

var tracer = otel.Tracer("healthmate/backend/internal/assistant")

// Generate calls POST {host}/api/generate once. Every failure is returned as
// a *Failure.
func (c *OllamaClient) Generate(ctx context.Context, prompt Prompt) (string, error) {
	ctx, span := tracer.Start(ctx, "ollama.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	text, err := c.generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return text, err
}

func (c *OllamaClient) generate(ctx context.Context, prompt Prompt) (string, error) {
	url := c.baseURL + "/api/generate"

	bodyRaw, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt.Render(),
		Stream: false,
		Options: generateOptions{
			Temperature: defaultTemperature,
			TopP:        defaultTopP,
		},
	})
	if err != nil {
		return "", &Failure{Kind: FailureUnexpected, URL: url, Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyRaw))
	if err != nil {
		return "", &Failure{Kind: FailureUnexpected, URL: url, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", classifyTransportError(url, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", classifyTransportError(url, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &Failure{
			Kind:   FailureStatus,
			URL:    url,
			Status: response.StatusCode,
			Body:   truncateForLog(string(responseBody), 500),
		}
	}

	var parsed map[string]any
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", &Failure{
			Kind:   FailureMalformed,
			URL:    url,
			Status: response.StatusCode,
			Body:   truncateForLog(string(responseBody), 500),
			Err:    err,
		}
	}
	text, _ := parsed["response"].(string)
	return text, nil
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}

// NewGenerator returns the generator selected by AI_PROVIDER.
func NewGenerator(cfg config.Config) Generator {
	if cfg.AIProvider == config.AIProviderMock {
		return MockGenerator{}
	}
	return NewOllamaClient(cfg)
}
