package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"moogla-chat/internal/domain"
)

// DefaultCompletionURL apunta al servidor Moogla local.
const DefaultCompletionURL = "http://localhost:11434/v1/chat/completions"

var (
	ErrEmptyResponse = errors.New("llm empty response")
	ErrHTTPStatus    = errors.New("llm http error")
)

// Dispatcher envía una petición de completion y clasifica la respuesta.
type Dispatcher interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// Request es el cuerpo enviado al endpoint; se arma de cero en cada envío.
type Request struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Plugins  []string         `json:"plugins,omitempty"`
}

// HTTPDispatcher implementa Dispatcher contra una API chat-completions compatible con OpenAI.
type HTTPDispatcher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPDispatcher construye el dispatcher. El cliente HTTP no fija timeout:
// la cancelación llega sólo por el contexto del llamador.
func NewHTTPDispatcher(url string, httpClient *http.Client, logger *zap.Logger) *HTTPDispatcher {
	if url == "" {
		url = DefaultCompletionURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPDispatcher{
		url:    strings.TrimSpace(url),
		client: httpClient,
		logger: logger,
	}
}

func (d *HTTPDispatcher) Send(ctx context.Context, r Request) (Response, error) {
	if r.Messages == nil {
		r.Messages = []domain.Message{}
	}
	bodyBytes, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.Stream {
		req.Header.Set("Accept", "text/event-stream, application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		d.logger.Warn("llm error status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(snippet)),
		)
		return nil, fmt.Errorf("%w: status=%d", ErrHTTPStatus, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if IsEventStream(contentType) {
		d.logger.Debug("streaming response", zap.String("content_type", contentType))
		return Streaming{Body: resp.Body}, nil
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	content, err := parseCompletion(respBody)
	if err != nil {
		return nil, err
	}
	return Complete{Content: content}, nil
}

// IsEventStream indica si el Content-Type declara un flujo de eventos.
func IsEventStream(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "event-stream")
}

func parseCompletion(body []byte) (string, error) {
	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("llm api error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return cr.Choices[0].Message.Content, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
