package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"itassist/internal/config"
	"itassist/internal/domain"
)

const (
	ollamaDefaultBase  = "http://localhost:11434"
	ollamaDefaultModel = "llama3.2"
)

// Ollama implements domain.Provider against the Ollama HTTP API.
type Ollama struct {
	apiBase    string
	model      string
	maxRetries int
	client     *http.Client
	logger     *slog.Logger
}

func NewOllama(cfg config.ProviderConfig, logger *slog.Logger) *Ollama {
	if cfg.URL == "" {
		cfg.URL = ollamaDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = ollamaDefaultModel
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Ollama{
		apiBase:    cfg.URL,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", o.apiBase+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// Models lists installed models via GET /api/tags.
func (o *Ollama) Models(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.apiBase+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ollamaRequest matches the Ollama /api/chat request body.
type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []ollamaMsg    `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Message ollamaMsg `json:"message"`
	Done    bool      `json:"done"`
}

// Chat sends the conversation to /api/chat and returns the assistant's
// reply. Transient failures (connection refused, 5xx, decode errors) are
// retried with quadratic backoff.
func (o *Ollama) Chat(ctx context.Context, messages []domain.Message) (string, error) {
	msgs := make([]ollamaMsg, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, ollamaMsg{Role: m.Role, Content: m.Content})
	}

	body := ollamaRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   false,
		Options: map[string]any{
			"temperature": 0.7,
			"top_p":       0.9,
			"num_ctx":     2048,
			"num_predict": 512,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var ollamaResp ollamaResponse
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			o.logger.Warn("retrying ollama request", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", o.apiBase+"/api/chat", bytes.NewReader(jsonBody))
		if err != nil {
			return "", fmt.Errorf("new request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(httpReq)
		if err != nil {
			if attempt < o.maxRetries {
				o.logger.Warn("ollama request failed, will retry", "err", err)
				continue
			}
			return "", fmt.Errorf("ollama request (after %d retries): %w", o.maxRetries, err)
		}

		if resp.StatusCode >= 500 {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if attempt < o.maxRetries {
				o.logger.Warn("ollama server error, will retry", "status", resp.StatusCode, "body", string(respBody))
				continue
			}
			return "", fmt.Errorf("ollama returned %d (after %d retries): %s", resp.StatusCode, o.maxRetries, string(respBody))
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(respBody))
		}

		if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
			resp.Body.Close()
			if attempt < o.maxRetries {
				o.logger.Warn("ollama decode error, will retry", "err", err)
				continue
			}
			return "", fmt.Errorf("decode response (after %d retries): %w", o.maxRetries, err)
		}
		resp.Body.Close()
		break
	}

	return ollamaResp.Message.Content, nil
}
