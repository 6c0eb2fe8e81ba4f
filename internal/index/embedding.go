package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
)

const (
	defaultEmbeddingURL = "http://localhost:11434"
	defaultModel        = "nomic-embed-text"
	embeddingTimeout    = 30 * time.Second
)

// EmbeddingClient is a typed client for a local embedding HTTP
// endpoint (the Ollama-style `/api/embeddings` + `/api/tags` wire).
type EmbeddingClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewEmbeddingClient constructs a client pointed at baseURL for model.
// Empty values fall back to the local-Ollama defaults.
func NewEmbeddingClient(baseURL, model string) *EmbeddingClient {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	if model == "" {
		model = defaultModel
	}
	return &EmbeddingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: embeddingTimeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed requests a single embedding vector for text, retrying
// transient transport failures with exponential backoff before
// surfacing a Protocol/Transport error.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var vec []float64
	op := func() error {
		v, err := c.embedOnce(ctx, text)
		if err != nil {
			if apperr.IsKind(err, apperr.Protocol) {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if apperr.IsKind(err, apperr.Protocol) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Transport, err, "index: embed request failed")
	}
	return vec, nil
}

func (c *EmbeddingClient) embedOnce(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "index: encode embedding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "index: build embedding request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Transport, err, "index: embedding request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apperr.New(apperr.Protocol, "index: embedding endpoint returned %d %s: %s",
			resp.StatusCode, http.StatusText(resp.StatusCode), strings.TrimSpace(string(payload)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.Protocol, err, "index: decode embedding response")
	}
	return out.Embedding, nil
}

// EmbedBatch embeds each text sequentially: one HTTP round trip per
// text, issued in order, not concurrently, since the local embedding
// server is treated as externally serialized.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *EmbeddingClient) fetchTags(ctx context.Context) (*tagsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tags endpoint returned %d", resp.StatusCode)
	}
	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsAvailable probes the list-tags endpoint, swallowing any error and
// reporting false rather than propagating it.
func (c *EmbeddingClient) IsAvailable(ctx context.Context) bool {
	_, err := c.fetchTags(ctx)
	return err == nil
}

// HasModel reports whether the configured model name appears
// (substring match) in the list-tags response, swallowing errors.
func (c *EmbeddingClient) HasModel(ctx context.Context) bool {
	tags, err := c.fetchTags(ctx)
	if err != nil {
		return false
	}
	for _, m := range tags.Models {
		if strings.Contains(m.Name, c.model) {
			return true
		}
	}
	return false
}

// GetDimension returns the length of a probe embedding for a fixed
// short string.
func (c *EmbeddingClient) GetDimension(ctx context.Context) (int, error) {
	vec, err := c.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, err
	}
	return len(vec), nil
}
