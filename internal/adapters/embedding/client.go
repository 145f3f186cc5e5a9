package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/resemantic/resemantic/internal/adapters/circuitbreaker"
	"github.com/resemantic/resemantic/internal/adapters/retry"
	"github.com/resemantic/resemantic/internal/domain"
	"github.com/resemantic/resemantic/internal/ports"
)

const (
	// DefaultBatchSize caps how many texts go into one embeddings request.
	DefaultBatchSize = 100
	// DefaultTimeout bounds one embeddings request, retries included.
	DefaultTimeout = 30 * time.Second
)

// Client is an OpenAI-compatible embedding client
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	dimensions  int
	batchSize   int
	timeout     time.Duration
	httpClient  *http.Client
	retryConfig retry.BackoffConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// NewClient creates a new embedding client. Non-positive batchSize or
// timeout fall back to the defaults.
func NewClient(baseURL, apiKey, model string, dimensions, batchSize int, timeout time.Duration) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		batchSize:  batchSize,
		timeout:    timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryConfig: retry.HTTPConfig(),
		breaker:     circuitbreaker.New(5, 30*time.Second),
	}
}

// EmbeddingRequest represents the request to the embeddings API
type EmbeddingRequest struct {
	Input interface{} `json:"input"` // Can be string or []string
	Model string      `json:"model"`
}

// EmbeddingResponse represents the response from the embeddings API
type EmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates an embedding for a single text
func (c *Client) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	var result *ports.EmbeddingResult
	err := c.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		results, err := c.embedBatchInternal(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("%w: no embedding returned", domain.ErrLLMTransport)
		}
		result = results[0]
		return nil
	})
	if err != nil {
		log.Printf("warning: embedding request failed: %v", err)
	}
	return result, err
}

// EmbedBatch generates embeddings for multiple texts, preserving input
// index order. Inputs beyond the configured batch size are split into
// consecutive requests; a chunk failure fails the whole batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	if len(texts) == 0 {
		return []*ports.EmbeddingResult{}, nil
	}

	results := make([]*ports.EmbeddingResult, 0, len(texts))
	err := c.breaker.Execute(func() error {
		for start := 0; start < len(texts); start += c.batchSize {
			end := min(start+c.batchSize, len(texts))

			chunkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			chunk, err := c.embedBatchInternal(chunkCtx, texts[start:end])
			cancel()
			if err != nil {
				return err
			}
			results = append(results, chunk...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetDimensions returns the dimensionality of the embeddings
func (c *Client) GetDimensions() int {
	return c.dimensions
}

// curlExample returns a curl command for debugging embedding requests.
// The API key is never interpolated; the command references the
// environment variable instead.
func (c *Client) curlExample() string {
	authHeader := ""
	if c.apiKey != "" {
		authHeader = ` -H "Authorization: Bearer $RESEMANTIC_EMBEDDING_API_KEY"`
	}
	return fmt.Sprintf(
		`curl -X POST "%s/v1/embeddings" -H "Content-Type: application/json"%s -d '{"input": "test", "model": "%s"}'`,
		c.baseURL, authHeader, c.model,
	)
}

func (c *Client) embedBatchInternal(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	req := EmbeddingRequest{
		Model: c.model,
	}

	if len(texts) == 1 {
		req.Input = texts[0]
	} else {
		req.Input = texts
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var respBody []byte
	var statusCode int

	err = retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/embeddings", bytes.NewReader(body))
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}

		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return 0, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		statusCode = resp.StatusCode
		respBody, err = io.ReadAll(resp.Body)
		if err != nil {
			return statusCode, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			log.Printf("warning: embeddings API error: status=%d, body=%s", resp.StatusCode, string(respBody))
			return statusCode, fmt.Errorf("API error: %s - %s", resp.Status, string(respBody))
		}

		return statusCode, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %v (debug: %s)", domain.ErrLLMTransport, err, c.curlExample())
	}

	var embeddingResp EmbeddingResponse
	if err := json.Unmarshal(respBody, &embeddingResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrLLMTransport, err)
	}

	// Provider may return results out of order; key by index.
	results := make([]*ports.EmbeddingResult, len(embeddingResp.Data))
	for _, data := range embeddingResp.Data {
		dimensions := len(data.Embedding)
		if c.dimensions > 0 && dimensions != c.dimensions {
			return nil, fmt.Errorf("%w: expected %d dimensions but got %d", domain.ErrDimensionMismatch, c.dimensions, dimensions)
		}

		if data.Index < 0 || data.Index >= len(results) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrSchemaValidation, data.Index)
		}
		results[data.Index] = &ports.EmbeddingResult{
			Embedding:  data.Embedding,
			Model:      embeddingResp.Model,
			Dimensions: dimensions,
		}
	}

	return results, nil
}
