// Package embedding calls the external embedding service that turns texts
// into fixed-dimension vectors.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/models"
)

// Gateway embeds texts. Implementations return one vector per input text in
// input order.
type Gateway interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Client is the HTTP Gateway for a service exposing POST /embed.
type Client struct {
	baseURL    string
	dimensions int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a Client from the embedding section of the config.
// A nil httpClient gets one with the configured timeout.
func NewClient(cfg config.EmbeddingConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		dimensions: cfg.Dimensions,
		httpClient: httpClient,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Dimensions returns the vector size the client enforces, or 0 when any
// consistent size is accepted.
func (c *Client) Dimensions() int { return c.dimensions }

// EmbedOne embeds a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany embeds texts in one request. Every call is a live request; nothing
// is cached or retried.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	reqBody, err := json.Marshal(models.EmbedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", models.ErrEmbeddingService, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", models.ErrEmbeddingService, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call embedding api: %w", models.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: api returned status %d, body: %s",
			models.ErrEmbeddingService, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var embedResp models.EmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", models.ErrEmbeddingService, err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			models.ErrEmbeddingService, len(texts), len(embedResp.Embeddings))
	}
	if err := c.checkDimensions(embedResp.Embeddings); err != nil {
		return nil, err
	}
	return embedResp.Embeddings, nil
}

func (c *Client) checkDimensions(vectors [][]float32) error {
	want := c.dimensions
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at position %d", models.ErrEmbeddingService, i)
		}
		if want <= 0 {
			want = len(v)
		}
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				models.ErrVectorDimension, i, len(v), want)
		}
	}
	return nil
}

// Ping checks that the embedding service answers GET /health.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", models.ErrEmbeddingService, err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: health check failed: %w", models.ErrEmbeddingService, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned status %d", models.ErrEmbeddingService, resp.StatusCode)
	}
	return nil
}
