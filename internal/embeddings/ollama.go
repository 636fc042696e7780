package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// OllamaParams configures an OllamaEncoder.
type OllamaParams struct {
	// BaseURL of the Ollama server. Empty uses the client default
	// (OLLAMA_HOST or http://localhost:11434).
	BaseURL string
	Model   string

	// Timeout bounds each request; zero means no timeout.
	Timeout time.Duration

	// MaxConcurrentRequests bounds in-flight requests; zero means 4.
	MaxConcurrentRequests int64

	HTTPClient *http.Client
}

// OllamaEncoder is a sentence encoder backed by an Ollama embedding model.
type OllamaEncoder struct {
	client  *api.Client
	model   string
	timeout time.Duration
	reqLock *semaphore.Weighted
}

// NewOllamaEncoder creates an encoder for the given server and model.
func NewOllamaEncoder(params OllamaParams) (*OllamaEncoder, error) {
	if params.Model == "" {
		return nil, errors.New("ollama: embedding model is required")
	}

	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("ollama: parse base url: %w", err)
		}
	}

	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var cli *api.Client
	if u != nil {
		cli = api.NewClient(u, httpClient)
	} else {
		cli, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama: %w", err)
		}
	}

	limit := params.MaxConcurrentRequests
	if limit <= 0 {
		limit = 4
	}

	return &OllamaEncoder{
		client:  cli,
		model:   params.Model,
		timeout: params.Timeout,
		reqLock: semaphore.NewWeighted(limit),
	}, nil
}

// Encode embeds text with the configured model.
func (o *OllamaEncoder) Encode(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyEmbedding
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	if err := o.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.reqLock.Release(1)

	res, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}

	out := make([]float64, len(res.Embeddings[0]))
	for i, v := range res.Embeddings[0] {
		out[i] = float64(v)
	}
	return out, nil
}
