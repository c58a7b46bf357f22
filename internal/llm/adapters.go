package llm

import (
	"context"
	"fmt"

	adapters "github.com/aescanero/dago-adapters/pkg/llm"
	"github.com/aescanero/dago-libs/pkg/domain"
	"github.com/aescanero/dago-libs/pkg/ports"
	"go.uber.org/zap"
)

// AdaptersClient completes prompts through the shared dago-adapters client
type AdaptersClient struct {
	client    ports.LLMClient
	model     string
	maxTokens int
}

// NewAdaptersClient creates a client for opts.Provider
func NewAdaptersClient(opts Options, logger *zap.Logger) (*AdaptersClient, error) {
	client, err := adapters.NewClient(&adapters.Config{
		Provider: opts.Provider,
		APIKey:   opts.APIKey,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", opts.Provider, err)
	}

	return &AdaptersClient{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}, nil
}

// Complete sends prompt as a single user message
func (c *AdaptersClient) Complete(ctx context.Context, prompt string) (string, error) {
	req := &domain.LLMRequest{
		Model: c.model,
		Messages: []domain.Message{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		MaxTokens: c.maxTokens,
	}

	respInterface, err := c.client.GenerateCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}

	resp, ok := respInterface.(*domain.LLMResponse)
	if !ok {
		return "", fmt.Errorf("unexpected response type %T from llm", respInterface)
	}

	return resp.Content, nil
}
