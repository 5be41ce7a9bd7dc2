package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// ClientConfig selects the OpenAI-compatible endpoint. A non-empty
// AzureEndpoint targets Azure OpenAI, where model names are deployment names.
type ClientConfig struct {
	APIKey        string
	BaseURL       string
	AzureEndpoint string
	APIVersion    string
}

// Client wraps the OpenAI client for embedding generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a new OpenAI client for embedding generation.
// It returns an error if no API key is configured. The SDK's built-in
// retries are disabled: a failed call surfaces to the caller immediately.
func NewClient(cfg ClientConfig, opts ...option.RequestOption) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	var base []option.RequestOption
	switch {
	case cfg.AzureEndpoint != "":
		base = append(base,
			azure.WithEndpoint(cfg.AzureEndpoint, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case cfg.BaseURL != "":
		base = append(base, option.WithAPIKey(cfg.APIKey), option.WithBaseURL(cfg.BaseURL))
	default:
		base = append(base, option.WithAPIKey(cfg.APIKey))
	}
	base = append(base, option.WithMaxRetries(0))

	client := openai.NewClient(append(base, opts...)...)

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g., description generation).
func (c *Client) Client() *openai.Client {
	return c.client
}
