// Package openai is the chat-completions extraction provider, usable with any
// OpenAI-compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/MikeSquared-Agency/taskwire/internal/llm"
)

const DefaultModel = "gpt-4o-mini"

type Client struct {
	sdk   openaigo.Client
	model string
}

// NewClient builds a client with SDK retries disabled: an import run makes a
// single attempt and surfaces the failure.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, llm.ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		option.WithMaxRetries(0),
	}
	if u := strings.TrimRight(strings.TrimSpace(baseURL), "/"); u != "" {
		opts = append(opts, option.WithBaseURL(u+"/"))
	}

	return &Client{sdk: openaigo.NewClient(opts...), model: model}, nil
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.sdk.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(c.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(system),
			openaigo.UserMessage(user),
		},
		Temperature: openaigo.Float(0.2),
	})
	if err != nil {
		var sdkErr *openaigo.Error
		if errors.As(err, &sdkErr) {
			msg := strings.TrimSpace(sdkErr.Message)
			if msg == "" {
				msg = sdkErr.Error()
			}
			return "", &llm.APIError{Provider: c.Name(), StatusCode: sdkErr.StatusCode, Message: msg}
		}
		return "", fmt.Errorf("api call: %w", err)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response content")
	}
	return content, nil
}
