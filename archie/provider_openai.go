package archie

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// chatCompleter is the slice of *openai.Client the OpenAI provider depends on.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type openAIProvider struct {
	client chatCompleter
}

func newOpenAIProvider(apiKey, baseURL string, hc *http.Client) providerClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &openAIProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *openAIProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fromOpenAI(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return NoTextSentinel, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// fromOpenAI maps go-openai failures into the API kind, keeping the HTTP
// status in the description when the server returned a structured error.
func fromOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return APIError(fmt.Errorf("status %d: %w", apiErr.HTTPStatusCode, err))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return APIError(fmt.Errorf("status %d: %w", reqErr.HTTPStatusCode, err))
	}
	return APIError(err)
}
