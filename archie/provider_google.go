package archie

import (
	"context"
	"net/http"

	"google.golang.org/genai"
)

// genaiModels is the slice of *genai.Models the Google provider depends on.
type genaiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type googleProvider struct {
	models genaiModels
}

func newGoogleProvider(ctx context.Context, apiKey, baseURL string, hc *http.Client) (providerClient, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fromGenAI(err)
	}
	return &googleProvider{models: gc.Models}, nil
}

func (p *googleProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	res, err := p.models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fromGenAI(err)
	}
	return firstTextFromGenAI(res), nil
}

// fromGenAI maps any genai failure into the API kind.
func fromGenAI(err error) error {
	return APIError(err)
}

// firstTextFromGenAI looks only at the first part of the first candidate.
func firstTextFromGenAI(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 {
		return NoTextSentinel
	}
	c := res.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 {
		return NoTextSentinel
	}
	part := c.Content.Parts[0]
	if part == nil || part.Text == "" {
		return NoTextSentinel
	}
	return part.Text
}
