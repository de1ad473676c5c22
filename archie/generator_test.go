package archie

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	. "github.com/onsi/gomega"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/oraraka-deko/archie/internal/logger"
)

type fakeModels struct {
	res      *genai.GenerateContentResponse
	err      error
	model    string
	contents []*genai.Content
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return f.res, f.err
}

func textResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}},
	}
}

func newTestGenerationClient(backend providerClient) *GenerationClient {
	return &GenerationClient{provider: ProviderGoogle, model: DefaultModelGoogle, backend: backend, log: logger.Nop()}
}

func TestNewGenerationClient_MissingKey(t *testing.T) {
	RegisterTestingT(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	for _, p := range []Provider{"", ProviderGoogle, ProviderOpenAI} {
		gc, err := NewGenerationClient(context.Background(), Config{Provider: p, BaseURL: srv.URL, HTTPClient: srv.Client()})
		Expect(gc).To(BeNil())
		Expect(IsKind(err, KindEnvironment)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring(apiKeyEnv(p) + " not found"))
	}
	Expect(atomic.LoadInt32(&hits)).To(BeZero())
}

func TestNewGenerationClient_UnknownProvider(t *testing.T) {
	RegisterTestingT(t)

	_, err := NewGenerationClient(context.Background(), Config{Provider: "bard", APIKey: "k"})
	Expect(IsKind(err, KindEnvironment)).To(BeTrue())
}

func TestGoogleProvider_SingleUserMessage(t *testing.T) {
	RegisterTestingT(t)
	fm := &fakeModels{res: textResponse(&genai.Part{Text: "Open House is April 5."})}
	gc := newTestGenerationClient(&googleProvider{models: fm})

	out, err := gc.Generate(context.Background(), "the prompt")
	Expect(err).NotTo(HaveOccurred())
	Expect(out).To(Equal("Open House is April 5."))
	Expect(fm.model).To(Equal(DefaultModelGoogle))
	Expect(fm.contents).To(HaveLen(1))
	Expect(fm.contents[0].Role).To(Equal("user"))
	Expect(fm.contents[0].Parts).To(HaveLen(1))
	Expect(fm.contents[0].Parts[0].Text).To(Equal("the prompt"))
}

func TestGoogleProvider_FallbackSentinel(t *testing.T) {
	RegisterTestingT(t)

	cases := map[string]*genai.GenerateContentResponse{
		"nil response":  nil,
		"no candidates": {Candidates: []*genai.Candidate{}},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"no parts":      textResponse(),
		"non-text part": textResponse(&genai.Part{FunctionCall: &genai.FunctionCall{Name: "lookup"}}, &genai.Part{Text: "ignored"}),
	}
	for name, res := range cases {
		p := &googleProvider{models: &fakeModels{res: res}}
		out, err := p.Generate(context.Background(), DefaultModelGoogle, "q")
		Expect(err).NotTo(HaveOccurred(), name)
		Expect(out).To(Equal(NoTextSentinel), name)
	}
}

func TestGoogleProvider_FirstPartOnly(t *testing.T) {
	RegisterTestingT(t)
	p := &googleProvider{models: &fakeModels{res: textResponse(&genai.Part{Text: "first"}, &genai.Part{Text: "second"})}}

	out, err := p.Generate(context.Background(), DefaultModelGoogle, "q")
	Expect(err).NotTo(HaveOccurred())
	Expect(out).To(Equal("first"))
}

func TestGoogleProvider_ErrorIsAPI(t *testing.T) {
	RegisterTestingT(t)
	root := errors.New("429 resource exhausted")
	gc := newTestGenerationClient(&googleProvider{models: &fakeModels{err: root}})

	_, err := gc.Generate(context.Background(), "q")
	Expect(IsKind(err, KindAPI)).To(BeTrue())
	Expect(errors.Is(err, root)).To(BeTrue())
	Expect(err.Error()).To(Equal("API Error: 429 resource exhausted"))
}

func TestGoogleProvider_OverHTTP(t *testing.T) {
	RegisterTestingT(t)
	var gotPath string
	var gotBody struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"From Gemini."}]}}]}`))
	}))
	defer srv.Close()

	gc, err := NewGenerationClient(context.Background(), Config{APIKey: "gsk", BaseURL: srv.URL, HTTPClient: srv.Client()})
	Expect(err).NotTo(HaveOccurred())

	out, err := gc.Generate(context.Background(), "hello archie")
	Expect(err).NotTo(HaveOccurred())
	Expect(out).To(Equal("From Gemini."))
	Expect(gotPath).To(HaveSuffix("models/" + DefaultModelGoogle + ":generateContent"))
	Expect(gotBody.Contents).To(HaveLen(1))
	Expect(gotBody.Contents[0].Role).To(Equal("user"))
	Expect(gotBody.Contents[0].Parts[0].Text).To(Equal("hello archie"))
}

func TestGoogleProvider_OverHTTP_Rejected(t *testing.T) {
	RegisterTestingT(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"backend exploded","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	gc, err := NewGenerationClient(context.Background(), Config{APIKey: "gsk", BaseURL: srv.URL, HTTPClient: srv.Client()})
	Expect(err).NotTo(HaveOccurred())

	_, err = gc.Generate(context.Background(), "q")
	Expect(IsKind(err, KindAPI)).To(BeTrue())
	Expect(err.Error()).To(ContainSubstring("backend exploded"))
}

type fakeChat struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestOpenAIProvider_Generate(t *testing.T) {
	RegisterTestingT(t)
	fc := &fakeChat{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Local answer."}},
	}}}
	p := &openAIProvider{client: fc}

	out, err := p.Generate(context.Background(), "gemma3:27b", "prompt text")
	Expect(err).NotTo(HaveOccurred())
	Expect(out).To(Equal("Local answer."))
	Expect(fc.req.Model).To(Equal("gemma3:27b"))
	Expect(fc.req.Messages).To(HaveLen(1))
	Expect(fc.req.Messages[0].Role).To(Equal(openai.ChatMessageRoleUser))
	Expect(fc.req.Messages[0].Content).To(Equal("prompt text"))
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	RegisterTestingT(t)
	p := &openAIProvider{client: &fakeChat{}}

	out, err := p.Generate(context.Background(), "m", "q")
	Expect(err).NotTo(HaveOccurred())
	Expect(out).To(Equal(NoTextSentinel))
}

func TestOpenAIProvider_OverHTTP(t *testing.T) {
	RegisterTestingT(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer sk-local" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gemma3:27b","choices":[{"index":0,"message":{"role":"assistant","content":"Hi from Ollama."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	gc, err := NewGenerationClient(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "sk-local", BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	Expect(err).NotTo(HaveOccurred())
	Expect(gc.Model()).To(Equal(DefaultModelOpenAI))
	out, err := gc.Generate(context.Background(), "hi")
	Expect(err).NotTo(HaveOccurred())
	Expect(out).To(Equal("Hi from Ollama."))

	bad, err := NewGenerationClient(context.Background(), Config{Provider: ProviderOpenAI, APIKey: "wrong", BaseURL: srv.URL + "/v1", HTTPClient: srv.Client()})
	Expect(err).NotTo(HaveOccurred())
	_, err = bad.Generate(context.Background(), "hi")
	Expect(IsKind(err, KindAPI)).To(BeTrue())
	Expect(err.Error()).To(ContainSubstring("status 401"))
}
