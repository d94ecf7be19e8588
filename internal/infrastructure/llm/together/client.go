package together

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/infrastructure/resilience"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, model, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// classifyMaxTokens caps the completion: the answer is a single code.
const classifyMaxTokens = 20

// Classifier labels document excerpts with a taxonomy code. It never returns
// an error: any transport or model failure degrades to the untagged
// suggestion with zero confidence so promotion always proceeds.
type Classifier struct {
	client *Client
	exec   *resilience.Executor
}

func NewClassifier(client *Client, exec *resilience.Executor) *Classifier {
	return &Classifier{client: client, exec: exec}
}

func (c *Classifier) Classify(ctx context.Context, excerpt string) domain.CategorySuggestion {
	var raw string
	err := c.exec.Execute(ctx, "classify_document", func(ctx context.Context) error {
		var callErr error
		raw, callErr = c.client.chatCompletion(ctx, "classify", buildCategoryPrompt(excerpt), classifyMaxTokens)
		return callErr
	}, classifyTransportError)
	if err != nil {
		slog.Warn("classification call failed, falling back to untagged", "error", err)
		return domain.UntaggedSuggestion("", err.Error())
	}

	code, ok := domain.ParseCategoryCode(raw)
	if !ok {
		slog.Warn("classifier returned unrecognized label", "label", raw)
		return domain.UntaggedSuggestion(raw, "")
	}
	return domain.CategorySuggestion{
		Code:       code,
		Confidence: domain.ClassifiedConfidence,
		RawLabel:   raw,
	}
}
