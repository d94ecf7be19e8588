package together

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lendware/docflow/internal/core/domain"
	"github.com/lendware/docflow/internal/infrastructure/resilience"
)

// letterMaxTokens caps the completion for a full letter body.
const letterMaxTokens = 600

// Composer writes borrower correspondence via the chat endpoint. It never
// returns an error: any transport or model failure degrades to the
// deterministic letter template so letter generation always succeeds.
type Composer struct {
	client *Client
	exec   *resilience.Executor
}

func NewComposer(client *Client, exec *resilience.Executor) *Composer {
	return &Composer{client: client, exec: exec}
}

func (c *Composer) Compose(ctx context.Context, req domain.LetterRequest) string {
	var content string
	err := c.exec.Execute(ctx, "compose_letter", func(ctx context.Context) error {
		var callErr error
		content, callErr = c.client.chatCompletion(ctx, "compose", buildLetterPrompt(req), letterMaxTokens)
		return callErr
	}, classifyTransportError)
	if err != nil {
		slog.Warn("letter composition failed, falling back to template",
			"letter_type", req.Type, "error", err)
		return domain.RenderLetterTemplate(req)
	}
	if strings.TrimSpace(content) == "" {
		return domain.RenderLetterTemplate(req)
	}
	return content
}
