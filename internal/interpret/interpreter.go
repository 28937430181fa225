// Package interpret normalizes free-text queries into canonical department
// names using a generative-text service.
package interpret

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const interpretTimeout = 10 * time.Second

// TextGenerator is the capability the interpreter needs from the
// generative-text service.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// Interpreter maps free-text queries ("housing", "IT help desk") onto
// canonical department names for a single institution.
type Interpreter struct {
	client      TextGenerator
	model       string
	institution string
}

// NewInterpreter creates an Interpreter using the given client and model.
func NewInterpreter(client TextGenerator, model, institution string) *Interpreter {
	return &Interpreter{client: client, model: model, institution: institution}
}

// Interpret returns the canonical department name for query. On any failure
// (missing key, timeout, malformed response) it falls back to the original
// query unchanged — interpretation is best-effort and never blocks the
// resolution pipeline.
func (i *Interpreter) Interpret(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return query
	}

	ctx, cancel := context.WithTimeout(ctx, interpretTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Convert %q into the exact %s department name. Respond with only the name (e.g. UH Bookstore).",
		query, i.institution,
	)

	raw, err := i.client.GenerateText(ctx, i.model, prompt)
	if err != nil {
		slog.Warn("query interpretation failed, using raw query", "query", query, "error", err)
		return query
	}

	name := strings.TrimSpace(raw)
	if name == "" {
		slog.Warn("query interpretation returned empty text, using raw query", "query", query)
		return query
	}

	slog.Debug("query interpreted", "query", query, "department", name)
	return name
}
