// SPDX-License-Identifier: MIT

// Package classify implements zero-shot keyword classification: it turns
// web evidence into a single category label chosen by the Gemini model.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tsuyama1990/vc-testing/internal/log"
	"github.com/tsuyama1990/vc-testing/internal/metrics"
	"github.com/tsuyama1990/vc-testing/internal/normalize"
)

// Generator produces one completion for a prompt. *gemini.Client
// implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Outcome is one classification decision. Label keeps the model reply
// verbatim apart from surrounding whitespace, even when it names none of
// the candidate categories.
type Outcome struct {
	Keyword  string        `json:"keyword"`
	Label    string        `json:"label"`
	Matched  bool          `json:"matched"`
	Prompt   string        `json:"prompt,omitempty"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration"`
}

// Engine runs zero-shot classification on top of a generator.
type Engine struct {
	gen    Generator
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine.
func New(gen Generator, opts ...Option) *Engine {
	e := &Engine{
		gen:    gen,
		logger: log.WithComponent("classify"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify asks the model for the best category. Evidence snippets switch
// the prompt into its grounded form, without them the model falls back on
// its own knowledge. An unmatched label is not an error, the caller sees
// it flagged on the outcome.
func (e *Engine) Classify(ctx context.Context, keyword string, categories, evidence []string) (*Outcome, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, errors.New("classify: empty keyword")
	}
	if len(categories) == 0 {
		return nil, errors.New("classify: no categories")
	}

	prompt := BuildKeywordPrompt(keyword, categories)
	if len(evidence) > 0 {
		prompt = BuildEvidencePrompt(keyword, categories, evidence)
	}

	ctx, span := startSpan(ctx)
	defer span.End()

	start := time.Now()
	reply, err := e.gen.Generate(ctx, prompt)
	duration := time.Since(start)
	metrics.ObserveClassifyDuration(duration.Seconds())

	if err != nil {
		metrics.IncClassify("error")
		emitObs(ctx, &Outcome{Keyword: keyword, Model: e.gen.Model()}, "error")
		return nil, fmt.Errorf("classify %q: %w", keyword, err)
	}

	out := &Outcome{
		Keyword:  keyword,
		Label:    strings.TrimSpace(reply),
		Prompt:   prompt,
		Model:    e.gen.Model(),
		Duration: duration,
	}
	out.Matched = matchCategory(out.Label, categories)

	outcome := "ok"
	if !out.Matched {
		outcome = "unmatched"
	}
	metrics.IncClassify(outcome)
	emitObs(ctx, out, outcome)

	e.logger.Debug().
		Str("event", "classify.done").
		Str("keyword", keyword).
		Str("label", out.Label).
		Bool("matched", out.Matched).
		Dur("duration", duration).
		Msg("classification done")

	return out, nil
}

// matchCategory reports whether label names one of the candidates,
// ignoring case, surrounding whitespace and the zero-width characters
// models occasionally emit around single-word answers.
func matchCategory(label string, categories []string) bool {
	want := normalize.Token(label)
	if want == "" {
		return false
	}
	for _, c := range categories {
		if normalize.Token(c) == want {
			return true
		}
	}
	return false
}
