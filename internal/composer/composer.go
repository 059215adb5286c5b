// Package composer builds the language model prompts for the clinical stage
// and checks the generated answer against the output policy.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"post-discharge-assistant/internal/agent"
	"post-discharge-assistant/internal/metrics"
	"post-discharge-assistant/internal/record"
)

// ReferenceContext supplies reference-book context for a question. It never
// fails; problems come back as placeholder text.
type ReferenceContext interface {
	Context(ctx context.Context, query string) string
}

type Request struct {
	Record   record.PatientRecord
	Question string
}

type Answer struct {
	Text               string
	ReferenceContext   string
	WebResults         []agent.WebResult
	DisclaimerAppended bool
	MissingCitations   bool
}

type Composer struct {
	reference ReferenceContext
	web       agent.WebSearcher
	model     agent.LanguageModel
	log       zerolog.Logger
}

func New(reference ReferenceContext, web agent.WebSearcher, model agent.LanguageModel, log zerolog.Logger) *Composer {
	return &Composer{reference: reference, web: web, model: model, log: log}
}

// Answer gathers both context sources, asks the model, and enforces the
// disclaimer. Web search and model errors abort the answer.
func (c *Composer) Answer(ctx context.Context, req Request) (Answer, error) {
	refContext := c.reference.Context(ctx, req.Question)
	c.log.Info().Msg("Retrieved context from reference book")

	webResults, err := c.web.Search(ctx, req.Question)
	if err != nil {
		return Answer{}, fmt.Errorf("web search: %w", err)
	}
	c.log.Info().Int("results", len(webResults)).Msg("Retrieved context from web search")

	prompt := clinicalPrompt(req.Record, req.Question, refContext, agent.FormatWebResults(webResults))

	start := time.Now()
	text, err := c.model.Generate(ctx, prompt)
	metrics.ObserveModelCall("answer", err, time.Since(start))
	if err != nil {
		return Answer{}, fmt.Errorf("language model: %w", err)
	}

	checked, appended, missingCitations := enforcePolicy(text)
	if appended {
		metrics.RecordPolicyViolation("disclaimer")
		c.log.Warn().Msg("Answer was missing the mandatory disclaimer; appended it")
	}
	if missingCitations {
		metrics.RecordPolicyViolation("citation")
		c.log.Warn().Msg("Answer does not cite any source")
	}
	c.log.Info().Msg("Clinical agent generated final response")

	return Answer{
		Text:               checked,
		ReferenceContext:   refContext,
		WebResults:         webResults,
		DisclaimerAppended: appended,
		MissingCitations:   missingCitations,
	}, nil
}

// Greeting welcomes a patient whose report was just confirmed. A model
// failure falls back to a greeting built from the record.
func (c *Composer) Greeting(ctx context.Context, rec record.PatientRecord) string {
	start := time.Now()
	text, err := c.model.Generate(ctx, greetingPrompt(rec))
	metrics.ObserveModelCall("greeting", err, time.Since(start))
	if err != nil || strings.TrimSpace(text) == "" {
		c.log.Warn().Err(err).Msg("Greeting generation failed, using static greeting")
		return staticGreeting(rec)
	}
	return text
}

// enforcePolicy appends the disclaimer unless the answer already closes with it, and reports
// whether any citation marker is present.
func enforcePolicy(text string) (out string, appended, missingCitations bool) {
	out = strings.TrimRight(text, " \t\n")
	if !endsWithDisclaimer(out) {
		if out != "" {
			out += "\n\n"
		}
		out += Disclaimer
		appended = true
	}
	missingCitations = !strings.Contains(out, CitationReference) && !strings.Contains(out, CitationWeb)
	return out, appended, missingCitations
}

// endsWithDisclaimer ignores markdown emphasis, quotes and line wrapping.
func endsWithDisclaimer(text string) bool {
	return strings.HasSuffix(normalizeSpace(text), normalizeSpace(Disclaimer))
}

var markup = strings.NewReplacer("*", "", "_", "", `"`, "")

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(markup.Replace(s)), " ")
}
