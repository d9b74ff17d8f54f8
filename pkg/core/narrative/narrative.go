// Package narrative turns a comparison result into a short analyst-style
// commentary using an LLM, falling back to the engine's own summary.
package narrative

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"fin_dashboard/pkg/core/agent"
	"fin_dashboard/pkg/core/compare"
	"fin_dashboard/pkg/core/logging"
	"fin_dashboard/pkg/core/present"
	"fin_dashboard/pkg/core/utils"
)

// Sources of a Narrative's text.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

const defaultTimeout = 30 * time.Second

// ProviderSource runs an agent task on its routed provider, applying the
// agent's configured model and temperature. *agent.Manager satisfies it.
type ProviderSource interface {
	ProviderName(agentType string) string
	Execute(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (string, error)
}

// Narrative is commentary attached next to a comparison result.
type Narrative struct {
	Text     string `json:"text"`
	Source   string `json:"source"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Template is the prompt pair sent to the model. UserPrompt is a
// text/template executed against a promptData.
type Template struct {
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt_template"`
}

// DefaultTemplate is used when no template file is configured.
var DefaultTemplate = Template{
	SystemPrompt: "You are an equity research analyst. Write two or three concise markdown paragraphs. " +
		"Only use the figures provided. Do not invent numbers and do not change the verdict.",
	UserPrompt: `Compare {{.Company1}} and {{.Company2}}.
Verdict: {{.Verdict}} (score {{.Score1}} to {{.Score2}}).
{{.Summary}}

| Metric | {{.Company1}} | {{.Company2}} | Better | Winner |
|---|---|---|---|---|
{{range .Rows}}| {{.DisplayName}} | {{.Company1Text}} | {{.Company2Text}} | {{.PreferenceHint}} | {{.WinnerLabel}} |
{{end}}`,
}

// LoadTemplate reads a JSON (or lenient JSON) prompt template file.
func LoadTemplate(path string) (Template, error) {
	var t Template
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read prompt template %s: %w", path, err)
	}
	if _, err := utils.SmartParse(string(data), &t); err != nil {
		return t, fmt.Errorf("parse prompt template %s: %w", path, err)
	}
	if strings.TrimSpace(t.UserPrompt) == "" {
		return t, fmt.Errorf("prompt template %s has no user_prompt_template", path)
	}
	return t, nil
}

type promptData struct {
	Company1 string
	Company2 string
	Verdict  string
	Score1   int
	Score2   int
	Summary  string
	Rows     []present.DisplayRow
}

// Summarizer produces narratives for comparison results.
type Summarizer struct {
	Source   ProviderSource
	Template Template
	Currency string
	Timeout  time.Duration
}

// NewSummarizer returns a Summarizer with the default template.
func NewSummarizer(src ProviderSource, currency string) *Summarizer {
	return &Summarizer{Source: src, Template: DefaultTemplate, Currency: currency, Timeout: defaultTimeout}
}

// Prompt renders the user prompt for result.
func (s *Summarizer) Prompt(result *compare.ComparisonResult) (string, error) {
	dm, err := present.Format(result, s.Currency)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New("comparison_summary").Parse(s.Template.UserPrompt)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, promptData{
		Company1: dm.Company1Label,
		Company2: dm.Company2Label,
		Verdict:  dm.VerdictLabel,
		Score1:   result.Company1Score(),
		Score2:   result.Company2Score(),
		Summary:  dm.Summary,
		Rows:     dm.Rows,
	})
	if err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// Summarize asks the configured provider for commentary. Provider failures
// are not returned as errors: the engine summary is used instead and the
// failure is recorded on the Narrative. Only a nil result is an error.
func (s *Summarizer) Summarize(ctx context.Context, result *compare.ComparisonResult) (Narrative, error) {
	if result == nil {
		return Narrative{}, fmt.Errorf("narrative: comparison result is nil")
	}
	log := logging.Component("narrative")
	fallback := Narrative{Text: result.Summary, Source: SourceFallback}

	if s.Source == nil {
		return fallback, nil
	}
	providerName := s.Source.ProviderName(agent.ComparisonSummary)

	prompt, err := s.Prompt(result)
	if err != nil {
		return Narrative{}, err
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := s.Source.Execute(ctx, agent.ComparisonSummary, prompt, s.Template.SystemPrompt, nil)
	if err != nil {
		log.Warn().Err(err).Str("provider", providerName).Msg("narrative generation failed, using engine summary")
		fallback.Provider = providerName
		fallback.Error = err.Error()
		return fallback, nil
	}
	text = utils.CleanMarkdown(text)
	if strings.TrimSpace(text) == "" {
		log.Warn().Str("provider", providerName).Msg("empty narrative, using engine summary")
		fallback.Provider = providerName
		fallback.Error = "empty response"
		return fallback, nil
	}

	log.Info().Str("provider", providerName).Dur("elapsed", time.Since(start)).Int("chars", len(text)).Msg("narrative generated")
	return Narrative{Text: text, Source: SourceLLM, Provider: providerName}, nil
}
