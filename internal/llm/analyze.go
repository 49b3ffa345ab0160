package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Analysis is the analyzer's proposal for a tool configuration.
type Analysis struct {
	Rationale     string `json:"rationale"`
	UpdatedConfig string `json:"updated_config"`
}

// Analyzer compares a session transcript against an assistant config and
// proposes a project-agnostic revision.
type Analyzer struct {
	Client Client
	Model  string
}

// AnalyzerInstructions is the analyzer system prompt.
func AnalyzerInstructions() string {
	return "You are Loopster, a CLI assistant configuration analyst.\n" +
		"Goal: Improve the assistant's GLOBAL, project-agnostic config (system prompt).\n" +
		"Given a session log and the current config, identify general lessons that\n" +
		"apply across arbitrary projects.\n\n" +
		"Constraints:\n" +
		"- Focus on durable, project-agnostic guidance (policies, reasoning steps,\n" +
		"  safety, clarification strategies, retry policy, uncertainty handling).\n" +
		"- Avoid project-specific details (paths, filenames, API schemas, repo structure,\n" +
		"  proper nouns, domain-only facts).\n" +
		"- Do not include secrets or any content copied from the session.\n" +
		"- Use placeholders where needed (e.g., <PROJECT>, <API_KEY>).\n" +
		"- Prefer concise, high-signal directives.\n\n" +
		"Output format: Return a single JSON object with exactly these keys:\n" +
		"{\"rationale\": string, \"updated_config\": string}.\n" +
		"Do not include code fences. Do not include extra text."
}

func analyzerUserContent(log, config string) string {
	return "Session log and current config follow.\n" +
		"Return a JSON object with keys 'rationale' and 'updated_config'.\n\n" +
		"=== SESSION LOG ===\n" + log + "\n\n=== CONFIG ===\n" + config
}

// Analyze asks for a revision of config based on log.
func (a Analyzer) Analyze(ctx context.Context, log, config string) (Analysis, string, error) {
	raw, err := a.Client.Complete(ctx, Request{
		Model:  a.Model,
		System: AnalyzerInstructions(),
		User:   analyzerUserContent(log, config),
	})
	if err != nil {
		return Analysis{}, "", err
	}
	analysis, err := ParseAnalysis(raw)
	return analysis, raw, err
}

// ParseAnalysis extracts the JSON object from a model reply, tolerating
// code fences and surrounding prose.
func ParseAnalysis(text string) (Analysis, error) {
	body := stripFences(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return Analysis{}, errors.New("analysis response is not a JSON object")
	}
	var analysis Analysis
	if err := json.Unmarshal([]byte(body[start:end+1]), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return analysis, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
