package llm

import (
	"context"
	"regexp"
	"strings"
)

// Decision is the verdict of the review step of the run pipeline.
type Decision string

const (
	DecisionChange   Decision = "CHANGE"
	DecisionNoChange Decision = "NO-CHANGE"
)

// ReviewInstructions asks whether the session exposed a gap in the config.
func ReviewInstructions() string {
	return "You are Loopster, reviewing an AI assistant session against the assistant's\n" +
		"GLOBAL, project-agnostic config (system prompt).\n" +
		"Decide whether the config needs a change. Only recommend a change for a major,\n" +
		"recurring gap that is supported by evidence in the session.\n\n" +
		"The first line of your answer must be exactly one of:\n" +
		"Decision: CHANGE\n" +
		"Decision: NO-CHANGE\n" +
		"Follow it with a short justification citing the evidence."
}

// UpdateInstructions asks for the full revised config text.
func UpdateInstructions() string {
	return "You are Loopster, revising an AI assistant's GLOBAL, project-agnostic config.\n" +
		"Apply the review's recommendation and return the complete updated config.\n" +
		"- Keep the existing structure and wording where it still applies.\n" +
		"- Avoid project-specific details (absolute paths, filenames, dotfiles, repo names).\n" +
		"- Use placeholders such as <PROJECT> where needed.\n" +
		"Return only the config text, without code fences or commentary."
}

// Review runs the decision step over a summary and the current config.
func Review(ctx context.Context, client Client, model, summary, config, configName string) (string, Decision, error) {
	text, err := Ask(ctx, client, AskRequest{
		Model:  model,
		System: ReviewInstructions(),
		Prompt: "Session summary:\n\n" + summary,
		Files:  []File{{Name: configName, Content: config}},
	})
	if err != nil {
		return "", "", err
	}
	return text, ParseDecision(text), nil
}

// Update asks for the revised config following review.
func Update(ctx context.Context, client Client, model, review, config, configName string) (string, error) {
	text, err := Ask(ctx, client, AskRequest{
		Model:  model,
		System: UpdateInstructions(),
		Prompt: "Review:\n\n" + review,
		Files:  []File{{Name: configName, Content: config}},
	})
	if err != nil {
		return "", err
	}
	return stripFences(text), nil
}

var decisionLine = regexp.MustCompile(`(?i)^\s*decision\s*:\s*(no[- ]?change|change)\b`)

// ParseDecision reads the verdict from the first non-empty line. Anything
// unrecognised counts as NO-CHANGE.
func ParseDecision(text string) Decision {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := decisionLine.FindStringSubmatch(line)
		if m == nil {
			return DecisionNoChange
		}
		if strings.EqualFold(m[1], "change") {
			return DecisionChange
		}
		return DecisionNoChange
	}
	return DecisionNoChange
}

var projectSpecificPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:^|[\s"'(=:])(/(?:home|Users|root|var|etc|opt|srv|tmp|mnt|workspace)/[^\s"'()]*)`),
	regexp.MustCompile(`(?:^|[\s"'(=:])(~/[^\s"'()]*)`),
	regexp.MustCompile(`(?:^|[\s"'(=:/])(\.env(?:\.[A-Za-z0-9_-]+)?)\b`),
	regexp.MustCompile(`\b([A-Za-z]:\\[^\s"'()]*)`),
}

// ProjectSpecific returns fragments of text that tie a config to one machine
// or project: absolute and home paths, .env files and Windows drive paths.
func ProjectSpecific(text string) []string {
	seen := map[string]bool{}
	var found []string
	for _, pattern := range projectSpecificPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 || m[1] == "" || seen[m[1]] {
				continue
			}
			seen[m[1]] = true
			found = append(found, m[1])
		}
	}
	return found
}
