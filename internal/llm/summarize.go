package llm

import (
	"context"
	"fmt"
)

// SummaryFormats lists the formats Summarizer accepts.
var SummaryFormats = []string{"text", "markdown", "json"}

// Summarizer condenses a session transcript.
type Summarizer struct {
	Client Client
	Model  string
}

// SummaryInstructions is the system prompt for format.
func SummaryInstructions(format string) string {
	return "You are Loopster, a CLI session summarizer.\n" +
		"Summarize the session log succinctly. Focus on:\n" +
		"- Commands executed and their intent\n" +
		"- Notable outputs, errors, and retries\n" +
		"- Configuration changes or suggestions\n" +
		"Write the summary in " + format + " format."
}

// Summarize returns a summary of log in the requested format.
func (s Summarizer) Summarize(ctx context.Context, log string, format string) (string, error) {
	if format == "" {
		format = "text"
	}
	if !validSummaryFormat(format) {
		return "", fmt.Errorf("unsupported summary format %q", format)
	}
	return s.Client.Complete(ctx, Request{
		Model:  s.Model,
		System: SummaryInstructions(format),
		User:   "Session log follows. Provide a concise summary.\n\n" + log,
	})
}

func validSummaryFormat(format string) bool {
	for _, known := range SummaryFormats {
		if format == known {
			return true
		}
	}
	return false
}
