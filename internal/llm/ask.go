package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// File is a named text attachment.
type File struct {
	Name    string
	Content string
}

// AskRequest is a free-form question with optional attachments.
type AskRequest struct {
	Model  string
	System string
	Prompt string
	Files  []File
}

// ReadFiles loads attachments from disk, naming each by its path.
func ReadFiles(paths ...string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		files = append(files, File{Name: path, Content: string(data)})
	}
	return files, nil
}

// Ask sends the prompt followed by a FILES: section to client.
func Ask(ctx context.Context, client Client, req AskRequest) (string, error) {
	if req.System == "" {
		return "", errors.New("system prompt is required")
	}
	return client.Complete(ctx, Request{
		Model:  req.Model,
		System: req.System,
		User:   ComposeUserContent(req.Prompt, req.Files),
	})
}

// ComposeUserContent joins the prompt and "=== name ===" file blocks with
// blank lines.
func ComposeUserContent(prompt string, files []File) string {
	var parts []string
	if prompt != "" {
		parts = append(parts, prompt)
	}
	if len(files) > 0 {
		parts = append(parts, "FILES:")
		for _, file := range files {
			parts = append(parts, "=== "+file.Name+" ===", file.Content)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
