package llm

import (
	"context"
	"errors"
	"net/http"

	"pkt.systems/loopster/internal/logx"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAI talks to the chat completions endpoint.
type OpenAI struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request.
func (provider *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	model, err := pickModel(req, provider.model)
	if err != nil {
		return "", err
	}
	log := logx.WithModel(logx.Ctx(ctx), ProviderOpenAI, model)
	wire := openaiRequest{Model: model}
	if req.System != "" {
		wire.Messages = append(wire.Messages, openaiMessage{Role: "system", Content: req.System})
	}
	wire.Messages = append(wire.Messages, openaiMessage{Role: "user", Content: req.User})
	if log != nil {
		log.Debug("llm request", "user_len", len(req.User), "system_len", len(req.System))
	}

	var resp openaiResponse
	headers := map[string]string{"Authorization": "Bearer " + provider.apiKey}
	if err := postJSON(ctx, provider.httpClient, provider.baseURL+"/chat/completions", headers, wire, &resp, "openai"); err != nil {
		if log != nil {
			log.Warn("llm request failed", "err", err)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	text := resp.Choices[0].Message.Content
	if log != nil {
		log.Debug("llm response", "len", len(text))
	}
	return text, nil
}
