package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"pkt.systems/loopster/internal/logx"
)

const defaultGoogleURL = "https://generativelanguage.googleapis.com/v1beta"

// Google talks to the Gemini generateContent endpoint.
type Google struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleRequest struct {
	SystemInstruction *googleContent `json:"systemInstruction,omitempty"`
	Contents          []googleContent `json:"contents"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
}

// Complete sends one generateContent request.
func (provider *Google) Complete(ctx context.Context, req Request) (string, error) {
	model, err := pickModel(req, provider.model)
	if err != nil {
		return "", err
	}
	log := logx.WithModel(logx.Ctx(ctx), ProviderGoogle, model)
	wire := googleRequest{
		Contents: []googleContent{{Role: "user", Parts: []googlePart{{Text: req.User}}}},
	}
	if req.System != "" {
		wire.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.System}}}
	}
	if log != nil {
		log.Debug("llm request", "user_len", len(req.User), "system_len", len(req.System))
	}

	endpoint := provider.baseURL + "/models/" + url.PathEscape(model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": provider.apiKey}
	var resp googleResponse
	if err := postJSON(ctx, provider.httpClient, endpoint, headers, wire, &resp, "google"); err != nil {
		if log != nil {
			log.Warn("llm request failed", "err", err)
		}
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("google: response has no candidates")
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if log != nil {
		log.Debug("llm response", "len", text.Len())
	}
	return text.String(), nil
}
