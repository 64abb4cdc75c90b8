// pkg/ai/openai_client.go

package ai

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"daytrip/pkg/apperr"
)

const (
	callTimeout   = 60 * time.Second
	dialTimeout   = 20 * time.Second
	headerTimeout = 60 * time.Second
)

type openAI struct {
	llm   llms.Model
	rules PromptRules
}

// NewHTTPClient is the transport used for planner calls.
func NewHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext
	tr.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Timeout: callTimeout, Transport: tr}
}

// NewOpenAI talks to an OpenAI-compatible chat endpoint. endpoint is the API
// base URL (for example https://api.openai.com/v1); empty uses the default.
func NewOpenAI(endpoint, key, model string, rules PromptRules, httpc *http.Client) (Planner, error) {
	if httpc == nil {
		httpc = NewHTTPClient()
	}
	opts := []openai.Option{
		openai.WithToken(key),
		openai.WithHTTPClient(httpc),
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	if endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/"); endpoint != "" {
		opts = append(opts, openai.WithBaseURL(endpoint))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, apperr.Wrap(apperr.PlannerUnavailable, "create openai client", err)
	}
	return &openAI{llm: llm, rules: rules}, nil
}

func (c *openAI) PlanOneDayJSON(ctx context.Context, regionLabel, placesJSON, prefsJSON string) (string, error) {
	prompt := renderPlanPrompt(c.rules, regionLabel, placesJSON, prefsJSON)
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(0.2),
		llms.WithMaxTokens(800),
	)
	if err != nil {
		return "", apperr.Wrap(apperr.PlannerUnavailable, "planner request failed", err)
	}
	return strings.TrimSpace(out), nil
}
