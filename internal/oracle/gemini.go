package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quantumdie/internal/config"
	"quantumdie/internal/logging"

	"google.golang.org/genai"
)

// GeminiCollaborator calls the Gemini API through google.golang.org/genai.
// The credential is read from the environment on every call, so a missing key
// surfaces as ErrMissingCredential at roll time rather than at startup.
type GeminiCollaborator struct {
	cfg config.OracleConfig

	mu        sync.Mutex
	client    *genai.Client
	clientKey string
}

// NewGeminiCollaborator creates a collaborator for the configured model.
func NewGeminiCollaborator(cfg config.OracleConfig) *GeminiCollaborator {
	if cfg.Model == "" {
		cfg.Model = config.DefaultConfig().Oracle.Model
	}
	return &GeminiCollaborator{cfg: cfg}
}

// Model returns the model name used for requests.
func (g *GeminiCollaborator) Model() string {
	return g.cfg.Model
}

// clientFor returns a client bound to key, recreating it when the key in the
// environment changed since the last call.
func (g *GeminiCollaborator) clientFor(ctx context.Context, key string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	g.clientKey = key
	return client, nil
}

// Generate performs one GenerateContent call with JSON output.
func (g *GeminiCollaborator) Generate(ctx context.Context, req Request) (Response, error) {
	key, ok := g.cfg.LookupAPIKey()
	if !ok {
		logging.OracleError("[Gemini] Generate: API key not configured (%s/%s)", g.cfg.APIKeyEnv, g.cfg.FallbackAPIKeyEnv)
		return Response{}, fmt.Errorf("%w: set %s", ErrMissingCredential, g.cfg.APIKeyEnv)
	}

	client, err := g.clientFor(ctx, key)
	if err != nil {
		return Response{}, err
	}

	if timeout := g.cfg.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logging.OracleDebug("[Gemini] Generate: model=%s prompt_len=%d", g.cfg.Model, len(req.Prompt))
	startTime := time.Now()

	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	})
	if err != nil {
		logging.OracleError("[Gemini] Generate: request failed after %v: %v", time.Since(startTime), err)
		return Response{}, fmt.Errorf("gemini generate: %w", err)
	}

	out := Response{Text: resp.Text(), Model: g.cfg.Model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	logging.Oracle("[Gemini] Generate: completed in %v response_len=%d tokens=%d/%d",
		time.Since(startTime), len(out.Text), out.PromptTokens, out.OutputTokens)
	return out, nil
}
