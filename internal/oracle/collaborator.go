package oracle

import (
	"context"

	"google.golang.org/genai"
)

// Request is one prompt plus the structured-output schema the reply must
// follow.
type Request struct {
	Prompt string
	Schema *genai.Schema
}

// Response is the raw reply of the generative service.
type Response struct {
	Text         string
	PromptTokens int
	OutputTokens int
	Model        string
}

// Collaborator is the external generative service. It is opaque: prompt and
// schema in, JSON text or error out.
type Collaborator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// CollaboratorFunc adapts a function to the Collaborator interface.
type CollaboratorFunc func(ctx context.Context, req Request) (Response, error)

func (f CollaboratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
