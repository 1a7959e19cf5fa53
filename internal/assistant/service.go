package assistant

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	openaiclient "github.com/NeuroShelf10/Neuroestante/pkg/openai"
)

const (
	// completionTemperature keeps answers conservative for clinical topics.
	completionTemperature = 0.2

	systemPrompt = "Você é a Neura, assistente de neuropsicólogos. Responda em " +
		"português de forma objetiva sobre testes, protocolos e prática clínica. " +
		"Nunca forneça diagnósticos; oriente o profissional a usar seu julgamento clínico."

	maxTurns = 30
)

// ChatMessage is one turn supplied by the client.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest is the payload for a conversation round.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// ChatResponse carries the model's reply.
type ChatResponse struct {
	Text string `json:"text"`
}

// Service answers bookshelf and practice questions via a chat model.
type Service interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type service struct {
	completer openaiclient.ChatCompleter
}

// NewService constructs the assistant service.
func NewService(completer openaiclient.ChatCompleter) (Service, error) {
	if completer == nil {
		return nil, fmt.Errorf("chat completer is required")
	}
	return &service{completer: completer}, nil
}

func (s *service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	turns, err := sanitize(req.Messages)
	if err != nil {
		return nil, err
	}

	messages := make([]openaiclient.Message, 0, len(turns)+1)
	messages = append(messages, openaiclient.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, turns...)

	text, err := s.completer.Complete(ctx, messages, completionTemperature)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assistant completion")
	}
	return &ChatResponse{Text: text}, nil
}

func sanitize(in []ChatMessage) ([]openaiclient.Message, error) {
	if len(in) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one message is required")
	}
	if len(in) > maxTurns {
		in = in[len(in)-maxTurns:]
	}

	out := make([]openaiclient.Message, 0, len(in))
	for _, msg := range in {
		role := strings.TrimSpace(msg.Role)
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		if role != "user" && role != "assistant" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message role must be user or assistant")
		}
		out = append(out, openaiclient.Message{Role: role, Content: content})
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one non-empty message is required")
	}
	if out[len(out)-1].Role != "user" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "last message must come from the user")
	}
	return out, nil
}
