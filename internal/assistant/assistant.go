// ABOUTME: Answer generation for the metered chatbot
// ABOUTME: Defines the Answerer interface plus a static fallback for keyless setups and tests

package assistant

import (
	"context"
	"fmt"
)

// Answerer produces an answer for a user's question.
type Answerer interface {
	Answer(ctx context.Context, question string, user Identity) (string, error)
}

// Identity is the asking user, passed to the model so responses can be
// personalized. Conversations are isolated per user.
type Identity struct {
	UserID   string
	Username string
}

// StaticAnswerer returns a fixed acknowledgment. Used when no API key is
// configured, and in tests.
type StaticAnswerer struct{}

// Answer implements Answerer.
func (StaticAnswerer) Answer(_ context.Context, question string, user Identity) (string, error) {
	return fmt.Sprintf(
		"Recebemos sua pergunta: %q. No momento o assistente está operando em modo limitado; entre em contato com o suporte da Sensus: (47) 3029-2866.",
		question,
	), nil
}
