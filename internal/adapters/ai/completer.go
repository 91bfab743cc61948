package ai

import (
	"context"
	"net/http"

	"tradejournal/pkg/errors"
)

// Role marks who authored a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn of a conversation
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a provider-neutral text completion call
type CompletionRequest struct {
	System      string
	History     []Message
	Prompt      string
	Temperature float32
	MaxTokens   int // 0 leaves the provider default
}

// Completer produces a single text completion
type Completer interface {
	// Provider names the backend for logs and metrics
	Provider() string

	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ProviderName identifies a completion backend
type ProviderName string

const (
	ProviderGemini ProviderName = "gemini"
	ProviderOpenAI ProviderName = "openai"
)

// classifyStatus maps an HTTP status from a provider SDK onto shared sentinels
// so callers can decide what is worth retrying.
func classifyStatus(provider ProviderName, status int, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return errors.Wrapf(errors.ErrRateLimitExceeded, "%s: %v", provider, err)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errors.Wrapf(errors.ErrUnavailable, "%s: %v", provider, err)
	case http.StatusRequestTimeout:
		return errors.Wrapf(errors.ErrTimeout, "%s: %v", provider, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.Wrapf(errors.ErrUnauthorized, "%s: %v", provider, err)
	default:
		return errors.Wrapf(err, "%s completion failed", provider)
	}
}
