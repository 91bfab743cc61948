package ai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"tradejournal/pkg/errors"
	"tradejournal/pkg/logger"
)

var _ Completer = (*OpenAICompleter)(nil)

// OpenAICompleter calls chat completions through the official SDK
type OpenAICompleter struct {
	client  openai.Client // NewClient returns Client (not *Client)
	model   openai.ChatModel
	timeout time.Duration
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewOpenAICompleter creates an OpenAI-backed completer. SDK-level retries are
// disabled; the coaching layer owns the retry policy.
func NewOpenAICompleter(apiKey, model string, timeout time.Duration, limiter *rate.Limiter) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "openai API key is required")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	)

	return &OpenAICompleter{
		client:  client,
		model:   openai.ChatModel(model),
		timeout: timeout,
		limiter: limiter,
		log:     logger.Get().With("component", "openai_completer", "model", model),
	}, nil
}

func (o *OpenAICompleter) Provider() string { return string(ProviderOpenAI) }

// Complete sends system, history and prompt as chat messages
func (o *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", errors.Wrap(errors.ErrRateLimitExceeded, err.Error())
		}
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.History {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(float64(req.Temperature))
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", o.mapError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(errors.ErrInternal, "openai returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.Wrap(errors.ErrInternal, "openai returned an empty completion")
	}
	return text, nil
}

func (o *OpenAICompleter) mapError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrap(errors.ErrTimeout, "openai request timed out")
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(ProviderOpenAI, apiErr.StatusCode, err)
	}
	return errors.Wrap(err, "openai completion failed")
}
