package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/middleware"
	"github.com/fabriq-ai/chatcore/services/dispatch"
	"github.com/fabriq-ai/chatcore/services/providers"
	"github.com/fabriq-ai/chatcore/utils"
)

// CompletionService is the dispatch facade the handlers depend on
type CompletionService interface {
	Complete(ctx context.Context, messages []providers.Message, opts providers.GenerationOptions) (*providers.CompletionResult, error)
	ListProviders() []string
	CheckAvailability(ctx context.Context) map[string]bool
}

// ChatCompletionRequest is the inbound chat completion payload
type ChatCompletionRequest struct {
	Messages    []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Provider    string        `json:"provider,omitempty"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int          `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	TopP        *float64      `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// ChatMessage is a single inbound conversation message
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatCompletionResponse is the outbound completion payload
type ChatCompletionResponse struct {
	ID       string           `json:"id"`
	Content  string           `json:"content"`
	Provider string           `json:"provider"`
	Usage    *providers.Usage `json:"usage,omitempty"`
}

// CompletionHandler handles completion and provider status requests
type CompletionHandler struct {
	service CompletionService
	logger  *zap.Logger
}

// NewCompletionHandler creates a new CompletionHandler
func NewCompletionHandler(service CompletionService, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleChatCompletion handles POST /api/v1/chat/completions
func (h *CompletionHandler) HandleChatCompletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var chatReq ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&chatReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))

		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			_ = utils.WriteBadRequest(w, validationErr.Message, validationErr.Details())
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid request", nil)
		return
	}

	messages := make([]providers.Message, len(chatReq.Messages))
	for i, msg := range chatReq.Messages {
		messages[i] = providers.Message{Role: msg.Role, Content: msg.Content}
	}

	opts := providers.GenerationOptions{
		Provider:    chatReq.Provider,
		Model:       chatReq.Model,
		Temperature: chatReq.Temperature,
		MaxTokens:   chatReq.MaxTokens,
		TopP:        chatReq.TopP,
	}

	result, err := h.service.Complete(ctx, messages, opts)
	if err != nil {
		h.writeDispatchError(w, requestID, err)
		return
	}

	_ = utils.WriteOK(w, ChatCompletionResponse{
		ID:       uuid.New().String(),
		Content:  result.Content,
		Provider: result.Provider,
		Usage:    result.Usage,
	})
}

// HandleListProviders handles GET /api/v1/providers
func (h *CompletionHandler) HandleListProviders(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]interface{}{
		"providers": h.service.ListProviders(),
	})
}

// HandleAvailability handles GET /api/v1/providers/availability
func (h *CompletionHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]interface{}{
		"availability": h.service.CheckAvailability(r.Context()),
	})
}

// writeDispatchError maps terminal dispatch errors onto HTTP statuses. The
// facade itself does not interpret errors; this is the serving layer's job.
func (h *CompletionHandler) writeDispatchError(w http.ResponseWriter, requestID string, err error) {
	var confErr *dispatch.ConfigurationError
	if errors.As(err, &confErr) {
		h.logger.Warn("unresolvable provider",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var exhausted *dispatch.AllProvidersExhaustedError
	if errors.As(err, &exhausted) {
		h.logger.Error("all providers exhausted",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadGateway(w, err.Error())
		return
	}

	h.logger.Error("completion failed",
		zap.String("request_id", requestID),
		zap.Error(err))
	_ = utils.WriteInternalServerError(w, "")
}
