package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/roomops/pms-console/internal/adapter/api/dto"
	"github.com/roomops/pms-console/pkg/chat"
	"github.com/roomops/pms-console/pkg/conversation"
	"github.com/roomops/pms-console/pkg/logger"
)

// ChatController exposes the conversational surface of the console.
type ChatController struct {
	manager  *conversation.Manager
	chatRepo chat.Repository
	logger   logger.Logger
}

// NewChatController creates a new chat controller.
func NewChatController(manager *conversation.Manager, chatRepo chat.Repository, log logger.Logger) *ChatController {
	return &ChatController{
		manager:  manager,
		chatRepo: chatRepo,
		logger:   log,
	}
}

// ProcessMessage godoc
// @Summary Submit one free-text turn
// @Description Routes a user utterance through the action-resolution protocol
// @Tags Chat
// @Accept json
// @Produce json
// @Param message body dto.MessageRequest true "Utterance"
// @Success 200 {object} dto.TurnResponse
// @Router /api/v1/chat/messages [post]
func (c *ChatController) ProcessMessage(ctx *gin.Context) {
	var req dto.MessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			http.StatusBadRequest, "Invalid request", err.Error()))
		return
	}

	tenantID, userID, ok := c.actor(ctx)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	c.saveMessage(reqCtx, tenantID, userID, chat.RoleUser, req.Message)

	orch := c.manager.Conversation(reqCtx, tenantID, userID)
	result, err := orch.Submit(reqCtx, req.Message)
	if err != nil {
		c.turnError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c.turnResponse(reqCtx, tenantID, userID, result))
}

// SubmitForm godoc
// @Summary Submit slot-filling form values
// @Description Merges form values into the active slot-filling session; a completed form executes immediately
// @Tags Chat
// @Accept json
// @Produce json
// @Param form body dto.FormRequest true "Field values"
// @Success 200 {object} dto.TurnResponse
// @Router /api/v1/chat/form [post]
func (c *ChatController) SubmitForm(ctx *gin.Context) {
	var req dto.FormRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			http.StatusBadRequest, "Invalid request", err.Error()))
		return
	}

	tenantID, userID, ok := c.actor(ctx)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	orch := c.manager.Conversation(reqCtx, tenantID, userID)
	result, err := orch.SubmitForm(reqCtx, req.Values)
	if err != nil {
		c.turnError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c.turnResponse(reqCtx, tenantID, userID, result))
}

// SelectCandidate godoc
// @Summary Select a disambiguation candidate
// @Description Resolves the pending proposal with the chosen candidate and executes it
// @Tags Chat
// @Accept json
// @Produce json
// @Param selection body dto.CandidateRequest true "Chosen candidate"
// @Success 200 {object} dto.TurnResponse
// @Router /api/v1/chat/candidates [post]
func (c *ChatController) SelectCandidate(ctx *gin.Context) {
	var req dto.CandidateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			http.StatusBadRequest, "Invalid request", err.Error()))
		return
	}

	tenantID, userID, ok := c.actor(ctx)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	orch := c.manager.Conversation(reqCtx, tenantID, userID)
	result, err := orch.SelectCandidate(reqCtx, req.ActionType, req.ProposalID, req.CandidateID)
	if err != nil {
		c.turnError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c.turnResponse(reqCtx, tenantID, userID, result))
}

// CancelPending godoc
// @Summary Cancel the pending operation
// @Description Discards the pending confirmation or slot-filling session
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.TurnResponse
// @Router /api/v1/chat/cancel [post]
func (c *ChatController) CancelPending(ctx *gin.Context) {
	tenantID, userID, ok := c.actor(ctx)
	if !ok {
		return
	}

	reqCtx := ctx.Request.Context()
	orch := c.manager.Conversation(reqCtx, tenantID, userID)
	result, err := orch.CancelPending(reqCtx)
	if err != nil {
		c.turnError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, c.turnResponse(reqCtx, tenantID, userID, result))
}

// GetHistory godoc
// @Summary Get the chat transcript
// @Description Returns the staff member's messages, newest first
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.HistoryResponse
// @Router /api/v1/chat/history [get]
func (c *ChatController) GetHistory(ctx *gin.Context) {
	tenantID, userID, ok := c.actor(ctx)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	page := dto.GetPagination(offset/max(limit, 1)+1, limit)

	reqCtx := ctx.Request.Context()
	messages, err := c.chatRepo.GetUserHistory(reqCtx, tenantID, userID, page.PageSize, offset)
	if err != nil {
		c.logger.Error("failed to fetch chat history", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			http.StatusInternalServerError, "Failed to fetch history", err.Error()))
		return
	}

	total, err := c.chatRepo.CountUserMessages(reqCtx, tenantID, userID)
	if err != nil {
		c.logger.Warn("failed to count chat history", "error", err)
	}

	ctx.JSON(http.StatusOK, dto.HistoryResponse{Messages: messages, Total: total})
}

// DeleteHistory godoc
// @Summary Delete the chat transcript
// @Tags Chat
// @Produce json
// @Success 200 {object} dto.SuccessResponse
// @Router /api/v1/chat/history [delete]
func (c *ChatController) DeleteHistory(ctx *gin.Context) {
	tenantID, userID, ok := c.actor(ctx)
	if !ok {
		return
	}

	if err := c.chatRepo.DeleteUserHistory(ctx.Request.Context(), tenantID, userID); err != nil {
		c.logger.Error("failed to delete chat history", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			http.StatusInternalServerError, "Failed to delete history", err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, dto.NewSuccessResponse("History deleted", nil))
}

// actor reads the authenticated staff member from the gin context.
func (c *ChatController) actor(ctx *gin.Context) (tenantID, userID string, ok bool) {
	tenantID = ctx.GetString("tenant_id")
	userID = ctx.GetString("user_id")
	if tenantID == "" || userID == "" {
		c.logger.Error("missing actor in request context")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			http.StatusUnauthorized, "Authentication required", ""))
		return "", "", false
	}
	return tenantID, userID, true
}

// turnResponse persists the turn's assistant messages and builds the
// response payload. Notices come first so a superseded-proposal
// cancellation lands in the transcript before the new prompt.
func (c *ChatController) turnResponse(ctx context.Context, tenantID, userID string, result *conversation.TurnResult) dto.TurnResponse {
	var messages []chat.Message
	for _, notice := range result.Notices {
		messages = append(messages, c.saveMessage(ctx, tenantID, userID, chat.RoleAssistant, notice))
	}
	if result.Message != "" {
		messages = append(messages, c.saveMessage(ctx, tenantID, userID, chat.RoleAssistant, result.Message))
	}

	return dto.TurnResponse{
		Kind:        dto.TurnKindString(result.Kind),
		Success:     result.Kind != conversation.TurnActionExecuted || result.Success,
		Messages:    messages,
		Pending:     result.Pending,
		FollowUp:    result.FollowUp,
		QueryResult: result.QueryResult,
		OperationID: result.OperationID,
		TopicID:     result.TopicID,
	}
}

// saveMessage appends to the transcript. Persistence failures are logged
// and the message is still returned so the console can render the turn.
func (c *ChatController) saveMessage(ctx context.Context, tenantID, userID, role, content string) chat.Message {
	message := chat.Message{
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	if err := c.chatRepo.SaveMessage(ctx, &message); err != nil {
		c.logger.Error("failed to save chat message", "role", role, "error", err)
	}
	return message
}

func (c *ChatController) turnError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, conversation.ErrTurnInFlight):
		ctx.JSON(http.StatusTooManyRequests, dto.NewErrorResponse(
			http.StatusTooManyRequests,
			"A previous request is still being processed",
			"Wait for the current turn to finish before sending another"))
	case errors.Is(err, conversation.ErrNoActiveForm):
		ctx.JSON(http.StatusConflict, dto.NewErrorResponse(
			http.StatusConflict,
			"No form is being filled",
			"The slot-filling session has ended or was never started"))
	case errors.Is(err, conversation.ErrStaleSelection):
		// Nothing was dispatched; the candidate list no longer matches the
		// pending proposal.
		ctx.JSON(http.StatusConflict, dto.NewErrorResponse(
			http.StatusConflict,
			"The selection no longer matches the pending operation",
			""))
	default:
		c.logger.Error("turn failed", "error", err)
		ctx.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			http.StatusInternalServerError, "Failed to process the request", err.Error()))
	}
}
