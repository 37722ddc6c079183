package ticket

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/infusio/infusio/internal/application/ticket/usecases"
	"github.com/infusio/infusio/internal/infrastructure/services"
	"github.com/infusio/infusio/internal/interfaces/http/middleware"
	"github.com/infusio/infusio/internal/shared/errors"
	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/utils"
)

// StreamServer serves a user's live event stream until ctx ends.
type StreamServer interface {
	Serve(ctx context.Context, userID string, w http.ResponseWriter) error
}

// TicketHandler serves the support routes used by the dashboard.
type TicketHandler struct {
	createTicketUC usecases.CreateTicketExecutor
	listTicketsUC  usecases.ListTicketsExecutor
	getTicketUC    usecases.GetTicketExecutor
	addMessageUC   usecases.AddUserMessageExecutor
	resolveUC      usecases.ResolveTicketExecutor
	streams        StreamServer
	logger         logger.Interface
}

func NewTicketHandler(
	createTicketUC usecases.CreateTicketExecutor,
	listTicketsUC usecases.ListTicketsExecutor,
	getTicketUC usecases.GetTicketExecutor,
	addMessageUC usecases.AddUserMessageExecutor,
	resolveUC usecases.ResolveTicketExecutor,
	streams StreamServer,
	logger logger.Interface,
) *TicketHandler {
	return &TicketHandler{
		createTicketUC: createTicketUC,
		listTicketsUC:  listTicketsUC,
		getTicketUC:    getTicketUC,
		addMessageUC:   addMessageUC,
		resolveUC:      resolveUC,
		streams:        streams,
		logger:         logger,
	}
}

// Stream handles GET /stream
func (h *TicketHandler) Stream(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	err := h.streams.Serve(c.Request.Context(), userID, c.Writer)
	switch {
	case err == nil:
	case stderrors.Is(err, services.ErrTooManyConnections):
		utils.ErrorResponse(c, http.StatusTooManyRequests, "too many open streams")
	case stderrors.Is(err, services.ErrHubShutdown):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "server is shutting down")
	case stderrors.Is(err, services.ErrStreamingNotSupported):
		h.logger.Errorw("streaming not supported by response writer", "user_id", userID)
		utils.ErrorResponseWithError(c, err)
	default:
		// headers are already out, the stream just ends
		h.logger.Debugw("event stream ended", "user_id", userID, "error", err)
	}
}

// ListMine handles GET /meus
func (h *TicketHandler) ListMine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	result, err := h.listTicketsUC.Execute(c.Request.Context(), userID)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, result)
}

// GetTicket handles GET /tickets/:id
func (h *TicketHandler) GetTicket(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.getTicketUC.Execute(c.Request.Context(), usecases.GetTicketQuery{
		TicketID: ticketID,
		UserID:   userID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, result)
}

// CreateTicket handles POST /tickets
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req CreateTicketRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warnw("invalid request body for create ticket", "error", err)
		utils.ErrorResponseWithError(c, errors.NewBadRequestError("invalid form data"))
		return
	}

	var attachment *usecases.UploadedFile
	if fh, err := c.FormFile("anexo"); err == nil {
		attachment, err = ReadUpload(fh)
		if err != nil {
			utils.ErrorResponseWithError(c, err)
			return
		}
	} else if !stderrors.Is(err, http.ErrMissingFile) && !stderrors.Is(err, http.ErrNotMultipart) {
		h.logger.Warnw("failed to read attachment", "user_id", userID, "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid attachment"))
		return
	}

	result, err := h.createTicketUC.Execute(c.Request.Context(), req.ToCommand(userID, attachment))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// AddMessage handles POST /tickets/:id/mensagens
func (h *TicketHandler) AddMessage(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req AddMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warnw("invalid request body for add message", "ticket_id", ticketID, "error", err)
		utils.ErrorResponseWithError(c, errors.NewBadRequestError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.addMessageUC.Execute(c.Request.Context(), req.ToCommand(ticketID, userID))
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// ResolveTicket handles POST /tickets/:id/resolver
func (h *TicketHandler) ResolveTicket(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	ticketID, err := utils.ParseIDParam(c, "id", "ticket")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.resolveUC.Execute(c.Request.Context(), usecases.ResolveTicketCommand{
		TicketID: ticketID,
		UserID:   userID,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.JSONResponse(c, http.StatusOK, result)
}

func requireUserID(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("missing user identity"))
		return "", false
	}
	return userID, true
}
