// Package webhook receives inbound email relayed by the mail provider.
package webhook

import (
	"mime/multipart"
	"net/http"
	"runtime/debug"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/infusio/infusio/internal/application/ticket/usecases"
	tickethandlers "github.com/infusio/infusio/internal/interfaces/http/handlers/ticket"
	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/utils"
)

// InboundEmailRequest holds the fields of an inbound parse delivery.
type InboundEmailRequest struct {
	To      string `form:"to" json:"to"`
	From    string `form:"from" json:"from"`
	Subject string `form:"subject" json:"subject"`
	Text    string `form:"text" json:"text"`
	HTML    string `form:"html" json:"html"`
}

// multipartAttachment defers reading a file part until the email has been
// matched to a ticket.
type multipartAttachment struct {
	fh *multipart.FileHeader
}

func (a multipartAttachment) Name() string { return a.fh.Filename }

func (a multipartAttachment) Load() (*usecases.UploadedFile, error) {
	return tickethandlers.ReadUpload(a.fh)
}

type EmailInboundHandler struct {
	processUC usecases.ProcessInboundEmailExecutor
	logger    logger.Interface
}

func NewEmailInboundHandler(processUC usecases.ProcessInboundEmailExecutor, logger logger.Interface) *EmailInboundHandler {
	return &EmailInboundHandler{processUC: processUC, logger: logger}
}

// Receive handles POST /webhooks/email-inbound. The relay only ever sees
// {ok:true} with 200 or 202, or {ok:false} with 500. A payload that cannot be
// parsed is processed as an empty email and ends up ignored.
func (h *EmailInboundHandler) Receive(c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorw("panic while processing inbound email",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false})
		}
	}()

	msg := h.parse(c)

	h.logger.Debugw("inbound email received",
		"to", utils.MaskReplyAddress(msg.To),
		"from", utils.MaskEmail(msg.From),
		"attachments", len(msg.Attachments),
	)

	result, err := h.processUC.Execute(c.Request.Context(), msg)
	if err != nil {
		h.logger.Errorw("failed to process inbound email", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	if result.Outcome.IsIgnored() {
		c.JSON(http.StatusAccepted, gin.H{"ok": true, "ignore": string(result.Outcome)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "ticketId": result.TicketID})
}

func (h *EmailInboundHandler) parse(c *gin.Context) *usecases.InboundEmail {
	var req InboundEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.Warnw("unreadable inbound email payload",
			"content_type", c.ContentType(),
			"error", err,
		)
		req = InboundEmailRequest{}
	}

	msg := &usecases.InboundEmail{
		To:      req.To,
		From:    req.From,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	}

	form, err := c.MultipartForm()
	if err != nil || form == nil {
		// urlencoded and JSON deliveries carry no files
		return msg
	}

	// providers name file parts attachment1, attachment2, ...; keep that order
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, fh := range form.File[field] {
			msg.Attachments = append(msg.Attachments, multipartAttachment{fh: fh})
		}
	}

	return msg
}
