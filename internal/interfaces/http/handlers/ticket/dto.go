package ticket

import (
	"github.com/infusio/infusio/internal/application/ticket/usecases"
)

// CreateTicketRequest is the multipart form of POST /tickets. The length
// rule for descricao lives in the use case.
type CreateTicketRequest struct {
	Description string `form:"descricao" json:"descricao"`
}

func (r *CreateTicketRequest) ToCommand(userID string, attachment *usecases.UploadedFile) usecases.CreateTicketCommand {
	return usecases.CreateTicketCommand{
		UserID:      userID,
		Description: r.Description,
		Attachment:  attachment,
	}
}

// AddMessageRequest is accepted as multipart, urlencoded or JSON.
type AddMessageRequest struct {
	Text string `form:"texto" json:"texto" validate:"notblank,max=10000"`
}

func (r *AddMessageRequest) ToCommand(ticketID, userID string) usecases.AddUserMessageCommand {
	return usecases.AddUserMessageCommand{
		TicketID: ticketID,
		UserID:   userID,
		Text:     r.Text,
	}
}
