package token

import "strings"

const (
	ticketMarker = "t"
	userMarker   = "u"
)

// TicketClaims is the content of a verified reply token.
type TicketClaims struct {
	TicketID string
	UserID   string
}

// EncodeTicketPayload builds the reply-token payload t:<ticketID>:u:<userID>.
func EncodeTicketPayload(ticketID, userID string) string {
	return strings.Join([]string{ticketMarker, ticketID, userMarker, userID}, ":")
}

// ParseTicketPayload extracts the element that follows each marker.
// Missing markers yield empty strings; extra segments are ignored.
func ParseTicketPayload(payload string) (ticketID, userID string) {
	parts := strings.Split(payload, ":")
	for i := 0; i < len(parts)-1; i++ {
		switch parts[i] {
		case ticketMarker:
			if ticketID == "" {
				ticketID = parts[i+1]
			}
		case userMarker:
			if userID == "" {
				userID = parts[i+1]
			}
		}
	}
	return ticketID, userID
}

// MintReplyToken signs the payload identifying ticketID and its owner.
func (s *Signer) MintReplyToken(ticketID, userID string) string {
	return s.Sign(EncodeTicketPayload(ticketID, userID))
}

// OpenReplyToken verifies token and returns its claims. Tokens that verify but
// carry no ticket ID are rejected.
func (s *Signer) OpenReplyToken(token string) (TicketClaims, bool) {
	payload, ok := s.Verify(token)
	if !ok {
		return TicketClaims{}, false
	}

	ticketID, userID := ParseTicketPayload(payload)
	if ticketID == "" {
		return TicketClaims{}, false
	}
	return TicketClaims{TicketID: ticketID, UserID: userID}, true
}
