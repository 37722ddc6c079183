package ticket

// EventTicketUpdated is the SSE event name pushed to a ticket owner whenever
// the ticket is created or changes.
const EventTicketUpdated = "ticket_updated"
