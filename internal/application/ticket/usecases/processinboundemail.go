package usecases

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/infusio/infusio/internal/domain/ticket"
	vo "github.com/infusio/infusio/internal/domain/ticket/valueobjects"
	"github.com/infusio/infusio/internal/shared/goroutine"
	"github.com/infusio/infusio/internal/shared/logger"
	"github.com/infusio/infusio/internal/shared/utils"
)

// emptyBodyPlaceholder is stored when an inbound email has no usable body.
const emptyBodyPlaceholder = "(sem conteúdo)"

// InboundEmail is a support reply relayed by the email provider.
type InboundEmail struct {
	To          string
	From        string
	Subject     string
	Text        string
	HTML        string
	Attachments []InboundAttachment
}

// InboundOutcome tells the relay what happened to a delivery.
type InboundOutcome string

const (
	OutcomeAppended              InboundOutcome = "appended"
	OutcomeIgnoredNoCorrelation  InboundOutcome = "sem-correlacao"
	OutcomeIgnoredTicketNotFound InboundOutcome = "ticket-inexistente"
)

func (o InboundOutcome) IsIgnored() bool {
	return o == OutcomeIgnoredNoCorrelation || o == OutcomeIgnoredTicketNotFound
}

type ProcessInboundEmailResult struct {
	Outcome  InboundOutcome
	TicketID string
}

// ticketResolver finds the ticket an inbound email refers to.
type ticketResolver interface {
	Name() string
	Resolve(msg *InboundEmail) (ticketID string, ok bool)
}

// subjectResolver reads the [#tck_...] tag the outbound subject carries.
// It is the fallback for clients that reply to the From address.
type subjectResolver struct{}

var (
	subjectTicketTag  = regexp.MustCompile(`(?i)\[#(tck_[a-z0-9]+)\]`)
	subjectGenericTag = regexp.MustCompile(`(?i)\[#([a-z0-9_]+)\]`)
)

func (subjectResolver) Name() string { return "subject" }

func (subjectResolver) Resolve(msg *InboundEmail) (string, bool) {
	for _, re := range []*regexp.Regexp{subjectTicketTag, subjectGenericTag} {
		if m := re.FindStringSubmatch(msg.Subject); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// replyTokenResolver verifies the token carried in the plus-addressed
// recipient. A forged or damaged token resolves nothing.
type replyTokenResolver struct {
	pattern *regexp.Regexp
	signer  ReplyTokenSigner
}

func newReplyTokenResolver(localPart string, signer ReplyTokenSigner) *replyTokenResolver {
	return &replyTokenResolver{
		pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(localPart) + `\+tck_([^@\s>]+)`),
		signer:  signer,
	}
}

func (r *replyTokenResolver) Name() string { return "reply_token" }

func (r *replyTokenResolver) Resolve(msg *InboundEmail) (string, bool) {
	m := r.pattern.FindStringSubmatch(msg.To)
	if m == nil {
		return "", false
	}
	claims, ok := r.signer.OpenReplyToken(m[1])
	if !ok {
		return "", false
	}
	return claims.TicketID, true
}

type ProcessInboundEmailUseCase struct {
	store     ticket.Store
	storage   AttachmentStorage
	renderer  BodyRenderer
	notifier  *supportNotifier
	resolvers []ticketResolver
	logger    logger.Interface
}

func NewProcessInboundEmailUseCase(
	store ticket.Store,
	storage AttachmentStorage,
	signer ReplyTokenSigner,
	renderer BodyRenderer,
	publisher TicketEventPublisher,
	inboundLocalPart string,
	logger logger.Interface,
) *ProcessInboundEmailUseCase {
	if inboundLocalPart == "" {
		inboundLocalPart = "suporte"
	}
	return &ProcessInboundEmailUseCase{
		store:    store,
		storage:  storage,
		renderer: renderer,
		notifier: &supportNotifier{publisher: publisher, logger: logger},
		// later resolvers override earlier ones
		resolvers: []ticketResolver{
			subjectResolver{},
			newReplyTokenResolver(inboundLocalPart, signer),
		},
		logger: logger,
	}
}

// Execute correlates msg with a ticket and appends it as a support reply.
// Uncorrelated or orphaned emails are reported as ignored outcomes, not errors.
func (uc *ProcessInboundEmailUseCase) Execute(ctx context.Context, msg *InboundEmail) (result *ProcessInboundEmailResult, err error) {
	defer goroutine.RecoverInto(uc.logger, "process-inbound-email", &err)

	if msg == nil {
		msg = &InboundEmail{}
	}

	ticketID, resolvedBy := uc.resolve(msg)
	if ticketID == "" {
		uc.logger.Infow("inbound email ignored, no correlation",
			"to", utils.MaskReplyAddress(msg.To),
			"subject", msg.Subject,
		)
		return &ProcessInboundEmailResult{Outcome: OutcomeIgnoredNoCorrelation}, nil
	}

	if _, err := uc.store.GetByID(ctx, ticketID); err != nil {
		if stderrors.Is(err, ticket.ErrTicketNotFound) {
			uc.logger.Infow("inbound email ignored, unknown ticket",
				"ticket_id", ticketID,
				"resolved_by", resolvedBy,
			)
			return &ProcessInboundEmailResult{Outcome: OutcomeIgnoredTicketNotFound, TicketID: ticketID}, nil
		}
		return nil, fmt.Errorf("failed to load ticket %s: %w", ticketID, err)
	}

	attachments, err := uc.storeAttachments(ctx, ticketID, msg.Attachments)
	if err != nil {
		return nil, err
	}

	t, err := uc.store.AppendMessage(ctx, ticketID, vo.AuthorSupport, uc.pickBody(msg), attachments)
	if err != nil {
		if stderrors.Is(err, ticket.ErrTicketNotFound) {
			return &ProcessInboundEmailResult{Outcome: OutcomeIgnoredTicketNotFound, TicketID: ticketID}, nil
		}
		return nil, fmt.Errorf("failed to append support reply to %s: %w", ticketID, err)
	}

	uc.notifier.publishUpdate(ctx, t)

	uc.logger.Infow("support reply appended",
		"ticket_id", ticketID,
		"resolved_by", resolvedBy,
		"attachments", len(attachments),
		"status", t.Status().String(),
	)

	return &ProcessInboundEmailResult{Outcome: OutcomeAppended, TicketID: ticketID}, nil
}

func (uc *ProcessInboundEmailUseCase) resolve(msg *InboundEmail) (ticketID, resolvedBy string) {
	for _, r := range uc.resolvers {
		if id, ok := r.Resolve(msg); ok && id != "" {
			ticketID, resolvedBy = id, r.Name()
		}
	}
	return ticketID, resolvedBy
}

// pickBody prefers the plain text part, then the HTML part reduced to text.
func (uc *ProcessInboundEmailUseCase) pickBody(msg *InboundEmail) string {
	if text := strings.TrimSpace(msg.Text); text != "" {
		return text
	}
	if msg.HTML != "" {
		if text := uc.renderer.StripTags(msg.HTML); text != "" {
			return text
		}
	}
	return emptyBodyPlaceholder
}

// storeAttachments saves the files of a correlated email. Files that cannot
// be loaded, such as oversized parts, are skipped so the reply still lands.
func (uc *ProcessInboundEmailUseCase) storeAttachments(ctx context.Context, ticketID string, files []InboundAttachment) ([]ticket.Attachment, error) {
	if len(files) == 0 {
		return nil, nil
	}

	out := make([]ticket.Attachment, 0, len(files))
	for _, part := range files {
		f, err := part.Load()
		if err != nil {
			uc.logger.Warnw("inbound attachment skipped",
				"ticket_id", ticketID,
				"file", part.Name(),
				"error", err,
			)
			continue
		}
		stored, err := uc.storage.Save(ctx, f.Filename, f.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store inbound attachment %q: %w", f.Filename, err)
		}
		out = append(out, ticket.Attachment{Name: stored.Name, URL: stored.URL})
	}
	return out, nil
}
