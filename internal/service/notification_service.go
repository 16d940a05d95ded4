package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/config"
	"github.com/Jlndre/Capstone-eLife/internal/events"
)

// Notice is one message bound for a pensioner or an operator channel.
type Notice struct {
	Channel   string
	Target    string
	UserID    string
	EventType events.EventType
	Subject   string
}

// noticeRoute says how a pipeline event reaches people. Flagged and missed
// events also go to the operator webhook.
type noticeRoute struct {
	subject string
	webhook bool
}

var noticeRoutes = map[events.EventType]noticeRoute{
	events.EventDocumentRejected:  {subject: "Your identity document could not be verified"},
	events.EventLiveMatchFlagged:  {subject: "Your proof of life is under review", webhook: true},
	events.EventCertificateIssued: {subject: "Your life certificate is ready"},
	events.EventObligationMissed:  {subject: "A quarterly proof of life was missed", webhook: true},
}

// NotificationService turns pipeline events into notices. Delivery itself is
// a log line until a mail relay and webhook client are configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	deliver    func(ctx context.Context, n Notice)
}

func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &NotificationService{dispatcher: dispatcher, logger: logger, cfg: cfg}
	n.deliver = n.logDelivery
	return n
}

// RegisterHandlers subscribes to every routed event type.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for eventType := range noticeRoutes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	for _, notice := range n.notices(event) {
		n.deliver(ctx, notice)
	}
	return nil
}

// notices expands an event into one notice per configured channel.
func (n *NotificationService) notices(event events.Event) []Notice {
	route, ok := noticeRoutes[event.Type]
	if !ok {
		return nil
	}
	base := Notice{UserID: event.UserID, EventType: event.Type, Subject: route.subject}

	var out []Notice
	if from := strings.TrimSpace(n.cfg.EmailFrom); from != "" {
		email := base
		email.Channel, email.Target = "email", from
		out = append(out, email)
	}
	if url := strings.TrimSpace(n.cfg.WebhookURL); route.webhook && url != "" {
		hook := base
		hook.Channel, hook.Target = "webhook", url
		out = append(out, hook)
	}
	return out
}

func (n *NotificationService) logDelivery(_ context.Context, notice Notice) {
	n.logger.Info("notification queued",
		zap.String("channel", notice.Channel),
		zap.String("target", notice.Target),
		zap.String("user_id", notice.UserID),
		zap.String("event_type", string(notice.EventType)),
		zap.String("subject", notice.Subject))
}
