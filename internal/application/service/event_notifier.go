package service

import (
	"context"

	"github.com/garyjia/finance-approval/internal/application/dispatcher"
	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/event"
	"go.uber.org/zap"
)

var eventTypes = map[entity.NotificationEvent]event.Type{
	entity.EventNeedsApproval: event.TypeRequestNeedsApproval,
	entity.EventApproved:      event.TypeRequestApproved,
	entity.EventRejected:      event.TypeRequestRejected,
	entity.EventAutoApproved:  event.TypeRequestAutoApproved,
	entity.EventCancelled:     event.TypeRequestCancelled,
	entity.EventDecisionMade:  event.TypeDecisionMade,
}

// payloadEventKey carries the notification event through the event
// payload so subscribers need no reverse type mapping
const payloadEventKey = "notification_event"

// eventNotifier implements port.Notifier by publishing workflow events
// to the dispatcher. Handlers run asynchronously; callers have already
// committed by the time Notify is invoked, so nothing here can roll a
// workflow back.
type eventNotifier struct {
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
}

// NewEventNotifier creates a Notifier backed by the event dispatcher
func NewEventNotifier(d dispatcher.Dispatcher, logger *zap.Logger) port.Notifier {
	return &eventNotifier{
		dispatcher: d,
		logger:     logger,
	}
}

func (n *eventNotifier) Notify(ctx context.Context, requestID int64, evt entity.NotificationEvent, actorID int64) {
	eventType, ok := eventTypes[evt]
	if !ok {
		n.logger.Warn("Unknown notification event",
			zap.String("event", string(evt)),
			zap.Int64("request_id", requestID))
		return
	}

	// Detach from the request context so in-flight handlers survive the
	// HTTP response
	payload := map[string]interface{}{payloadEventKey: string(evt)}
	n.dispatcher.DispatchAsync(context.WithoutCancel(ctx), event.NewEvent(eventType, requestID, actorID, payload))
}

// RegisterNotificationHandlers subscribes in-app notification delivery
// to every workflow event type
func RegisterNotificationHandlers(d dispatcher.Dispatcher, notifications NotificationService) {
	for _, eventType := range eventTypes {
		d.SubscribeNamed(eventType, "in-app-notifications", func(ctx context.Context, evt *event.Event) error {
			notifications.Notify(ctx, evt.RequestID, entity.NotificationEvent(evt.GetPayloadString(payloadEventKey)), evt.ActorID)
			return nil
		})
	}
}
