package port

import (
	"context"

	"github.com/garyjia/finance-approval/internal/domain/entity"
)

// Notifier is informed of workflow transitions. Implementations must be
// invoked only after the triggering transaction has committed; the
// engine never calls a notifier inside a transaction. ActorID is the
// user whose action triggered the event, zero for system actions.
type Notifier interface {
	Notify(ctx context.Context, requestID int64, event entity.NotificationEvent, actorID int64)
}
