package service

import (
	"context"
	"fmt"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"go.uber.org/zap"
)

// NotificationService delivers in-app notifications for workflow
// events and serves the user's notification queries. It implements
// port.Notifier; delivery transports (email, SMS) are external and out
// of scope here.
type NotificationService interface {
	port.Notifier
	ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) (int, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	requests      port.RequestRepository
	decisions     port.DecisionRepository
	logger        *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notifications port.NotificationRepository,
	requests port.RequestRepository,
	decisions port.DecisionRepository,
	logger *zap.Logger,
) NotificationService {
	return &notificationServiceImpl{
		notifications: notifications,
		requests:      requests,
		decisions:     decisions,
		logger:        logger,
	}
}

// Notify records in-app notifications for a workflow event. Called
// strictly after the triggering transaction has committed;
// fire-and-forget, failures are logged and never propagate back into
// the workflow.
func (s *notificationServiceImpl) Notify(ctx context.Context, requestID int64, event entity.NotificationEvent, actorID int64) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil || req == nil {
		s.logger.Warn("Cannot notify, request lookup failed",
			zap.Int64("request_id", requestID),
			zap.String("event", string(event)),
			zap.Error(err))
		return
	}

	switch event {
	case entity.EventNeedsApproval:
		approvers, err := s.decisions.ListPendingApproverIDs(ctx, requestID)
		if err != nil {
			s.logger.Warn("Cannot list pending approvers", zap.Int64("request_id", requestID), zap.Error(err))
			return
		}
		for _, approverID := range approvers {
			s.create(ctx, approverID, event, "Approval needed",
				fmt.Sprintf("Request %s is awaiting your approval.", req.RequestNumber), requestID)
		}

	case entity.EventApproved, entity.EventRejected:
		verb := "approved"
		if event == entity.EventRejected {
			verb = "rejected"
		}
		s.create(ctx, req.UserID, event, "Request "+verb,
			fmt.Sprintf("Your request %s has been %s.", req.RequestNumber, verb), requestID)

		// Finalize-only fan-out: approvers whose rows are still pending
		// learn the request was decided without them.
		approvers, err := s.decisions.ListPendingApproverIDs(ctx, requestID)
		if err != nil {
			s.logger.Warn("Cannot list pending approvers", zap.Int64("request_id", requestID), zap.Error(err))
			return
		}
		for _, approverID := range approvers {
			if approverID == actorID {
				continue
			}
			s.create(ctx, approverID, event, "Request decision made",
				fmt.Sprintf("Request %s was %s by another director.", req.RequestNumber, verb), requestID)
		}

	case entity.EventAutoApproved:
		s.create(ctx, req.UserID, event, "Request auto-approved",
			fmt.Sprintf("Your request %s was approved automatically.", req.RequestNumber), requestID)

	case entity.EventCancelled:
		s.create(ctx, req.UserID, event, "Request cancelled",
			fmt.Sprintf("Request %s has been cancelled.", req.RequestNumber), requestID)

	case entity.EventDecisionMade:
		s.create(ctx, req.UserID, event, "Decision recorded",
			fmt.Sprintf("A director has decided on your request %s; other approvals are still pending.", req.RequestNumber), requestID)
	}
}

func (s *notificationServiceImpl) create(ctx context.Context, userID int64, event entity.NotificationEvent, title, message string, requestID int64) {
	n := &entity.Notification{
		UserID:    userID,
		Type:      event,
		Title:     title,
		Message:   message,
		RequestID: &requestID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.logger.Warn("Failed to create notification",
			zap.Int64("user_id", userID),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}

func (s *notificationServiceImpl) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, id, userID int64) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return s.notifications.UnreadCount(ctx, userID)
}
