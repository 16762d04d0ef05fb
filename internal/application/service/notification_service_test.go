package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

type fakeNotificationRepo struct {
	nextID        int64
	notifications []*entity.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	f.nextID++
	n.ID = f.nextID
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	var result []*entity.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, n)
	}
	return result, nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID int64) error {
	for _, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	updated := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (f *fakeNotificationRepo) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) forUser(userID int64) []*entity.Notification {
	list, _ := f.ListByUser(context.Background(), userID, false, 0)
	return list
}

type notifyFixture struct {
	service   NotificationService
	store     *fakeNotificationRepo
	requests  *fakeRequestRepo
	decisions *fakeDecisionRepo
	requestID int64
}

// newNotifyFixture seeds one pending request by user 100 with pending
// decision rows for the given approvers.
func newNotifyFixture(t *testing.T, approverIDs ...int64) *notifyFixture {
	t.Helper()

	store := &fakeNotificationRepo{}
	requests := &fakeRequestRepo{requests: make(map[int64]*entity.FinancialRequest)}
	decisions := &fakeDecisionRepo{}

	req := &entity.FinancialRequest{
		BusinessID:    1,
		RequestTypeID: 1,
		UserID:        100,
		RequestNumber: "ACME-202608-0001",
		Title:         "new laptops",
		AmountCents:   150_000,
		Status:        workflow.StatusPending,
	}
	require.NoError(t, requests.Create(context.Background(), req))

	rows := make([]*entity.ApprovalDecision, 0, len(approverIDs))
	for i, approverID := range approverIDs {
		rows = append(rows, &entity.ApprovalDecision{
			RequestID:     req.ID,
			ApproverID:    approverID,
			ApprovalOrder: i + 1,
			IsRequired:    true,
			Status:        workflow.DecisionPending,
		})
	}
	require.NoError(t, decisions.CreateBatch(context.Background(), rows))

	return &notifyFixture{
		service:   NewNotificationService(store, requests, decisions, zap.NewNop()),
		store:     store,
		requests:  requests,
		decisions: decisions,
		requestID: req.ID,
	}
}

func TestNotifyNeedsApprovalFansOutToApprovers(t *testing.T) {
	fx := newNotifyFixture(t, 10, 20)

	fx.service.Notify(context.Background(), fx.requestID, entity.EventNeedsApproval, 100)

	require.Len(t, fx.store.forUser(10), 1)
	require.Len(t, fx.store.forUser(20), 1)
	assert.Empty(t, fx.store.forUser(100), "requester is not notified of their own submission")

	n := fx.store.forUser(10)[0]
	assert.Equal(t, entity.EventNeedsApproval, n.Type)
	assert.Contains(t, n.Message, "ACME-202608-0001")
	require.NotNil(t, n.RequestID)
	assert.Equal(t, fx.requestID, *n.RequestID)
}

func TestNotifyApprovedReachesRequesterAndPendingApprovers(t *testing.T) {
	fx := newNotifyFixture(t, 10, 20, 30)

	// Director 10 finalized; 20 and 30 still hold pending rows
	_, err := fx.decisions.DecideIfPending(context.Background(), fx.requestID, 10, workflow.DecisionApproved, "", time.Now())
	require.NoError(t, err)

	fx.service.Notify(context.Background(), fx.requestID, entity.EventApproved, 10)

	require.Len(t, fx.store.forUser(100), 1)
	assert.Contains(t, fx.store.forUser(100)[0].Message, "approved")

	assert.Empty(t, fx.store.forUser(10), "the acting director is not notified of their own decision")
	require.Len(t, fx.store.forUser(20), 1)
	require.Len(t, fx.store.forUser(30), 1)
	assert.Contains(t, fx.store.forUser(20)[0].Message, "another director")
}

func TestNotifyAutoApprovedReachesRequesterOnly(t *testing.T) {
	fx := newNotifyFixture(t)

	fx.service.Notify(context.Background(), fx.requestID, entity.EventAutoApproved, 0)

	require.Len(t, fx.store.forUser(100), 1)
	assert.Contains(t, fx.store.forUser(100)[0].Message, "automatically")
	assert.Len(t, fx.store.notifications, 1)
}

func TestNotifyCancelled(t *testing.T) {
	fx := newNotifyFixture(t, 10)

	fx.service.Notify(context.Background(), fx.requestID, entity.EventCancelled, 100)

	require.Len(t, fx.store.forUser(100), 1)
	assert.Equal(t, entity.EventCancelled, fx.store.forUser(100)[0].Type)
}

func TestNotifyUnknownRequestIsSilent(t *testing.T) {
	fx := newNotifyFixture(t, 10)

	fx.service.Notify(context.Background(), 404, entity.EventApproved, 10)
	assert.Empty(t, fx.store.notifications)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	fx := newNotifyFixture(t, 10, 20)

	fx.service.Notify(context.Background(), fx.requestID, entity.EventNeedsApproval, 100)

	count, err := fx.service.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n := fx.store.forUser(10)[0]
	require.NoError(t, fx.service.MarkRead(context.Background(), n.ID, 10))

	count, err = fx.service.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Marking another user's notification is a no-op
	other := fx.store.forUser(20)[0]
	require.NoError(t, fx.service.MarkRead(context.Background(), other.ID, 10))
	count, err = fx.service.UnreadCount(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMarkAllRead(t *testing.T) {
	fx := newNotifyFixture(t, 10, 20)

	fx.service.Notify(context.Background(), fx.requestID, entity.EventNeedsApproval, 100)

	count, err := fx.service.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err := fx.service.MarkAllRead(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	count, err = fx.service.UnreadCount(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Already-read rows are not touched again
	updated, err = fx.service.MarkAllRead(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	// Other users' unread notifications are untouched
	count, err = fx.service.UnreadCount(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
