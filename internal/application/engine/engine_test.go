package engine

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/domain/workflow"
)

// In-memory fakes

type fakeRuleRepo struct {
	rules []*entity.WorkflowRule
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *entity.WorkflowRule) error {
	f.rules = append(f.rules, rule)
	return nil
}

func (f *fakeRuleRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowRule, error) {
	for _, r := range f.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRuleRepo) ListActive(ctx context.Context, businessID, requestTypeID int64) ([]*entity.WorkflowRule, error) {
	var matched []*entity.WorkflowRule
	for _, r := range f.rules {
		if r.BusinessID == businessID && r.RequestTypeID == requestTypeID && r.IsActive {
			matched = append(matched, r)
		}
	}
	// min_amount descending with nil last, then id ascending
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch {
		case a.MinAmountCents == nil && b.MinAmountCents == nil:
			return a.ID < b.ID
		case a.MinAmountCents == nil:
			return false
		case b.MinAmountCents == nil:
			return true
		case *a.MinAmountCents != *b.MinAmountCents:
			return *a.MinAmountCents > *b.MinAmountCents
		default:
			return a.ID < b.ID
		}
	})
	return matched, nil
}

type fakeUserRepo struct {
	users []*entity.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) ListActiveDirectors(ctx context.Context, businessID int64) ([]*entity.User, error) {
	var directors []*entity.User
	for _, u := range f.users {
		if u.Role != entity.RoleDirector || !u.IsActive {
			continue
		}
		if u.BusinessID != nil && *u.BusinessID != businessID {
			continue
		}
		directors = append(directors, u)
	}
	sort.Slice(directors, func(i, j int) bool { return directors[i].ID < directors[j].ID })
	return directors, nil
}

type fakeRequestRepo struct {
	nextID   int64
	requests map[int64]*entity.FinancialRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[int64]*entity.FinancialRequest)}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *entity.FinancialRequest) error {
	f.nextID++
	req.ID = f.nextID
	req.CreatedAt = time.Now()
	f.requests[req.ID] = req
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id int64) (*entity.FinancialRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRequestRepo) UpdateStatusIf(ctx context.Context, id int64, from, to workflow.Status, decidedBy *int64, reason string, at time.Time) (bool, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	req.RejectionReason = reason
	req.FinalDecisionAt = &at
	req.FinalDecisionBy = decidedBy
	return true, nil
}

func (f *fakeRequestRepo) AdvanceStatusIf(ctx context.Context, id int64, from, to workflow.Status) (bool, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	return true, nil
}

func (f *fakeRequestRepo) UpdateAmountIfPending(ctx context.Context, id int64, amountCents int64) (bool, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != workflow.StatusPending {
		return false, nil
	}
	req.AmountCents = amountCents
	return true, nil
}

func (f *fakeRequestRepo) CountForBusinessMonth(ctx context.Context, businessID int64, year int, month time.Month) (int, error) {
	count := 0
	for _, req := range f.requests {
		if req.BusinessID == businessID && req.CreatedAt.Year() == year && req.CreatedAt.Month() == month {
			count++
		}
	}
	return count, nil
}

func (f *fakeRequestRepo) ListByUser(ctx context.Context, userID int64, filter port.RequestFilter) ([]*entity.FinancialRequest, error) {
	var result []*entity.FinancialRequest
	for _, req := range f.requests {
		if req.UserID == userID {
			result = append(result, req)
		}
	}
	return result, nil
}

func (f *fakeRequestRepo) ListByFilter(ctx context.Context, filter port.RequestFilter) ([]*entity.FinancialRequest, error) {
	var result []*entity.FinancialRequest
	for _, req := range f.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		result = append(result, req)
	}
	return result, nil
}

type fakeDecisionRepo struct {
	nextID int64
	rows   []*entity.ApprovalDecision
}

func (f *fakeDecisionRepo) CreateBatch(ctx context.Context, decisions []*entity.ApprovalDecision) error {
	for _, d := range decisions {
		for _, existing := range f.rows {
			if existing.RequestID == d.RequestID && existing.ApproverID == d.ApproverID {
				return errors.New("duplicate decision row")
			}
		}
		f.nextID++
		d.ID = f.nextID
		d.CreatedAt = time.Now()
		f.rows = append(f.rows, d)
	}
	return nil
}

func (f *fakeDecisionRepo) GetByRequestAndApprover(ctx context.Context, requestID, approverID int64) (*entity.ApprovalDecision, error) {
	for _, d := range f.rows {
		if d.RequestID == requestID && d.ApproverID == approverID {
			copied := *d
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDecisionRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.ApprovalDecision, error) {
	var result []*entity.ApprovalDecision
	for _, d := range f.rows {
		if d.RequestID == requestID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ApprovalOrder < result[j].ApprovalOrder })
	return result, nil
}

func (f *fakeDecisionRepo) DecideIfPending(ctx context.Context, requestID, approverID int64, status workflow.DecisionStatus, comments string, at time.Time) (bool, error) {
	for _, d := range f.rows {
		if d.RequestID == requestID && d.ApproverID == approverID {
			if d.Status != workflow.DecisionPending {
				return false, nil
			}
			d.Status = status
			d.Comments = comments
			d.DecidedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDecisionRepo) Summarize(ctx context.Context, requestID int64) (*entity.DecisionSummary, error) {
	summary := &entity.DecisionSummary{}
	for _, d := range f.rows {
		if d.RequestID != requestID || !d.IsRequired {
			continue
		}
		summary.RequiredTotal++
		switch d.Status {
		case workflow.DecisionApproved:
			summary.Approved++
		case workflow.DecisionRejected:
			summary.Rejected++
		}
	}
	return summary, nil
}

func (f *fakeDecisionRepo) RejectPending(ctx context.Context, requestID int64, at time.Time) (int, error) {
	flipped := 0
	for _, d := range f.rows {
		if d.RequestID == requestID && d.Status == workflow.DecisionPending {
			d.Status = workflow.DecisionRejected
			d.DecidedAt = &at
			flipped++
		}
	}
	return flipped, nil
}

func (f *fakeDecisionRepo) DeletePending(ctx context.Context, requestID int64) (int, error) {
	kept := f.rows[:0]
	deleted := 0
	for _, d := range f.rows {
		if d.RequestID == requestID && d.Status == workflow.DecisionPending {
			deleted++
			continue
		}
		kept = append(kept, d)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeDecisionRepo) ListPendingByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*entity.PendingApproval, error) {
	return nil, nil
}

func (f *fakeDecisionRepo) ListDecidedByApprover(ctx context.Context, approverID int64, limit, offset int) ([]*entity.ApproverHistoryItem, error) {
	return nil, nil
}

func (f *fakeDecisionRepo) ListPendingApproverIDs(ctx context.Context, requestID int64) ([]int64, error) {
	var ids []int64
	for _, d := range f.rows {
		if d.RequestID == requestID && d.Status == workflow.DecisionPending {
			ids = append(ids, d.ApproverID)
		}
	}
	return ids, nil
}

func (f *fakeDecisionRepo) StatsByApprover(ctx context.Context, approverID int64, since time.Time) (*port.ApproverStats, error) {
	stats := &port.ApproverStats{}
	for _, d := range f.rows {
		if d.ApproverID != approverID || d.Status == workflow.DecisionPending {
			continue
		}
		stats.TotalDecisions++
		if d.Status == workflow.DecisionApproved {
			stats.ApprovedCount++
		} else {
			stats.RejectedCount++
		}
	}
	return stats, nil
}

func (f *fakeDecisionRepo) CountPendingByApprover(ctx context.Context, approverID int64) (int, error) {
	count := 0
	for _, d := range f.rows {
		if d.ApproverID == approverID && d.Status == workflow.DecisionPending {
			count++
		}
	}
	return count, nil
}

type fakeAuditRepo struct {
	entries []*entity.AuditEntry
}

func (f *fakeAuditRepo) Append(ctx context.Context, e *entity.AuditEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAuditRepo) ListByRecord(ctx context.Context, tableName string, recordID int64) ([]*entity.AuditEntry, error) {
	return f.entries, nil
}

type fakeTxManager struct{}

func (f *fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Interface compliance for the fakes
var (
	_ port.WorkflowRuleRepository = (*fakeRuleRepo)(nil)
	_ port.UserRepository         = (*fakeUserRepo)(nil)
	_ port.RequestRepository      = (*fakeRequestRepo)(nil)
	_ port.DecisionRepository     = (*fakeDecisionRepo)(nil)
	_ port.AuditRepository        = (*fakeAuditRepo)(nil)
	_ port.TransactionManager     = (*fakeTxManager)(nil)
)

func ptr(v int64) *int64 { return &v }

// Resolver

func TestResolverPicksMostSpecificRule(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*entity.WorkflowRule{
		{ID: 1, BusinessID: 1, RequestTypeID: 1, MinAmountCents: ptr(100_000), RequiredApprovers: 2, IsActive: true},
		{ID: 2, BusinessID: 1, RequestTypeID: 1, MinAmountCents: ptr(1000), MaxAmountCents: ptr(99_999), RequiredApprovers: 1, IsActive: true},
		{ID: 3, BusinessID: 1, RequestTypeID: 1, RequiredApprovers: 1, IsActive: true},
	}}
	resolver := NewResolver(rules, zap.NewNop())

	tests := []struct {
		name        string
		amountCents int64
		wantRuleID  int64
	}{
		{"large amount hits highest band", 200_000, 1},
		{"mid amount hits middle band", 5000, 2},
		{"tiny amount falls to open rule", 500, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := resolver.Resolve(context.Background(), 1, 1, tt.amountCents)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rule.ID != tt.wantRuleID {
				t.Errorf("expected rule %d, got %d", tt.wantRuleID, rule.ID)
			}
		})
	}
}

func TestResolverBreaksTiesByLowestID(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*entity.WorkflowRule{
		{ID: 9, BusinessID: 1, RequestTypeID: 1, MinAmountCents: ptr(1000), RequiredApprovers: 3, IsActive: true},
		{ID: 4, BusinessID: 1, RequestTypeID: 1, MinAmountCents: ptr(1000), RequiredApprovers: 1, IsActive: true},
	}}
	resolver := NewResolver(rules, zap.NewNop())

	rule, err := resolver.Resolve(context.Background(), 1, 1, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.ID != 4 {
		t.Errorf("expected tie to break to rule 4, got %d", rule.ID)
	}
}

func TestResolverNoApplicableWorkflow(t *testing.T) {
	rules := &fakeRuleRepo{rules: []*entity.WorkflowRule{
		{ID: 1, BusinessID: 1, RequestTypeID: 1, MinAmountCents: ptr(1000), RequiredApprovers: 1, IsActive: true},
		{ID: 2, BusinessID: 1, RequestTypeID: 1, MinAmountCents: ptr(500), RequiredApprovers: 1, IsActive: false},
	}}
	resolver := NewResolver(rules, zap.NewNop())

	tests := []struct {
		name          string
		businessID    int64
		requestTypeID int64
		amountCents   int64
	}{
		{"amount below every band", 1, 1, 999},
		{"wrong business", 2, 1, 5000},
		{"wrong request type", 1, 2, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tt.businessID, tt.requestTypeID, tt.amountCents)
			if !errors.Is(err, workflow.ErrNoApplicableWorkflow) {
				t.Errorf("expected ErrNoApplicableWorkflow, got %v", err)
			}
		})
	}
}

// Selector

func TestSelectorOrdersAndTruncates(t *testing.T) {
	users := &fakeUserRepo{users: []*entity.User{
		{ID: 30, Role: entity.RoleDirector, IsActive: true, BusinessID: ptr(1)},
		{ID: 10, Role: entity.RoleDirector, IsActive: true},
		{ID: 20, Role: entity.RoleDirector, IsActive: true, BusinessID: ptr(1)},
		{ID: 5, Role: entity.RoleDirector, IsActive: false},
		{ID: 1, Role: entity.RoleEmployee, IsActive: true, BusinessID: ptr(1)},
		{ID: 40, Role: entity.RoleDirector, IsActive: true, BusinessID: ptr(2)},
	}}
	selector := NewSelector(users, zap.NewNop())

	rule := &entity.WorkflowRule{ID: 1, RequiredApprovers: 2}
	approvers, err := selector.SelectApprovers(context.Background(), rule, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(approvers) != 2 {
		t.Fatalf("expected 2 approvers, got %d", len(approvers))
	}
	if approvers[0].ID != 10 || approvers[1].ID != 20 {
		t.Errorf("expected approvers [10 20], got [%d %d]", approvers[0].ID, approvers[1].ID)
	}
}

func TestSelectorShortPool(t *testing.T) {
	users := &fakeUserRepo{users: []*entity.User{
		{ID: 7, Role: entity.RoleDirector, IsActive: true, BusinessID: ptr(1)},
	}}
	selector := NewSelector(users, zap.NewNop())

	rule := &entity.WorkflowRule{ID: 1, RequiredApprovers: 3}
	approvers, err := selector.SelectApprovers(context.Background(), rule, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approvers) != 1 {
		t.Errorf("expected pool-limited single approver, got %d", len(approvers))
	}
}

func TestSelectorEmptyPool(t *testing.T) {
	selector := NewSelector(&fakeUserRepo{}, zap.NewNop())

	rule := &entity.WorkflowRule{ID: 1, RequiredApprovers: 1}
	_, err := selector.SelectApprovers(context.Background(), rule, 1)
	if !errors.Is(err, workflow.ErrNoEligibleApprovers) {
		t.Errorf("expected ErrNoEligibleApprovers, got %v", err)
	}
}

// Recorder and Aggregator

type recorderFixture struct {
	requests  *fakeRequestRepo
	decisions *fakeDecisionRepo
	audit     *fakeAuditRepo
	recorder  *Recorder
}

func newRecorderFixture(t *testing.T, approverIDs ...int64) (*recorderFixture, int64) {
	t.Helper()

	requests := newFakeRequestRepo()
	decisions := &fakeDecisionRepo{}
	audit := &fakeAuditRepo{}

	logger := zap.NewNop()
	aggregator := NewAggregator(requests, decisions, logger)
	recorder := NewRecorder(requests, decisions, audit, aggregator, &fakeTxManager{}, logger)

	req := &entity.FinancialRequest{
		BusinessID:    1,
		RequestTypeID: 1,
		UserID:        100,
		Title:         "team offsite",
		AmountCents:   50_000,
		Status:        workflow.StatusPending,
	}
	if err := requests.Create(context.Background(), req); err != nil {
		t.Fatalf("create request: %v", err)
	}

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
	if err := decisions.CreateBatch(context.Background(), rows); err != nil {
		t.Fatalf("create decisions: %v", err)
	}

	return &recorderFixture{
		requests:  requests,
		decisions: decisions,
		audit:     audit,
		recorder:  recorder,
	}, req.ID
}

func TestRecorderQuorumApproves(t *testing.T) {
	fx, reqID := newRecorderFixture(t, 10, 20)

	result, err := fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionApproved, "ok")
	if err != nil {
		t.Fatalf("first decision failed: %v", err)
	}
	if result.Transition != nil {
		t.Errorf("expected no transition after first approval, got %+v", result.Transition)
	}
	if result.Request.Status != workflow.StatusPending {
		t.Errorf("expected request still pending, got %s", result.Request.Status)
	}

	result, err = fx.recorder.Record(context.Background(), reqID, 20, workflow.DecisionApproved, "")
	if err != nil {
		t.Fatalf("second decision failed: %v", err)
	}
	if result.Transition == nil || result.Transition.To != workflow.StatusApproved {
		t.Fatalf("expected transition to approved, got %+v", result.Transition)
	}
	if result.Request.Status != workflow.StatusApproved {
		t.Errorf("expected request approved, got %s", result.Request.Status)
	}
	if result.Request.FinalDecisionBy == nil || *result.Request.FinalDecisionBy != 20 {
		t.Errorf("expected final decision by approver 20, got %v", result.Request.FinalDecisionBy)
	}
	if result.Request.FinalDecisionAt == nil {
		t.Error("expected final decision timestamp to be set")
	}
}

func TestRecorderSingleRejectionVetoes(t *testing.T) {
	fx, reqID := newRecorderFixture(t, 10, 20, 30)

	if _, err := fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionApproved, ""); err != nil {
		t.Fatalf("approval failed: %v", err)
	}

	result, err := fx.recorder.Record(context.Background(), reqID, 20, workflow.DecisionRejected, "over budget")
	if err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if result.Transition == nil || result.Transition.To != workflow.StatusRejected {
		t.Fatalf("expected transition to rejected, got %+v", result.Transition)
	}
	if result.Request.Status != workflow.StatusRejected {
		t.Errorf("expected request rejected, got %s", result.Request.Status)
	}

	// The third approver's slot is closed with the request
	_, err = fx.recorder.Record(context.Background(), reqID, 30, workflow.DecisionApproved, "")
	if !errors.Is(err, workflow.ErrRequestAlreadyFinalized) {
		t.Errorf("expected ErrRequestAlreadyFinalized, got %v", err)
	}
}

func TestRecorderDecisionAlreadyMade(t *testing.T) {
	fx, reqID := newRecorderFixture(t, 10, 20)

	if _, err := fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionApproved, ""); err != nil {
		t.Fatalf("first decision failed: %v", err)
	}

	_, err := fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionRejected, "changed my mind")
	if !errors.Is(err, workflow.ErrDecisionAlreadyMade) {
		t.Errorf("expected ErrDecisionAlreadyMade, got %v", err)
	}

	// The prior decision is untouched
	row, _ := fx.decisions.GetByRequestAndApprover(context.Background(), reqID, 10)
	if row.Status != workflow.DecisionApproved {
		t.Errorf("expected original approval to stand, got %s", row.Status)
	}
}

func TestRecorderNotAnApprover(t *testing.T) {
	fx, reqID := newRecorderFixture(t, 10)

	_, err := fx.recorder.Record(context.Background(), reqID, 99, workflow.DecisionApproved, "")
	if !errors.Is(err, workflow.ErrNotAnApprover) {
		t.Errorf("expected ErrNotAnApprover, got %v", err)
	}
}

func TestRecorderRequestNotFound(t *testing.T) {
	fx, _ := newRecorderFixture(t, 10)

	_, err := fx.recorder.Record(context.Background(), 999, 10, workflow.DecisionApproved, "")
	if !errors.Is(err, workflow.ErrRequestNotFound) {
		t.Errorf("expected ErrRequestNotFound, got %v", err)
	}
}

func TestRecorderInvalidDecision(t *testing.T) {
	fx, reqID := newRecorderFixture(t, 10)

	_, err := fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionStatus("maybe"), "")
	if !errors.Is(err, workflow.ErrInvalidDecision) {
		t.Errorf("expected ErrInvalidDecision, got %v", err)
	}
	_, err = fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionPending, "")
	if !errors.Is(err, workflow.ErrInvalidDecision) {
		t.Errorf("expected ErrInvalidDecision for pending, got %v", err)
	}
}

func TestRecorderAppendsAudit(t *testing.T) {
	fx, reqID := newRecorderFixture(t, 10)

	if _, err := fx.recorder.Record(context.Background(), reqID, 10, workflow.DecisionApproved, "fine"); err != nil {
		t.Fatalf("decision failed: %v", err)
	}

	if len(fx.audit.entries) == 0 {
		t.Fatal("expected an audit entry")
	}
	entry := fx.audit.entries[0]
	if entry.Action != entity.AuditApprove {
		t.Errorf("expected approve action, got %s", entry.Action)
	}
	if entry.UserID == nil || *entry.UserID != 10 {
		t.Errorf("expected audit user 10, got %v", entry.UserID)
	}
}

func TestAggregatorIdempotentFinalization(t *testing.T) {
	requests := newFakeRequestRepo()
	decisions := &fakeDecisionRepo{}
	aggregator := NewAggregator(requests, decisions, zap.NewNop())

	req := &entity.FinancialRequest{Status: workflow.StatusPending, UserID: 1, BusinessID: 1}
	_ = requests.Create(context.Background(), req)
	_ = decisions.CreateBatch(context.Background(), []*entity.ApprovalDecision{
		{RequestID: req.ID, ApproverID: 10, ApprovalOrder: 1, IsRequired: true, Status: workflow.DecisionApproved},
	})

	actor := int64(10)
	transition, err := aggregator.Aggregate(context.Background(), req.ID, &actor)
	if err != nil {
		t.Fatalf("first aggregate failed: %v", err)
	}
	if transition == nil || transition.To != workflow.StatusApproved {
		t.Fatalf("expected approval transition, got %+v", transition)
	}

	// A second evaluation of the same satisfied workflow is a no-op
	transition, err = aggregator.Aggregate(context.Background(), req.ID, &actor)
	if err != nil {
		t.Fatalf("second aggregate failed: %v", err)
	}
	if transition != nil {
		t.Errorf("expected no transition on re-aggregation, got %+v", transition)
	}

	stored, _ := requests.GetByID(context.Background(), req.ID)
	if stored.Status != workflow.StatusApproved {
		t.Errorf("expected request to stay approved, got %s", stored.Status)
	}
}

func TestAggregatorIgnoresRequestsWithoutDecisionRows(t *testing.T) {
	requests := newFakeRequestRepo()
	decisions := &fakeDecisionRepo{}
	aggregator := NewAggregator(requests, decisions, zap.NewNop())

	// Auto-approved requests carry zero decision rows; an empty summary
	// must never count as a satisfied quorum.
	req := &entity.FinancialRequest{Status: workflow.StatusPending, UserID: 1, BusinessID: 1}
	_ = requests.Create(context.Background(), req)

	transition, err := aggregator.Aggregate(context.Background(), req.ID, nil)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if transition != nil {
		t.Errorf("expected no transition with zero decision rows, got %+v", transition)
	}
}

func TestAggregatorWaitsForQuorum(t *testing.T) {
	requests := newFakeRequestRepo()
	decisions := &fakeDecisionRepo{}
	aggregator := NewAggregator(requests, decisions, zap.NewNop())

	req := &entity.FinancialRequest{Status: workflow.StatusPending, UserID: 1, BusinessID: 1}
	_ = requests.Create(context.Background(), req)
	_ = decisions.CreateBatch(context.Background(), []*entity.ApprovalDecision{
		{RequestID: req.ID, ApproverID: 10, ApprovalOrder: 1, IsRequired: true, Status: workflow.DecisionApproved},
		{RequestID: req.ID, ApproverID: 20, ApprovalOrder: 2, IsRequired: true, Status: workflow.DecisionPending},
	})

	transition, err := aggregator.Aggregate(context.Background(), req.ID, nil)
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if transition != nil {
		t.Errorf("expected request to wait for quorum, got %+v", transition)
	}
}
