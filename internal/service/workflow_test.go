package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

type testEnv struct {
	store    *memStore
	notifier *fakeNotifier
	metrics  *observability.Metrics
	svc      *TicketService
	catalog  *CatalogService
	tenant   *domain.Tenant

	requester *domain.User
	workerA   *domain.User
	workerB   *domain.User
	reviewer  *domain.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	tenant := &domain.Tenant{ID: uuid.NewString(), CustomKey: "TNT", Name: "Acme"}
	store.tenants[tenant.ID] = tenant
	store.permissions[tenant.ID] = []string{domain.PermissionEmailNotifications}
	require.NoError(t, store.Statuses().EnsureBuiltins(context.Background(), tenant.ID))

	env := &testEnv{
		store:    store,
		notifier: &fakeNotifier{},
		metrics:  observability.NewMetrics(),
		tenant:   tenant,
	}
	env.svc = NewTicketService(store, env.notifier, env.metrics, zap.NewNop())
	env.catalog = NewCatalogService(store, zap.NewNop())

	env.requester = env.addUser("Rita", "Requester")
	env.workerA = env.addUser("Alex", "Ops")
	env.workerB = env.addUser("Bo", "Finance")
	env.reviewer = env.addUser("Rae", "Review")
	return env
}

func (e *testEnv) addUser(first, last string) *domain.User {
	user := &domain.User{
		ID:        uuid.NewString(),
		TenantID:  e.tenant.ID,
		FirstName: first,
		LastName:  last,
		Email:     first + "." + last + "@acme.test",
		IsActive:  true,
	}
	e.store.users[user.ID] = user
	return user
}

func (e *testEnv) createTicket(t *testing.T, targets ...*domain.User) *domain.Ticket {
	t.Helper()
	ids := make([]string, 0, len(targets))
	for _, u := range targets {
		ids = append(ids, u.ID)
	}
	ticket, err := e.svc.CreateTicket(context.Background(), e.requester, TicketCreateInput{
		Name:          "Broken printer",
		Description:   "Third floor printer jams on every job",
		Priority:      domain.TicketPriorityHigh,
		ReviewerID:    &e.reviewer.ID,
		TargetUserIDs: ids,
	})
	require.NoError(t, err)
	return ticket
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *util.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestTicketLifecycleApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ticket := env.createTicket(t, env.workerA, env.workerB)
	assert.Equal(t, "TNT-1", ticket.CustomID)
	assert.Equal(t, domain.StatusPending, ticket.StatusKey)
	require.NotNil(t, ticket.CurrentTargetUserID)
	assert.Equal(t, env.workerA.ID, *ticket.CurrentTargetUserID)

	chain, err := env.store.TargetUsers().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, 1, chain[0].Order)
	assert.Equal(t, env.workerA.ID, chain[0].UserID)

	// both chain members were told about the new ticket
	assert.Len(t, env.notifier.dispatched, 2)

	ticket, err = env.svc.Accept(ctx, env.workerA, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, ticket.StatusKey)
	require.NotNil(t, ticket.AcceptedAt)

	ticket, err = env.svc.UpdateStatus(ctx, env.workerA, ticket.ID, domain.StatusAwaitingVerification)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingVerification, ticket.StatusKey)

	ticket, err = env.svc.UpdateStatus(ctx, env.reviewer, ticket.ID, domain.StatusUnderVerification)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderVerification, ticket.StatusKey)

	ticket, err = env.svc.Approve(ctx, env.reviewer, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, ticket.StatusKey)
	require.NotNil(t, ticket.CompletedAt)

	// approval notifies every chain member
	approvalNotified := map[string]bool{}
	for _, n := range env.notifier.dispatched {
		if n.Type == domain.NotificationTicketStatus && n.ResourceID == ticket.ID {
			approvalNotified[n.UserID] = true
		}
	}
	assert.True(t, approvalNotified[env.workerA.ID])
	assert.True(t, approvalNotified[env.workerB.ID])

	updates, err := env.svc.ListUpdates(ctx, env.requester, ticket.ID)
	require.NoError(t, err)
	require.Len(t, updates, 5)
	assert.Equal(t, domain.ActionCreation, updates[0].Action)
	assert.Equal(t, domain.ActionCompletion, updates[4].Action)
	assert.Equal(t, domain.StatusUnderVerification, updates[4].FromStatus)
	assert.Equal(t, domain.StatusCompleted, updates[4].ToStatus)

	assert.Equal(t, int64(1), env.metrics.TransitionCount(string(domain.StatusUnderVerification), string(domain.StatusCompleted)))
}

func TestUpdateStatusRejectsUnknownTransition(t *testing.T) {
	env := newTestEnv(t)
	ticket := env.createTicket(t, env.workerA)

	_, err := env.svc.UpdateStatus(context.Background(), env.workerA, ticket.ID, domain.StatusCompleted)
	requireCode(t, err, util.CodeInvalidTransition)

	// nothing was journaled for the refused move
	updates, listErr := env.svc.ListUpdates(context.Background(), env.requester, ticket.ID)
	require.NoError(t, listErr)
	assert.Len(t, updates, 1)
}

func TestAcceptGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA, env.workerB)

	_, err := env.svc.Accept(ctx, env.workerB, ticket.ID)
	requireCode(t, err, util.CodeNotCurrentTargetUser)

	_, err = env.svc.Accept(ctx, env.workerA, ticket.ID)
	require.NoError(t, err)

	_, err = env.svc.Accept(ctx, env.workerA, ticket.ID)
	requireCode(t, err, util.CodeInvalidTransition)
}

func TestCancelOnlyRequesterAndNonTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	_, err := env.svc.Cancel(ctx, env.workerA, ticket.ID, "no longer needed", "")
	requireCode(t, err, util.CodeNotTicketRequester)

	ticket, err = env.svc.Cancel(ctx, env.requester, ticket.ID, "no longer needed", "ordered a new printer")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, ticket.StatusKey)
	require.NotNil(t, ticket.CanceledAt)
	require.Len(t, env.store.cancellations, 1)
	assert.Equal(t, env.requester.ID, env.store.cancellations[0].CanceledByID)
	assert.Equal(t, "no longer needed", env.store.cancellations[0].Reason)

	_, err = env.svc.Cancel(ctx, env.requester, ticket.ID, "again", "")
	requireCode(t, err, util.CodeInvalidTransition)
}

func TestRejectRecordsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)
	driveToUnderVerification(t, env, ticket)

	ticket, err := env.svc.Reject(ctx, env.reviewer, ticket.ID, "work incomplete", "cables still loose")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, ticket.StatusKey)
	require.NotNil(t, ticket.RejectedAt)
	require.NotNil(t, ticket.CompletedAt)

	require.Len(t, env.store.disapprovals, 1)
	assert.Equal(t, env.reviewer.ID, env.store.disapprovals[0].RejectedByID)
	assert.Equal(t, "work incomplete", env.store.disapprovals[0].Reason)

	updates, err := env.store.Updates().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	last := updates[len(updates)-1]
	assert.Contains(t, last.Description, "work incomplete")
}

func TestRequestCorrectionTargetSelection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA, env.workerB)
	driveToUnderVerification(t, env, ticket)

	outsider := env.addUser("Out", "Sider")
	_, err := env.svc.RequestCorrection(ctx, env.reviewer, ticket.ID, "redo", "", &outsider.ID)
	requireCode(t, err, util.CodeTargetUserNotFound)

	ticket, err = env.svc.RequestCorrection(ctx, env.reviewer, ticket.ID, "redo step two", "", &env.workerB.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, ticket.StatusKey)
	require.NotNil(t, ticket.CurrentTargetUserID)
	assert.Equal(t, env.workerB.ID, *ticket.CurrentTargetUserID)
	require.Len(t, env.store.corrections, 1)
	assert.Equal(t, "redo step two", env.store.corrections[0].Reason)
}

func TestElapsedTimeInJournal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	_, err := env.svc.Accept(ctx, env.workerA, ticket.ID)
	require.NoError(t, err)

	// backdate the entry that moved the ticket into IN_PROGRESS
	for _, u := range env.store.updates {
		if u.TicketID == ticket.ID && u.ToStatus == domain.StatusInProgress {
			u.CreatedAt = time.Now().UTC().Add(-90 * time.Second)
		}
	}

	_, err = env.svc.UpdateStatus(ctx, env.workerA, ticket.ID, domain.StatusAwaitingVerification)
	require.NoError(t, err)

	updates, err := env.store.Updates().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	last := updates[len(updates)-1]
	require.NotNil(t, last.TimeSecondsInLastStatus)
	assert.InDelta(t, 90, float64(*last.TimeSecondsInLastStatus), 2)

	// the creation entry itself has no previous status to measure
	assert.Nil(t, updates[0].TimeSecondsInLastStatus)
}

func TestElapsedTimeUnknownWhenNoEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	// wipe the journal so PENDING has no recorded entry
	env.store.updates = nil

	_, err := env.svc.Accept(ctx, env.workerA, ticket.ID)
	require.NoError(t, err)

	updates, err := env.store.Updates().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].TimeSecondsInLastStatus)
}

func TestExecuteStatusActionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	triage, err := env.catalog.CreateStatus(ctx, env.workerA, "TRIAGE", "Triage")
	require.NoError(t, err)
	escalated, err := env.catalog.CreateStatus(ctx, env.workerA, "ESCALATED", "Escalated")
	require.NoError(t, err)

	action, err := env.catalog.CreateAction(ctx, env.workerA, triage.ID, &escalated.ID, "Escalate to vendor")
	require.NoError(t, err)

	_, err = env.svc.ExecuteStatusAction(ctx, env.workerA, ticket.ID, uuid.NewString())
	requireCode(t, err, util.CodeActionNotFound)

	// ticket is still in PENDING, not in the action's source status
	_, err = env.svc.ExecuteStatusAction(ctx, env.workerA, ticket.ID, action.ID)
	requireCode(t, err, util.CodeInvalidStatusForAction)

	// move the ticket into the custom source status directly
	stored := env.store.tickets[ticket.ID]
	stored.StatusID = triage.ID
	stored.StatusKey = triage.Key

	open, err := env.catalog.CreateAction(ctx, env.workerA, triage.ID, nil, "Unfinished action")
	require.NoError(t, err)
	_, err = env.svc.ExecuteStatusAction(ctx, env.workerA, ticket.ID, open.ID)
	requireCode(t, err, util.CodeMissingTargetStatus)

	dispatchedBefore := len(env.notifier.dispatched)
	ticket, err = env.svc.ExecuteStatusAction(ctx, env.workerA, ticket.ID, action.ID)
	require.NoError(t, err)
	assert.Equal(t, escalated.Key, ticket.StatusKey)

	updates, err := env.store.Updates().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	last := updates[len(updates)-1]
	assert.Equal(t, "Escalate to vendor", last.Description)
	// custom transitions journal only
	assert.Len(t, env.notifier.dispatched, dispatchedBefore)
}

func TestExecuteStatusActionRefusesDefaultSource(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	pending, err := env.store.Statuses().GetByKey(ctx, env.tenant.ID, domain.StatusPending)
	require.NoError(t, err)
	inProgress, err := env.store.Statuses().GetByKey(ctx, env.tenant.ID, domain.StatusInProgress)
	require.NoError(t, err)

	// seeded behind the service guard to exercise the runtime check
	rogue := &domain.StatusAction{
		TenantID:     env.tenant.ID,
		FromStatusID: pending.ID,
		ToStatusID:   &inProgress.ID,
		Title:        "Skip acceptance",
	}
	require.NoError(t, env.store.StatusActions().Create(ctx, rogue))

	_, err = env.svc.ExecuteStatusAction(ctx, env.workerA, ticket.ID, rogue.ID)
	requireCode(t, err, util.CodeDefaultStatusAction)
}

func driveToUnderVerification(t *testing.T, env *testEnv, ticket *domain.Ticket) {
	t.Helper()
	ctx := context.Background()
	_, err := env.svc.Accept(ctx, env.workerA, ticket.ID)
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, env.workerA, ticket.ID, domain.StatusAwaitingVerification)
	require.NoError(t, err)
	_, err = env.svc.UpdateStatus(ctx, env.reviewer, ticket.ID, domain.StatusUnderVerification)
	require.NoError(t, err)
}
