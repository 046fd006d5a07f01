package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestCreateTicketSequentialCodes(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 3; i++ {
		ticket := env.createTicket(t, env.workerA)
		assert.Equal(t, fmt.Sprintf("TNT-%d", i), ticket.CustomID)
	}
}

func TestCreateTicketConcurrentCodesAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	codes := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := env.svc.CreateTicket(ctx, env.requester, TicketCreateInput{
				Name:          "Concurrent request",
				TargetUserIDs: []string{env.workerA.ID},
			})
			if err == nil {
				codes <- ticket.CustomID
			}
		}()
	}
	wg.Wait()
	close(codes)

	seen := map[string]bool{}
	count := 0
	for code := range codes {
		require.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
		count++
	}
	assert.Equal(t, n, count)
}

func TestCreateTicketValidations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateTicket(ctx, env.requester, TicketCreateInput{
		Name: "No targets",
	})
	requireCode(t, err, "validation-failed")

	unknown := uuid.NewString()
	_, err = env.svc.CreateTicket(ctx, env.requester, TicketCreateInput{
		Name:          "Bad target",
		TargetUserIDs: []string{unknown},
	})
	requireCode(t, err, util.CodeTargetUserNotFound)

	inactive := env.addUser("Idle", "User")
	inactive.IsActive = false
	_, err = env.svc.CreateTicket(ctx, env.requester, TicketCreateInput{
		Name:          "Inactive target",
		TargetUserIDs: []string{inactive.ID},
	})
	requireCode(t, err, util.CodeTargetUserNotFound)
}

func TestVisibilityPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	open := env.createTicket(t, env.workerA)
	recent := env.createTicket(t, env.workerA)
	old := env.createTicket(t, env.workerA)
	rejected := env.createTicket(t, env.workerA)

	now := time.Now().UTC()
	complete := func(id string, at time.Time) {
		stored := env.store.tickets[id]
		status, err := env.store.Statuses().GetByKey(ctx, env.tenant.ID, domain.StatusCompleted)
		require.NoError(t, err)
		stored.StatusID = status.ID
		stored.StatusKey = status.Key
		stored.CompletedAt = &at
	}
	complete(recent.ID, now.Add(-24*time.Hour))
	complete(old.ID, now.Add(-8*24*time.Hour))

	rejectedStatus, err := env.store.Statuses().GetByKey(ctx, env.tenant.ID, domain.StatusRejected)
	require.NoError(t, err)
	env.store.tickets[rejected.ID].StatusID = rejectedStatus.ID
	env.store.tickets[rejected.ID].StatusKey = rejectedStatus.Key

	visible, err := env.svc.FindMany(ctx, env.requester, TicketListFilter{})
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, tk := range visible {
		ids[tk.ID] = true
	}
	assert.True(t, ids[open.ID])
	assert.True(t, ids[recent.ID], "recently completed stays visible")
	assert.False(t, ids[old.ID], "completed past the cutoff is archived")
	assert.False(t, ids[rejected.ID], "rejected tickets are hidden by default")

	archived, err := env.svc.FindArchived(ctx, env.requester, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, old.ID, archived[0].ID)

	// explicit status filter overrides the default exclusion
	rejectedList, err := env.svc.FindMany(ctx, env.requester, TicketListFilter{
		Statuses: []domain.StatusKey{domain.StatusRejected},
	})
	require.NoError(t, err)
	require.Len(t, rejectedList, 1)
	assert.Equal(t, rejected.ID, rejectedList[0].ID)
}

func TestFindByReceived(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.createTicket(t, env.workerA)
	env.createTicket(t, env.workerB)

	received, err := env.svc.FindByReceived(ctx, env.workerA, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, mine.ID, received[0].ID)
}

func TestPrivateTicketHiddenFromOutsiders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket, err := env.svc.CreateTicket(ctx, env.requester, TicketCreateInput{
		Name:          "Sensitive HR case",
		TargetUserIDs: []string{env.workerA.ID},
		IsPrivate:     true,
	})
	require.NoError(t, err)

	outsider := env.addUser("Nosy", "Neighbor")
	_, err = env.svc.FindByID(ctx, outsider, ticket.ID)
	requireCode(t, err, util.CodeTicketNotFound)

	got, err := env.svc.FindByID(ctx, env.workerA, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)

	got, err = env.svc.FindByID(ctx, env.requester, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
}

func TestUpdateTicketMetadataJournaled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	newName := "Broken printer, third floor"
	urgent := domain.TicketPriorityUrgent
	ticket, err := env.svc.UpdateTicket(ctx, env.requester, ticket.ID, TicketMetadataInput{
		Name:     &newName,
		Priority: &urgent,
	})
	require.NoError(t, err)
	assert.Equal(t, newName, ticket.Name)
	assert.Equal(t, urgent, ticket.Priority)
	// metadata updates never touch the status
	assert.Equal(t, domain.StatusPending, ticket.StatusKey)

	updates, err := env.store.Updates().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionUpdate, updates[len(updates)-1].Action)
}

func TestDeleteTicketRequesterOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	err := env.svc.DeleteTicket(ctx, env.workerA, ticket.ID)
	requireCode(t, err, util.CodeNotTicketRequester)

	require.NoError(t, env.svc.DeleteTicket(ctx, env.requester, ticket.ID))
	_, err = env.svc.FindByID(ctx, env.requester, ticket.ID)
	requireCode(t, err, util.CodeTicketNotFound)
}

func TestAddFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ticket := env.createTicket(t, env.workerA)

	files, err := env.svc.AddFiles(ctx, env.workerA, ticket.ID, []FileInput{
		{StorageKey: "uploads/a.pdf", FileName: "a.pdf", MimeType: "application/pdf", SizeBytes: 1024},
		{StorageKey: "uploads/b.png", FileName: "b.png", MimeType: "image/png", SizeBytes: 2048},
	})
	require.NoError(t, err)
	require.Len(t, files, 2)

	stored, err := env.store.Files().ListByTicket(ctx, env.tenant.ID, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}
