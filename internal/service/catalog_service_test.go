package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.catalog.SeedDefaults(ctx, env.tenant.ID))
	require.NoError(t, env.catalog.SeedDefaults(ctx, env.tenant.ID))

	statuses, err := env.catalog.ListStatuses(ctx, env.requester)
	require.NoError(t, err)
	assert.Len(t, statuses, len(domain.BuiltinStatuses))
	for _, s := range statuses {
		assert.True(t, s.IsDefault)
	}
}

func TestCreateStatusRejectsBuiltinKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.catalog.CreateStatus(ctx, env.requester, "pending", "My Pending")
	requireCode(t, err, "validation-failed")

	status, err := env.catalog.CreateStatus(ctx, env.requester, "triage", "Triage")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusKey("TRIAGE"), status.Key)
	assert.False(t, status.IsDefault)
}

func TestCreateActionGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.store.Statuses().GetByKey(ctx, env.tenant.ID, domain.StatusPending)
	require.NoError(t, err)

	_, err = env.catalog.CreateAction(ctx, env.requester, pending.ID, nil, "From builtin")
	requireCode(t, err, util.CodeDefaultStatusAction)

	triage, err := env.catalog.CreateStatus(ctx, env.requester, "TRIAGE", "Triage")
	require.NoError(t, err)

	action, err := env.catalog.CreateAction(ctx, env.requester, triage.ID, nil, "Park")
	require.NoError(t, err)
	assert.Nil(t, action.ToStatusID)

	require.NoError(t, env.catalog.DeleteAction(ctx, env.requester, action.ID))
	err = env.catalog.DeleteAction(ctx, env.requester, action.ID)
	requireCode(t, err, util.CodeActionNotFound)
}
