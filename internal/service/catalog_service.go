package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// CatalogService manages the tenant status catalog and its custom
// transition actions.
type CatalogService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewCatalogService(store repository.Store, logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

// SeedDefaults makes sure the tenant carries every built-in status.
func (s *CatalogService) SeedDefaults(ctx context.Context, tenantID string) error {
	if err := s.store.Statuses().EnsureBuiltins(ctx, tenantID); err != nil {
		return util.MapError(err)
	}
	return nil
}

// ListStatuses returns the tenant's full status catalog.
func (s *CatalogService) ListStatuses(ctx context.Context, actor *domain.User) ([]domain.Status, error) {
	statuses, err := s.store.Statuses().ListByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return statuses, nil
}

// CreateStatus adds a tenant-defined status. Built-in keys are reserved.
func (s *CatalogService) CreateStatus(ctx context.Context, actor *domain.User, key, label string) (*domain.Status, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	label = strings.TrimSpace(label)
	if key == "" || label == "" {
		return nil, util.NewValidationError("key and label required", nil)
	}
	statusKey := domain.StatusKey(key)
	if statusKey.IsBuiltin() {
		return nil, util.NewValidationError("key is reserved for a built-in status", map[string]any{"key": key})
	}
	status := &domain.Status{
		TenantID:  actor.TenantID,
		Key:       statusKey,
		Label:     label,
		IsDefault: false,
	}
	if err := s.store.Statuses().Create(ctx, status); err != nil {
		return nil, util.MapError(err)
	}
	return status, nil
}

// ListActions returns the tenant's custom transition actions.
func (s *CatalogService) ListActions(ctx context.Context, actor *domain.User) ([]domain.StatusAction, error) {
	actions, err := s.store.StatusActions().ListByTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, util.MapError(err)
	}
	return actions, nil
}

// CreateAction defines a custom transition. The source may not be a
// built-in status; the target may stay open and be set later, but the
// action stays unusable until it is.
func (s *CatalogService) CreateAction(ctx context.Context, actor *domain.User, fromStatusID string, toStatusID *string, title string) (*domain.StatusAction, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, util.NewValidationError("title required", nil)
	}
	from, err := s.store.Statuses().GetByID(ctx, actor.TenantID, fromStatusID)
	if err != nil {
		if util.IsNoRows(err) {
			return nil, util.NewNotFound(util.CodeStatusNotFound, "source status not found", nil)
		}
		return nil, util.MapError(err)
	}
	if from.IsDefault {
		return nil, util.NewForbidden(util.CodeDefaultStatusAction, "actions cannot start from a built-in status")
	}
	if toStatusID != nil {
		if _, err := s.store.Statuses().GetByID(ctx, actor.TenantID, *toStatusID); err != nil {
			if util.IsNoRows(err) {
				return nil, util.NewNotFound(util.CodeStatusNotFound, "target status not found", nil)
			}
			return nil, util.MapError(err)
		}
	}
	action := &domain.StatusAction{
		TenantID:     actor.TenantID,
		FromStatusID: fromStatusID,
		ToStatusID:   toStatusID,
		Title:        title,
	}
	if err := s.store.StatusActions().Create(ctx, action); err != nil {
		return nil, util.MapError(err)
	}
	return action, nil
}

// DeleteAction removes a custom transition action.
func (s *CatalogService) DeleteAction(ctx context.Context, actor *domain.User, actionID string) error {
	if err := s.store.StatusActions().Delete(ctx, actor.TenantID, actionID); err != nil {
		if util.IsNoRows(err) {
			return util.NewNotFound(util.CodeActionNotFound, "status action not found", nil)
		}
		return util.MapError(err)
	}
	return nil
}
