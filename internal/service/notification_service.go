package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// NotificationService implements Notifier. Rows are persisted by the
// workflow inside its transaction; this service only handles post-commit
// delivery, so a failed channel never rolls back a transition.
type NotificationService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	cfg        config.NotificationConfig
	logger     *zap.Logger
}

// NewNotificationService wires the delivery channels.
func NewNotificationService(store repository.Store, dispatcher events.Dispatcher, redis *persistence.Redis, cfg config.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		store:      store,
		dispatcher: dispatcher,
		redis:      redis,
		cfg:        cfg,
		logger:     logger,
	}
}

// Dispatch publishes one notification_created event per persisted row.
func (n *NotificationService) Dispatch(ctx context.Context, notifications []domain.Notification) {
	for _, notification := range notifications {
		event := events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventNotificationCreated,
			TenantID:  notification.TenantID,
			TicketID:  notification.ResourceID,
			Timestamp: time.Now().UTC(),
			Payload: events.NotificationCreatedPayload{
				NotificationID:   notification.ID,
				UserID:           notification.UserID,
				Type:             notification.Type,
				Message:          notification.Message,
				ResourceID:       notification.ResourceID,
				ResourceCustomID: notification.ResourceCustomID,
			},
		}
		if err := n.dispatcher.Publish(ctx, event); err != nil {
			n.logger.Warn("notification event publish failed",
				zap.String("user_id", notification.UserID), zap.Error(err))
		}
	}
}

// RegisterHandlers subscribes the Redis fan-out to notification events.
func (n *NotificationService) RegisterHandlers() {
	n.dispatcher.Subscribe(events.EventNotificationCreated, n.handleNotificationCreated)
}

func (n *NotificationService) handleNotificationCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NotificationCreatedPayload)
	if !ok {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("%s:%s", n.cfg.ChannelPrefix, payload.UserID)
	if err := n.redis.Publish(ctx, channel, body); err != nil {
		n.logger.Warn("redis notification publish failed",
			zap.String("channel", channel), zap.Error(err))
	}
	return nil
}

// SendEmailIfEnabled emails the given users when the tenant carries the
// email_notifications permission. Failures are logged and swallowed.
func (n *NotificationService) SendEmailIfEnabled(ctx context.Context, tenantID, subject, body string, userIDs []string) {
	if len(userIDs) == 0 {
		return
	}
	permissions, err := n.store.Tenants().Permissions(ctx, tenantID)
	if err != nil {
		n.logger.Warn("tenant permission lookup failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	enabled := false
	for _, p := range permissions {
		if p == domain.PermissionEmailNotifications {
			enabled = true
			break
		}
	}
	if !enabled {
		return
	}

	users, err := n.store.Users().ListByIDs(ctx, tenantID, userIDs)
	if err != nil {
		n.logger.Warn("email recipient lookup failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	for _, user := range users {
		if !user.IsActive || user.Email == "" {
			continue
		}
		// TODO: swap the log-only transport for SMTP once the mail relay
		// settles.
		n.logger.Info("email dispatched",
			zap.String("from", n.cfg.EmailFrom),
			zap.String("to", user.Email),
			zap.String("subject", subject),
			zap.Int("body_bytes", len(body)),
		)
	}
}

// ListForUser returns the caller's notifications, newest first.
func (n *NotificationService) ListForUser(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications, err := n.store.Notifications().ListByUser(ctx, actor.TenantID, actor.ID, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	return notifications, nil
}
