package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// memStore is an in-memory Store used by the service tests. InTx serializes
// on a mutex, mirroring how the advisory lock serializes code allocation.
type memStore struct {
	mu sync.Mutex

	tenants       map[string]*domain.Tenant
	permissions   map[string][]string
	users         map[string]*domain.User
	statuses      []*domain.Status
	actions       map[string]*domain.StatusAction
	tickets       map[string]*domain.Ticket
	chains        map[string][]*domain.TicketTargetUser
	updates       []*domain.TicketUpdate
	notifications []*domain.Notification
	corrections   []*domain.CorrectionRequest
	cancellations []*domain.CancellationReason
	disapprovals  []*domain.DisapprovalReason
	files         []*domain.TicketFile
}

func newMemStore() *memStore {
	return &memStore{
		tenants:     make(map[string]*domain.Tenant),
		permissions: make(map[string][]string),
		users:       make(map[string]*domain.User),
		actions:     make(map[string]*domain.StatusAction),
		tickets:     make(map[string]*domain.Ticket),
		chains:      make(map[string][]*domain.TicketTargetUser),
	}
}

func (m *memStore) Tickets() repository.TicketRepository             { return (*memTickets)(m) }
func (m *memStore) Statuses() repository.StatusRepository            { return (*memStatuses)(m) }
func (m *memStore) StatusActions() repository.StatusActionRepository { return (*memActions)(m) }
func (m *memStore) TargetUsers() repository.TargetUserRepository     { return (*memTargets)(m) }
func (m *memStore) Updates() repository.TicketUpdateRepository       { return (*memUpdates)(m) }
func (m *memStore) Reasons() repository.ReasonRepository             { return (*memReasons)(m) }
func (m *memStore) Users() repository.UserRepository                 { return (*memUsers)(m) }
func (m *memStore) Tenants() repository.TenantRepository             { return (*memTenants)(m) }
func (m *memStore) Notifications() repository.NotificationRepository { return (*memNotifications)(m) }
func (m *memStore) Files() repository.TicketFileRepository           { return (*memFiles)(m) }

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, s repository.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, m)
}

func (m *memStore) LockTenantSequence(ctx context.Context, tenantID string) error {
	return nil
}

type memTickets memStore

func (m *memTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	for _, existing := range m.tickets {
		if existing.TenantID == ticket.TenantID && existing.CustomID == ticket.CustomID {
			return &duplicateKeyError{}
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	return nil
}

type duplicateKeyError struct{}

func (*duplicateKeyError) Error() string { return "duplicate key value violates unique constraint" }

func (m *memTickets) Update(ctx context.Context, ticket *domain.Ticket) error {
	stored, ok := m.tickets[ticket.ID]
	if !ok || stored.TenantID != ticket.TenantID {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now().UTC()
	clone := *ticket
	m.tickets[ticket.ID] = &clone
	return nil
}

func (m *memTickets) GetByID(ctx context.Context, tenantID, id string) (*domain.Ticket, error) {
	stored, ok := m.tickets[id]
	if !ok || stored.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (m *memTickets) GetByCustomID(ctx context.Context, tenantID, customID string) (*domain.Ticket, error) {
	for _, t := range m.tickets {
		if t.TenantID == tenantID && t.CustomID == customID {
			clone := *t
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTickets) LastCustomID(ctx context.Context, tenantID string) (string, error) {
	best := ""
	bestN := int64(-1)
	for _, t := range m.tickets {
		if t.TenantID != tenantID {
			continue
		}
		idx := strings.LastIndex(t.CustomID, "-")
		if idx < 0 {
			continue
		}
		n, err := strconv.ParseInt(t.CustomID[idx+1:], 10, 64)
		if err != nil {
			continue
		}
		if n > bestN {
			bestN = n
			best = t.CustomID
		}
	}
	return best, nil
}

func (m *memTickets) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	now := time.Now().UTC()
	cutoff := domain.ArchiveCutoff(now)
	var out []domain.Ticket
	for _, t := range m.tickets {
		if t.TenantID != filter.TenantID {
			continue
		}
		if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.DepartmentID != nil && (t.DepartmentID == nil || *t.DepartmentID != *filter.DepartmentID) {
			continue
		}
		if filter.TargetUserID != nil && (t.CurrentTargetUserID == nil || *t.CurrentTargetUserID != *filter.TargetUserID) {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(t.Name), term) &&
				!strings.Contains(strings.ToLower(t.CustomID), term) {
				continue
			}
		}
		if filter.ArchivedOnly {
			if !t.IsArchived(now) {
				continue
			}
		} else if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if t.StatusKey == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		} else {
			if t.StatusKey == domain.StatusRejected || t.StatusKey == domain.StatusCanceled {
				continue
			}
			if t.StatusKey == domain.StatusCompleted && t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
				continue
			}
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memTickets) Delete(ctx context.Context, tenantID, id string) error {
	stored, ok := m.tickets[id]
	if !ok || stored.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(m.tickets, id)
	return nil
}

type memStatuses memStore

func (m *memStatuses) GetByID(ctx context.Context, tenantID, id string) (*domain.Status, error) {
	for _, s := range m.statuses {
		if s.TenantID == tenantID && s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStatuses) GetByKey(ctx context.Context, tenantID string, key domain.StatusKey) (*domain.Status, error) {
	for _, s := range m.statuses {
		if s.TenantID == tenantID && s.Key == key {
			clone := *s
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStatuses) ListByTenant(ctx context.Context, tenantID string) ([]domain.Status, error) {
	var out []domain.Status
	for _, s := range m.statuses {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memStatuses) Create(ctx context.Context, status *domain.Status) error {
	status.ID = uuid.NewString()
	status.CreatedAt = time.Now().UTC()
	clone := *status
	m.statuses = append(m.statuses, &clone)
	return nil
}

func (m *memStatuses) EnsureBuiltins(ctx context.Context, tenantID string) error {
	for _, builtin := range domain.BuiltinStatuses {
		exists := false
		for _, s := range m.statuses {
			if s.TenantID == tenantID && s.Key == builtin.Key {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		m.statuses = append(m.statuses, &domain.Status{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			Key:       builtin.Key,
			Label:     builtin.Label,
			IsDefault: true,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}

type memActions memStore

func (m *memActions) GetByID(ctx context.Context, tenantID, id string) (*domain.StatusAction, error) {
	action, ok := m.actions[id]
	if !ok || action.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *action
	return &clone, nil
}

func (m *memActions) ListByTenant(ctx context.Context, tenantID string) ([]domain.StatusAction, error) {
	var out []domain.StatusAction
	for _, a := range m.actions {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memActions) Create(ctx context.Context, action *domain.StatusAction) error {
	action.ID = uuid.NewString()
	action.CreatedAt = time.Now().UTC()
	clone := *action
	m.actions[action.ID] = &clone
	return nil
}

func (m *memActions) Delete(ctx context.Context, tenantID, id string) error {
	action, ok := m.actions[id]
	if !ok || action.TenantID != tenantID {
		return pgx.ErrNoRows
	}
	delete(m.actions, id)
	return nil
}

type memTargets memStore

func (m *memTargets) CreateChain(ctx context.Context, tenantID, ticketID string, userIDs []string) ([]domain.TicketTargetUser, error) {
	chain := make([]domain.TicketTargetUser, 0, len(userIDs))
	for i, userID := range userIDs {
		slot := &domain.TicketTargetUser{
			ID:        uuid.NewString(),
			TenantID:  tenantID,
			TicketID:  ticketID,
			UserID:    userID,
			Order:     i + 1,
			CreatedAt: time.Now().UTC(),
		}
		m.chains[ticketID] = append(m.chains[ticketID], slot)
		chain = append(chain, *slot)
	}
	return chain, nil
}

func (m *memTargets) GetByOrder(ctx context.Context, tenantID, ticketID string, order int) (*domain.TicketTargetUser, error) {
	for _, slot := range m.chains[ticketID] {
		if slot.TenantID == tenantID && slot.Order == order {
			clone := *slot
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTargets) GetByUser(ctx context.Context, tenantID, ticketID, userID string) (*domain.TicketTargetUser, error) {
	for _, slot := range m.chains[ticketID] {
		if slot.TenantID == tenantID && slot.UserID == userID {
			clone := *slot
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memTargets) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketTargetUser, error) {
	var out []domain.TicketTargetUser
	for _, slot := range m.chains[ticketID] {
		if slot.TenantID == tenantID {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *memTargets) ReplaceAt(ctx context.Context, tenantID, ticketID string, order int, userID string) error {
	for _, slot := range m.chains[ticketID] {
		if slot.TenantID == tenantID && slot.Order == order {
			slot.UserID = userID
			return nil
		}
	}
	return pgx.ErrNoRows
}

type memUpdates memStore

func (m *memUpdates) Append(ctx context.Context, update *domain.TicketUpdate) error {
	update.ID = uuid.NewString()
	update.CreatedAt = time.Now().UTC()
	clone := *update
	m.updates = append(m.updates, &clone)
	return nil
}

func (m *memUpdates) LastByToStatus(ctx context.Context, tenantID, ticketID string, to domain.StatusKey) (*domain.TicketUpdate, error) {
	var last *domain.TicketUpdate
	for _, u := range m.updates {
		if u.TenantID != tenantID || u.TicketID != ticketID || u.ToStatus != to {
			continue
		}
		if last == nil || u.CreatedAt.After(last.CreatedAt) {
			last = u
		}
	}
	if last == nil {
		return nil, nil
	}
	clone := *last
	return &clone, nil
}

func (m *memUpdates) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketUpdate, error) {
	var out []domain.TicketUpdate
	for _, u := range m.updates {
		if u.TenantID == tenantID && u.TicketID == ticketID {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memReasons memStore

func (m *memReasons) CreateCorrection(ctx context.Context, req *domain.CorrectionRequest) error {
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now().UTC()
	clone := *req
	m.corrections = append(m.corrections, &clone)
	return nil
}

func (m *memReasons) CreateCancellation(ctx context.Context, reason *domain.CancellationReason) error {
	reason.ID = uuid.NewString()
	reason.CreatedAt = time.Now().UTC()
	clone := *reason
	m.cancellations = append(m.cancellations, &clone)
	return nil
}

func (m *memReasons) CreateDisapproval(ctx context.Context, reason *domain.DisapprovalReason) error {
	reason.ID = uuid.NewString()
	reason.CreatedAt = time.Now().UTC()
	clone := *reason
	m.disapprovals = append(m.disapprovals, &clone)
	return nil
}

type memUsers memStore

func (m *memUsers) GetByID(ctx context.Context, tenantID, id string) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) ListByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.User, error) {
	var out []domain.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok && u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) GetRoleByID(ctx context.Context, tenantID, id string) (*domain.Role, error) {
	return nil, pgx.ErrNoRows
}

type memTenants memStore

func (m *memTenants) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, ok := m.tenants[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *tenant
	return &clone, nil
}

func (m *memTenants) Permissions(ctx context.Context, tenantID string) ([]string, error) {
	return m.permissions[tenantID], nil
}

type memNotifications memStore

func (m *memNotifications) Create(ctx context.Context, notification *domain.Notification) error {
	notification.ID = uuid.NewString()
	notification.CreatedAt = time.Now().UTC()
	clone := *notification
	m.notifications = append(m.notifications, &clone)
	return nil
}

func (m *memNotifications) ListByUser(ctx context.Context, tenantID, userID string, limit, offset int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range m.notifications {
		if n.TenantID == tenantID && n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memFiles memStore

func (m *memFiles) Create(ctx context.Context, file *domain.TicketFile) error {
	file.ID = uuid.NewString()
	file.CreatedAt = time.Now().UTC()
	clone := *file
	m.files = append(m.files, &clone)
	return nil
}

func (m *memFiles) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketFile, error) {
	var out []domain.TicketFile
	for _, f := range m.files {
		if f.TenantID == tenantID && f.TicketID == ticketID {
			out = append(out, *f)
		}
	}
	return out, nil
}

// fakeNotifier records post-commit fan-out calls.
type fakeNotifier struct {
	mu         sync.Mutex
	dispatched []domain.Notification
	emails     []emailCall
}

type emailCall struct {
	TenantID string
	Subject  string
	UserIDs  []string
}

func (f *fakeNotifier) Dispatch(ctx context.Context, notifications []domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatched = append(f.dispatched, notifications...)
}

func (f *fakeNotifier) SendEmailIfEnabled(ctx context.Context, tenantID, subject, body string, userIDs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emails = append(f.emails, emailCall{TenantID: tenantID, Subject: subject, UserIDs: userIDs})
}
