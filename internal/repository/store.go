package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier abstracts the pgx surface shared by *pgxpool.Pool and pgx.Tx so
// repositories run unchanged inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store aggregates the repositories and owns the transaction boundary.
// Workflow operations run their whole read-modify-journal-notify sequence
// inside one InTx call.
type Store interface {
	Tickets() TicketRepository
	Statuses() StatusRepository
	StatusActions() StatusActionRepository
	TargetUsers() TargetUserRepository
	Updates() TicketUpdateRepository
	Reasons() ReasonRepository
	Users() UserRepository
	Tenants() TenantRepository
	Notifications() NotificationRepository
	Files() TicketFileRepository

	// InTx runs fn against a transaction-bound Store and commits on nil
	// error. Calls nested inside an existing transaction join it.
	InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error

	// LockTenantSequence serializes ticket-code allocation for a tenant.
	// Only meaningful inside a transaction; the lock releases on commit or
	// rollback.
	LockTenantSequence(ctx context.Context, tenantID string) error
}

type pgStore struct {
	pool *pgxpool.Pool
	q    Querier
}

// NewStore builds a Postgres-backed Store over a pgx pool.
func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, q: pool}
}

func (s *pgStore) Tickets() TicketRepository             { return &ticketRepository{q: s.q} }
func (s *pgStore) Statuses() StatusRepository            { return &statusRepository{q: s.q} }
func (s *pgStore) StatusActions() StatusActionRepository { return &statusActionRepository{q: s.q} }
func (s *pgStore) TargetUsers() TargetUserRepository     { return &targetUserRepository{q: s.q} }
func (s *pgStore) Updates() TicketUpdateRepository       { return &ticketUpdateRepository{q: s.q} }
func (s *pgStore) Reasons() ReasonRepository             { return &reasonRepository{q: s.q} }
func (s *pgStore) Users() UserRepository                 { return &userRepository{q: s.q} }
func (s *pgStore) Tenants() TenantRepository             { return &tenantRepository{q: s.q} }
func (s *pgStore) Notifications() NotificationRepository { return &notificationRepository{q: s.q} }
func (s *pgStore) Files() TicketFileRepository           { return &ticketFileRepository{q: s.q} }

func (s *pgStore) InTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	if _, ok := s.q.(pgx.Tx); ok {
		return fn(ctx, s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgStore{pool: s.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *pgStore) LockTenantSequence(ctx context.Context, tenantID string) error {
	_, err := s.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, tenantID)
	return err
}
