package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFileRepository stores attachment metadata for tickets.
type TicketFileRepository interface {
	Create(ctx context.Context, file *domain.TicketFile) error
	ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketFile, error)
}

type ticketFileRepository struct {
	q Querier
}

func (r *ticketFileRepository) Create(ctx context.Context, file *domain.TicketFile) error {
	const query = `
        INSERT INTO ticket_files (tenant_id, ticket_id, uploaded_by_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		file.TenantID,
		file.TicketID,
		file.UploadedByID,
		file.StorageKey,
		file.FileName,
		file.MimeType,
		file.SizeBytes,
	).Scan(&file.ID, &file.CreatedAt)
}

func (r *ticketFileRepository) ListByTicket(ctx context.Context, tenantID, ticketID string) ([]domain.TicketFile, error) {
	const query = `
        SELECT id, tenant_id, ticket_id, uploaded_by_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM ticket_files WHERE tenant_id=$1 AND ticket_id=$2 ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketFile
	for rows.Next() {
		var file domain.TicketFile
		if err := rows.Scan(&file.ID, &file.TenantID, &file.TicketID, &file.UploadedByID, &file.StorageKey, &file.FileName, &file.MimeType, &file.SizeBytes, &file.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, file)
	}
	return result, rows.Err()
}
