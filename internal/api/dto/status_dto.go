package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateStatusRequest payload.
type CreateStatusRequest struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// StatusResponse is one catalog row.
type StatusResponse struct {
	ID        string           `json:"id"`
	Key       domain.StatusKey `json:"key"`
	Label     string           `json:"label"`
	IsDefault bool             `json:"is_default"`
	CreatedAt time.Time        `json:"created_at"`
}

// CreateStatusActionRequest payload.
type CreateStatusActionRequest struct {
	FromStatusID string  `json:"from_status_id"`
	ToStatusID   *string `json:"to_status_id"`
	Title        string  `json:"title"`
}

// StatusActionResponse is one custom transition.
type StatusActionResponse struct {
	ID           string    `json:"id"`
	FromStatusID string    `json:"from_status_id"`
	ToStatusID   *string   `json:"to_status_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
}
