package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	DepartmentID  *string               `json:"department_id"`
	CategoryID    *string               `json:"category_id"`
	ReviewerID    *string               `json:"reviewer_id"`
	TargetUserIDs []string              `json:"target_user_ids"`
	DueDate       *time.Time            `json:"due_date"`
	IsPrivate     bool                  `json:"is_private"`
}

// UpdateTicketRequest carries optional metadata changes.
type UpdateTicketRequest struct {
	Name        *string                `json:"name"`
	Description *string                `json:"description"`
	Priority    *domain.TicketPriority `json:"priority"`
	DueDate     *time.Time             `json:"due_date"`
	IsPrivate   *bool                  `json:"is_private"`
	CategoryID  *string                `json:"category_id"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.StatusKey `json:"status"`
}

// ReasonRequest payload for reject, cancel and correction endpoints.
type ReasonRequest struct {
	Reason       string  `json:"reason"`
	Details      string  `json:"details"`
	TargetUserID *string `json:"target_user_id"`
}

// UpdateAssigneeRequest payload.
type UpdateAssigneeRequest struct {
	Order  int    `json:"order"`
	UserID string `json:"user_id"`
}

// UpdateReviewerRequest payload.
type UpdateReviewerRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

// AddFilesRequest payload.
type AddFilesRequest struct {
	Files []FileRequest `json:"files"`
}

// FileRequest describes attachment input.
type FileRequest struct {
	StorageKey string `json:"storage_key"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                  string                `json:"id"`
	CustomID            string                `json:"custom_id"`
	Name                string                `json:"name"`
	Status              domain.StatusKey      `json:"status"`
	Priority            domain.TicketPriority `json:"priority"`
	IsPrivate           bool                  `json:"is_private"`
	RequesterID         string                `json:"requester_id"`
	DepartmentID        *string               `json:"department_id"`
	CurrentTargetUserID *string               `json:"current_target_user_id"`
	DueDate             *time.Time            `json:"due_date"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID                  string                 `json:"id"`
	CustomID            string                 `json:"custom_id"`
	Name                string                 `json:"name"`
	Description         string                 `json:"description"`
	Status              domain.StatusKey       `json:"status"`
	Priority            domain.TicketPriority  `json:"priority"`
	IsPrivate           bool                   `json:"is_private"`
	RequesterID         string                 `json:"requester_id"`
	DepartmentID        *string                `json:"department_id"`
	CategoryID          *string                `json:"category_id"`
	ReviewerID          *string                `json:"reviewer_id"`
	CurrentTargetUserID *string                `json:"current_target_user_id"`
	DueDate             *time.Time             `json:"due_date"`
	AcceptedAt          *time.Time             `json:"accepted_at"`
	CompletedAt         *time.Time             `json:"completed_at"`
	RejectedAt          *time.Time             `json:"rejected_at"`
	CanceledAt          *time.Time             `json:"canceled_at"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
	Updates             []TicketUpdateResponse `json:"updates,omitempty"`
	Files               []TicketFileResponse   `json:"files,omitempty"`
}

// TicketUpdateResponse is one journal entry.
type TicketUpdateResponse struct {
	ID                      string              `json:"id"`
	PerformerID             string              `json:"performer_id"`
	Action                  domain.UpdateAction `json:"action"`
	FromStatus              domain.StatusKey    `json:"from_status,omitempty"`
	ToStatus                domain.StatusKey    `json:"to_status,omitempty"`
	TimeSecondsInLastStatus *int64              `json:"time_seconds_in_last_status"`
	Description             string              `json:"description"`
	CreatedAt               time.Time           `json:"created_at"`
}

// TicketFileResponse metadata.
type TicketFileResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
