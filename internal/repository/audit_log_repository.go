package repository

import (
	"app/internal/domain/model"
	"context"
	"time"
)

type AuditLogFilter struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	Action       string
	ResourceType string
	From         *time.Time
	To           *time.Time
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
