package middleware

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rulehub/rulehub-backend/internal/domain"
	"github.com/rulehub/rulehub-backend/pkg/logger"
)

// AuditLogger writes admin actions to audit_logs. A nil db only logs.
type AuditLogger struct {
	db *gorm.DB
	wg sync.WaitGroup
}

// NewAuditLogger creates a new AuditLogger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record logs the action performed in the current request and stores it.
func (a *AuditLogger) Record(c *gin.Context, action, resource, resourceID string) {
	entry := &domain.AuditLog{
		UserID:     GetUserID(c),
		Nickname:   GetNickname(c),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		RequestID:  GetRequestID(c),
	}

	reqLogger := logger.WithRequestID(entry.RequestID)
	reqLogger.Info().
		Str("action", action).
		Str("resource", resource).
		Str("resource_id", resourceID).
		Str("admin_id", entry.UserID).
		Str("admin_nickname", entry.Nickname).
		Msg("admin action")

	if a == nil || a.db == nil {
		return
	}

	// 요청을 막지 않도록 비동기 기록
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.db.Create(entry).Error; err != nil {
			logger.GetLogger().Error().Err(err).
				Str("action", action).
				Str("user_id", entry.UserID).
				Msg("audit log write failed")
		}
	}()
}

// Wait blocks until pending writes finish
func (a *AuditLogger) Wait() {
	if a != nil {
		a.wg.Wait()
	}
}

// List retrieves audit logs newest first, optionally filtered by user and action.
func (a *AuditLogger) List(ctx context.Context, userID, action string, page, perPage int) ([]domain.AuditLog, int64, error) {
	logs := []domain.AuditLog{}
	var total int64
	if a == nil || a.db == nil {
		return logs, 0, nil
	}

	query := a.db.WithContext(ctx).Model(&domain.AuditLog{})
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&logs).Error

	return logs, total, err
}
