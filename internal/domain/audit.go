package domain

import "time"

// AuditLog 관리자 변경 작업 기록
type AuditLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"column:user_id;size:64;index" json:"userId"`
	Nickname   string    `gorm:"column:nickname;size:64" json:"nickname,omitempty"`
	Action     string    `gorm:"column:action;size:64;index" json:"action"` // rule.create, rule.delete, search.reindex, ...
	Resource   string    `gorm:"column:resource;size:32" json:"resource"`   // rule, category, search
	ResourceID string    `gorm:"column:resource_id;size:191" json:"resourceId"`
	ClientIP   string    `gorm:"column:client_ip;size:64" json:"clientIp"`
	UserAgent  string    `gorm:"column:user_agent;size:255" json:"userAgent"`
	RequestID  string    `gorm:"column:request_id;size:64" json:"requestId"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime;index" json:"createdAt"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditLogPage 감사 로그 목록 응답
type AuditLogPage struct {
	Items      []AuditLog `json:"items"`
	Pagination Pagination `json:"pagination"`
}
