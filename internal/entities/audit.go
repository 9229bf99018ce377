package entities

import "time"

type AuditEventType string

const (
	AuditEventShelfAdd       AuditEventType = "shelf_add"
	AuditEventShelfRemove    AuditEventType = "shelf_remove"
	AuditEventStatusChange   AuditEventType = "status_change"
	AuditEventRereadStart    AuditEventType = "reread_start"
	AuditEventRereadComplete AuditEventType = "reread_complete"
	AuditEventExport         AuditEventType = "export"
	AuditEventAuth           AuditEventType = "auth"
)

type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailed  AuditStatus = "failed"
)

type AuditEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	EventType   AuditEventType `gorm:"index;size:50" json:"event_type"`
	Action      string         `gorm:"size:100" json:"action"`
	Description string         `gorm:"size:500" json:"description"`
	EntryID     *uint          `gorm:"index" json:"entry_id,omitempty"`
	BookID      *uint          `json:"book_id,omitempty"`
	Metadata    string         `gorm:"type:text" json:"metadata,omitempty"` // JSON for extra data
	RequestID   string         `gorm:"size:36" json:"request_id,omitempty"`
	Status      AuditStatus    `gorm:"size:20" json:"status"`
	ErrorMsg    string         `gorm:"size:500" json:"error_msg,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
