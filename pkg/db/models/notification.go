package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/enums"
)

// Notification is an in-app message fanned out by the notification worker
// from domain events. It is a projection, not a source of truth; the ledger
// and order tables remain authoritative.
type Notification struct {
	ID     uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index:idx_notifications_user_created"`
	Type   enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title  string                 `gorm:"column:title;not null"`
	Body   string                 `gorm:"column:body"`
	// Data carries type-specific payload for deep links, e.g. order id.
	Data      json.RawMessage `gorm:"column:data;type:jsonb"`
	IsRead    bool            `gorm:"column:is_read;not null;default:false"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_notifications_user_created"`
}
