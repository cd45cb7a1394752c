package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationKind drives how clients render a notification.
type NotificationKind string

const (
	NotificationKindInfo    NotificationKind = "info"
	NotificationKindSuccess NotificationKind = "success"
	NotificationKindWarning NotificationKind = "warning"
)

// ParseNotificationKind rejects anything outside the known kinds.
func ParseNotificationKind(s string) (NotificationKind, error) {
	switch k := NotificationKind(s); k {
	case NotificationKindInfo, NotificationKindSuccess, NotificationKindWarning:
		return k, nil
	default:
		return "", fmt.Errorf("unrecognized notification kind %q", s)
	}
}

type Notification struct {
	ID        string           `gorm:"primaryKey;type:uuid" json:"id"`
	AccountID string           `gorm:"type:uuid;not null;index" json:"account_id"`
	Title     string           `gorm:"size:128" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Kind      NotificationKind `gorm:"size:10;not null" json:"kind"`
	Read      bool             `gorm:"default:false;index" json:"read"`
	CreatedAt time.Time        `gorm:"autoCreateTime;index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
