// services/notification_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ambassador-program/logging"
	"ambassador-program/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JSONWriter is a connected client that accepts notification frames.
type JSONWriter interface {
	WriteJSON(v any) error
}

var errSubscriptionClosed = errors.New("subscription closed")

// Subscription is one socket registered with the hub. Writes are serialized,
// and none happen after Close returns.
type Subscription struct {
	mu     sync.Mutex
	w      JSONWriter
	closed bool

	hub       *NotificationHub
	accountID string
}

// Send writes v to this socket only.
func (s *Subscription) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSubscriptionClosed
	}
	return s.w.WriteJSON(v)
}

// Close removes the socket from the hub and waits for an in-flight write.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	delete(s.hub.subs[s.accountID], s)
	if len(s.hub.subs[s.accountID]) == 0 {
		delete(s.hub.subs, s.accountID)
	}
	s.hub.mu.Unlock()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// NotificationHub fans persisted notifications out to live sockets, keyed by account.
type NotificationHub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers w for accountID. The caller must Close the subscription
// before releasing w.
func (h *NotificationHub) Subscribe(accountID string, w JSONWriter) *Subscription {
	sub := &Subscription{w: w, hub: h, accountID: accountID}
	h.mu.Lock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[*Subscription]struct{})
	}
	h.subs[accountID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Publish writes v to every socket of accountID and returns how many got it.
func (h *NotificationHub) Publish(accountID string, v any) int {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs[accountID]))
	for sub := range h.subs[accountID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		if err := sub.Send(v); err != nil {
			logging.Logger.Debug("websocket push failed", zap.String("account_id", accountID), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

type NotificationService struct {
	DB  *gorm.DB
	Hub *NotificationHub
}

func NewNotificationService(db *gorm.DB, hub *NotificationHub) *NotificationService {
	return &NotificationService{DB: db, Hub: hub}
}

// Notify persists a notification and pushes it to the account's open sockets.
func (s *NotificationService) Notify(ctx context.Context, accountID, title, message string, kind models.NotificationKind) error {
	if _, err := models.ParseNotificationKind(string(kind)); err != nil {
		return ValidationError("%v", err)
	}
	n := models.Notification{AccountID: accountID, Title: title, Message: message, Kind: kind}
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if s.Hub != nil {
		s.Hub.Publish(accountID, notificationFrame(n))
	}
	return nil
}

// notificationFrame is the frame sent over the socket.
func notificationFrame(n models.Notification) map[string]any {
	return map[string]any{"type": "notification", "notification": n}
}

func (s *NotificationService) List(ctx context.Context, accountID string, unreadOnly bool) ([]models.Notification, error) {
	query := s.DB.WithContext(ctx).Where("account_id = ?", accountID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var out []models.Notification
	if err := query.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkAllRead returns how many notifications changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, accountID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("account_id = ? AND read = ?", accountID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (s *NotificationService) MarkRead(ctx context.Context, accountID, notificationID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND account_id = ?", notificationID, accountID).
		Update("read", true)
	if res.Error != nil {
		return fmt.Errorf("mark notification read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFoundError("notification %s not found", notificationID)
	}
	return nil
}

// Cleanup deletes read notifications older than retention.
func (s *NotificationService) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := s.DB.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("cleanup notifications: %w", res.Error)
	}
	logging.Logger.Info("🧹 notifications cleaned up", zap.Int64("deleted", res.RowsAffected))
	return res.RowsAffected, nil
}
