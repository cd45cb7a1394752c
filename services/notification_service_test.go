package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ambassador-program/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []any
	err    error
}

func (r *recordingConn) WriteJSON(v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, v)
	return nil
}

func TestHubPublishesOnlyToSubscribedAccount(t *testing.T) {
	hub := NewNotificationHub()
	a1, a2, b := &recordingConn{}, &recordingConn{}, &recordingConn{}
	hub.Subscribe("a", a1)
	sub := hub.Subscribe("a", a2)
	hub.Subscribe("b", b)

	assert.Equal(t, 2, hub.Publish("a", "hello"))
	assert.Len(t, a1.frames, 1)
	assert.Len(t, a2.frames, 1)
	assert.Empty(t, b.frames)

	sub.Close()
	assert.Equal(t, 1, hub.Publish("a", "again"))
	assert.Len(t, a2.frames, 1)

	assert.Equal(t, 0, hub.Publish("nobody", "x"))
}

// blockingConn parks the first write until release is closed.
type blockingConn struct {
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingConn() *blockingConn {
	return &blockingConn{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingConn) WriteJSON(any) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil
}

// releasedConn counts writes that arrive after its owner let it go.
type releasedConn struct {
	released   atomic.Bool
	lateWrites atomic.Int32
}

func (r *releasedConn) WriteJSON(any) error {
	if r.released.Load() {
		r.lateWrites.Add(1)
	}
	return nil
}

func TestHubNeverWritesAfterClose(t *testing.T) {
	for i := 0; i < 20; i++ {
		hub := NewNotificationHub()
		slow := newBlockingConn()
		gone := &releasedConn{}
		hub.Subscribe("a", slow)
		sub := hub.Subscribe("a", gone)

		done := make(chan int)
		go func() { done <- hub.Publish("a", "x") }()
		<-slow.entered

		sub.Close()
		gone.released.Store(true)
		close(slow.release)
		<-done

		assert.Zero(t, gone.lateWrites.Load())
	}
}

func TestSubscriptionCloseWaitsForInFlightWrite(t *testing.T) {
	hub := NewNotificationHub()
	conn := newBlockingConn()
	sub := hub.Subscribe("a", conn)

	go hub.Publish("a", "x")
	<-conn.entered

	closed := make(chan struct{})
	go func() {
		sub.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(conn.release)
	<-closed
	assert.ErrorIs(t, sub.Send("late"), errSubscriptionClosed)
}

func TestSubscriptionSendTargetsOneSocket(t *testing.T) {
	hub := NewNotificationHub()
	tab1, tab2 := &recordingConn{}, &recordingConn{}
	sub := hub.Subscribe("a", tab1)
	hub.Subscribe("a", tab2)

	require.NoError(t, sub.Send("ping"))
	assert.Len(t, tab1.frames, 1)
	assert.Empty(t, tab2.frames)
}

func TestHubSkipsBrokenConnections(t *testing.T) {
	hub := NewNotificationHub()
	hub.Subscribe("a", &recordingConn{err: errors.New("closed")})
	ok := &recordingConn{}
	hub.Subscribe("a", ok)

	assert.Equal(t, 1, hub.Publish("a", "x"))
	assert.Len(t, ok.frames, 1)
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	db := newTestDB(t)
	acc := createAccount(t, db, "amb@example.com", nil)
	hub := NewNotificationHub()
	conn := &recordingConn{}
	hub.Subscribe(acc.ID, conn)
	svc := NewNotificationService(db, hub)

	require.NoError(t, svc.Notify(context.Background(), acc.ID, "New commission", "You earned 50 USD", models.NotificationKindSuccess))

	list, err := svc.List(context.Background(), acc.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "New commission", list[0].Title)
	assert.False(t, list[0].Read)
	assert.Len(t, conn.frames, 1)

	err = svc.Notify(context.Background(), acc.ID, "x", "y", models.NotificationKind("urgent"))
	requireKind(t, err, KindValidation)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	owner := createAccount(t, db, "owner@example.com", nil)
	other := createAccount(t, db, "other@example.com", nil)
	svc := NewNotificationService(db, nil)
	require.NoError(t, svc.Notify(context.Background(), owner.ID, "a", "a", models.NotificationKindInfo))
	require.NoError(t, svc.Notify(context.Background(), owner.ID, "b", "b", models.NotificationKindInfo))

	list, err := svc.List(context.Background(), owner.ID, false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	err = svc.MarkRead(context.Background(), other.ID, list[0].ID)
	requireKind(t, err, KindNotFound)

	require.NoError(t, svc.MarkRead(context.Background(), owner.ID, list[0].ID))
	unread, err := svc.List(context.Background(), owner.ID, true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	n, err := svc.MarkAllRead(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCleanupDeletesOldReadNotifications(t *testing.T) {
	db := newTestDB(t)
	acc := createAccount(t, db, "amb@example.com", nil)
	old := time.Now().Add(-60 * 24 * time.Hour)
	rows := []models.Notification{
		{AccountID: acc.ID, Message: "old read", Kind: models.NotificationKindInfo, Read: true, CreatedAt: old},
		{AccountID: acc.ID, Message: "old unread", Kind: models.NotificationKindInfo, Read: false, CreatedAt: old},
		{AccountID: acc.ID, Message: "fresh read", Kind: models.NotificationKindInfo, Read: true},
	}
	require.NoError(t, db.Create(&rows).Error)

	deleted, err := NewNotificationService(db, nil).Cleanup(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var left []models.Notification
	require.NoError(t, db.Order("message").Find(&left).Error)
	require.Len(t, left, 2)
	assert.Equal(t, "fresh read", left[0].Message)
	assert.Equal(t, "old unread", left[1].Message)
}
