package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/metrics"
	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends "table available" pushes to the devices watching a table.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log zerolog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.With().Str("component", "notification").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case tableID := <-wp.jobs:
			wp.sendNotificationsForTable(ctx, tableID)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// TableAvailable queues a notification job without blocking. Jobs are
// dropped when the queue is full.
func (wp *WorkerPool) TableAvailable(tableID int64) {
	select {
	case wp.jobs <- tableID:
	default:
		metrics.PushNotifications.WithLabelValues("dropped").Inc()
		wp.log.Warn().Int64("table_id", tableID).Msg("notification queue full, dropping job")
	}
}

func (wp *WorkerPool) sendNotificationsForTable(ctx context.Context, tableID int64) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_table_mapping stm ON stm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("stm.table_id = ?", tableID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.Error().Err(err).Int64("table_id", tableID).Msg("failed to fetch subscriptions")
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	var table model.Table
	label := fmt.Sprintf("Table %d", tableID)
	if err := wp.db.WithContext(ctx).
		Select("label").
		First(&table, tableID).Error; err != nil {
		wp.log.Warn().Err(err).Int64("table_id", tableID).Msg("failed to fetch table label")
	} else if table.Label != "" {
		label = table.Label
	}

	wp.log.Info().Int64("table_id", tableID).Int("subscriptions", len(subscriptions)).Msg("sending availability notifications")
	message := fmt.Sprintf("%s is now available", label)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.PushNotifications.WithLabelValues("error").Inc()
		wp.log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()

	// The push service reports unsubscribed devices with 410 Gone.
	if resp.StatusCode == http.StatusGone {
		metrics.PushNotifications.WithLabelValues("expired").Inc()
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.db.WithContext(ctx).Select("Tables").Delete(&sub).Error; err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
		return
	}
	metrics.PushNotifications.WithLabelValues("sent").Inc()
}
