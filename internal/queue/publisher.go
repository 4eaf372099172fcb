package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/pilates-studio-booking/internal/booking"
)

// ErrPublishQueueFull is returned by Notify when the hand-off buffer is
// full, typically because the broker has been unreachable for a while.
var ErrPublishQueueFull = errors.New("notification queue full")

const (
	publishBuffer = 256
	dialTimeout   = 5 * time.Second
)

// Publisher sends notifications to a durable queue.  Notify only hands the
// event to a buffer; Run drains it on its own goroutine, so a slow or
// unreachable broker never delays the request that raised the event.  The
// connection is opened on first use and reopened after the broker drops it.
type Publisher struct {
	url    string
	queue  string
	log    *zap.Logger
	events chan NotificationEvent

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ booking.Notifier = (*Publisher)(nil)

// NewPublisher returns a Publisher for the given broker URL and queue.
// Nothing is sent until Run is started.
func NewPublisher(url, queue string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, queue: queue, log: log, events: make(chan NotificationEvent, publishBuffer)}
}

// channel returns an open channel, dialing when needed.  Callers hold mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.DialConfig(p.url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// Notify queues n for publishing and returns at once.
func (p *Publisher) Notify(_ context.Context, n booking.Notification) error {
	ev := NewNotificationEvent(n)
	select {
	case p.events <- ev:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s %s", ErrPublishQueueFull, ev.Kind, ev.EventID)
	}
}

// Run publishes queued events until ctx is done.  A failed publish is
// logged and the event dropped.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(p.events); n > 0 {
				p.log.Warn("notifications dropped on shutdown", zap.Int("count", n))
			}
			return ctx.Err()
		case ev := <-p.events:
			if err := p.publish(ctx, ev); err != nil {
				p.log.Warn("notification publish failed",
					zap.String("event_id", ev.EventID),
					zap.String("kind", ev.Kind),
					zap.Error(err))
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev NotificationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         ev.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		_ = ch.Close()
		p.ch = nil
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.Debug("notification published",
		zap.String("event_id", ev.EventID),
		zap.String("kind", ev.Kind),
		zap.Uint64("lesson_id", ev.LessonID))
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// LogNotifier returns a Notifier that only writes notifications to log.
// It is used when no broker is configured.
func LogNotifier(log *zap.Logger) booking.Notifier {
	return booking.NotifierFunc(func(_ context.Context, n booking.Notification) error {
		log.Info("notification",
			zap.String("kind", string(n.Kind)),
			zap.Uint64("user_id", n.UserID),
			zap.String("guest_email", n.GuestEmail),
			zap.Uint64("lesson_id", n.LessonID),
			zap.Uint64("reservation_id", n.ReservationID))
		return nil
	})
}
