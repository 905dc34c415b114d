package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/adapter"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
)

// NotificationTemplate names the message rendered downstream
type NotificationTemplate string

const (
	TemplateDisputeFlagged  NotificationTemplate = "ownership_dispute_flagged"
	TemplateDisputeResolved NotificationTemplate = "ownership_dispute_resolved"
	TemplateOwnershipSet    NotificationTemplate = "ownership_assigned"
	TemplateOwnershipMoved  NotificationTemplate = "ownership_transferred"
)

// NotificationPriority orders delivery downstream
type NotificationPriority string

const (
	PriorityHigh   NotificationPriority = "high"
	PriorityNormal NotificationPriority = "normal"
)

// Recipient is one notification target
type Recipient struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Notification is the payload handed to the notification transport
type Notification struct {
	Recipient Recipient              `json:"recipient"`
	Template  NotificationTemplate   `json:"template"`
	Priority  NotificationPriority   `json:"priority"`
	Payload   map[string]interface{} `json:"payload"`
	SentAt    time.Time              `json:"sent_at"`
}

// Notifier fans a notification out to its recipients
//
//go:generate mockgen -source=notify.go -destination=../mocks/notifier.go -package=mocks -mock_names=Notifier=MockNotifier
type Notifier interface {
	// Notify delivers the template to every recipient. It returns after
	// all deliveries either succeeded or exhausted their retries.
	Notify(ctx context.Context, recipients []Recipient, template NotificationTemplate, priority NotificationPriority, payload map[string]interface{}) error
	// Close releases the transport
	Close()
}

// NATSConfig holds the notification transport configuration
type NATSConfig struct {
	URL            string
	SubjectPrefix  string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// FanoutWorkers bounds concurrent per-recipient publishes
	FanoutWorkers int
	// PublishRetryMax caps retries of a transient publish failure
	PublishRetryMax uint64
}

type natsNotifier struct {
	nc              *nats.Conn
	subjectPrefix   string
	pool            pond.Pool
	json            adapter.JSON
	clock           adapter.Clock
	publishRetryMax uint64
}

// NewNATSNotifier creates a notification gateway publishing one message
// per recipient to <prefix>.<template>
func NewNATSNotifier(cfg NATSConfig, jsonAdapter adapter.JSON, clock adapter.Clock) (Notifier, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	workers := cfg.FanoutWorkers
	if workers <= 0 {
		workers = 8
	}
	retryMax := cfg.PublishRetryMax
	if retryMax == 0 {
		retryMax = 3
	}

	return &natsNotifier{
		nc:              nc,
		subjectPrefix:   cfg.SubjectPrefix,
		pool:            pond.NewPool(workers),
		json:            jsonAdapter,
		clock:           clock,
		publishRetryMax: retryMax,
	}, nil
}

// Notify delivers the template to every recipient concurrently and waits
// for the fan-out to finish
func (n *natsNotifier) Notify(ctx context.Context, recipients []Recipient, template NotificationTemplate, priority NotificationPriority, payload map[string]interface{}) error {
	if len(recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("%s.%s", n.subjectPrefix, template)
	sentAt := n.clock.Now()

	group := n.pool.NewGroup()
	errs := make([]error, len(recipients))
	for i, recipient := range recipients {
		group.Submit(func() {
			notification := Notification{
				Recipient: recipient,
				Template:  template,
				Priority:  priority,
				Payload:   payload,
				SentAt:    sentAt,
			}
			errs[i] = n.publish(ctx, subject, notification)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("notification fan-out failed: %w", err)
	}

	for i, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to notify %s: %w", recipients[i].UserID, err)
		}
	}
	return nil
}

// publish sends one notification, retrying transient failures with
// exponential backoff
func (n *natsNotifier) publish(ctx context.Context, subject string, notification Notification) error {
	data, err := n.json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.publishRetryMax), ctx)

	return backoff.Retry(func() error {
		return n.nc.Publish(subject, data)
	}, policy)
}

// Close releases the transport
func (n *natsNotifier) Close() {
	n.pool.StopAndWait()
	if n.nc != nil {
		n.nc.Close()
	}
}
