package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/bretthoffman/goteamgo/config"
)

// Notification types consumed by the external reminder dispatcher
const (
	TypeEventCreated     = "event.created"
	TypeEventDeleted     = "event.deleted"
	TypeSlotLocked       = "slot.locked"
	TypePostEventDerived = "post_event.derived"
)

// Notification is a domain notification published to the dispatcher queue
type Notification struct {
	Type       string    `json:"type"`
	EventID    uuid.UUID `json:"event_id"`
	SlotIndex  int       `json:"slot_index,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher publishes domain notifications
type Publisher interface {
	Publish(ctx context.Context, notification Notification) error
	Close() error
}

// serviceBusPublisher implements Publisher over Azure Service Bus
type serviceBusPublisher struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
}

// NewServiceBusPublisher creates an Azure Service Bus publisher. With no
// connection string configured a no-op publisher is returned.
func NewServiceBusPublisher(cfg config.ServiceBusConfig) (Publisher, error) {
	if cfg.ConnectionString == "" {
		return &noopPublisher{}, nil
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusPublisher{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
	}, nil
}

// Publish sends a notification to the dispatcher queue
func (p *serviceBusPublisher) Publish(ctx context.Context, notification Notification) error {
	if notification.OccurredAt.IsZero() {
		notification.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	msg := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"type": notification.Type,
			"time": notification.OccurredAt.Format(time.RFC3339),
		},
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrap(err, "failed to send notification")
	}

	return nil
}

// Close closes the sender and client
func (p *serviceBusPublisher) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.sender.Close(ctx); err != nil {
		return errors.Wrap(err, "failed to close Service Bus sender")
	}
	return errors.Wrap(p.client.Close(ctx), "failed to close Service Bus client")
}

type noopPublisher struct{}

func (*noopPublisher) Publish(context.Context, Notification) error { return nil }
func (*noopPublisher) Close() error                                { return nil }
