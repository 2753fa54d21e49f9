package queue

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/bunnyq"
	"github.com/sksmith/inventory-allocation/core/allocation"
	"github.com/sksmith/inventory-allocation/core/inventory"
	"github.com/streadway/amqp"
)

// Publisher sends a message body to an exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange string, body []byte) error
}

type bunnyPublisher struct {
	bq *bunnyq.BunnyQ
}

func NewBunnyPublisher(bq *bunnyq.BunnyQ) Publisher {
	return &bunnyPublisher{bq: bq}
}

func (b *bunnyPublisher) Publish(ctx context.Context, exchange string, body []byte) error {
	return b.bq.Publish(ctx, exchange, body)
}

type inventoryQueue struct {
	publisher         Publisher
	inventoryExchange string
}

func NewInventoryQueue(publisher Publisher, inventoryExchange string) inventory.Queue {
	return &inventoryQueue{publisher: publisher, inventoryExchange: inventoryExchange}
}

func (i *inventoryQueue) PublishInventory(ctx context.Context, dto inventory.Dto) error {
	body, err := json.Marshal(dto)
	if err != nil {
		return errors.WithMessage(err, "failed to serialize message for queue")
	}
	if err = i.publisher.Publish(ctx, i.inventoryExchange, body); err != nil {
		return errors.WithMessage(err, "failed to send inventory update to queue")
	}
	return nil
}

// IndexNotification asks the search index to refresh one entity.
type IndexNotification struct {
	EntityType allocation.EntityType `json:"entityType"`
	EntityID   string                `json:"entityId"`
}

type indexNotifier struct {
	publisher     Publisher
	indexExchange string
}

func NewIndexNotifier(publisher Publisher, indexExchange string) allocation.Notifier {
	return &indexNotifier{publisher: publisher, indexExchange: indexExchange}
}

func (n *indexNotifier) AddNotificationForEntityIndexUpdate(ctx context.Context, entityType allocation.EntityType, entityID string) error {
	body, err := json.Marshal(IndexNotification{EntityType: entityType, EntityID: entityID})
	if err != nil {
		return errors.WithMessage(err, "error marshalling index notification")
	}
	if err = n.publisher.Publish(ctx, n.indexExchange, body); err != nil {
		return errors.WithMessage(err, "error publishing index notification")
	}
	return nil
}

type AllocationHandler interface {
	ProcessAllocationEvent(ctx context.Context, event allocation.Event) (allocation.Result, error)
}

type AllocationQueue struct {
	queue       *bunnyq.BunnyQ
	publisher   Publisher
	queueName   string
	dltExchange string
}

func NewAllocationQueue(bq *bunnyq.BunnyQ, publisher Publisher, queueName, dltExchange string) *AllocationQueue {
	return &AllocationQueue{queue: bq, publisher: publisher, queueName: queueName, dltExchange: dltExchange}
}

// ConsumeAllocations blocks, handing every allocation event on the queue to handler until ctx is done.
func (a *AllocationQueue) ConsumeAllocations(ctx context.Context, handler AllocationHandler) {
	a.queue.Stream(ctx, a.queueName, func(delivery amqp.Delivery) {
		a.handle(ctx, delivery.Body, handler)
	}, bunnyq.StreamOpAutoAck)
}

func (a *AllocationQueue) handle(ctx context.Context, body []byte, handler AllocationHandler) {
	const funcName = "handle"

	event := allocation.Event{}
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error().Str("func", funcName).Err(err).Msg("error unmarshalling allocation event, writing to dlt")
		a.sendToDlt(ctx, body)
		return
	}

	_, err := handler.ProcessAllocationEvent(ctx, event)
	if err == nil {
		return
	}

	if errors.Is(err, inventory.ErrInsufficientInventory) {
		log.Warn().
			Str("func", funcName).
			Str("eventId", event.EventID).
			Str("sku", event.SkuCode).
			Str("warehouse", event.WarehouseID).
			Err(err).
			Msg("allocation rejected")
		return
	}

	log.Error().Str("func", funcName).Str("eventId", event.EventID).Err(err).Msg("error handling allocation event, writing to dlt")
	a.sendToDlt(ctx, body)
}

func (a *AllocationQueue) sendToDlt(ctx context.Context, data []byte) {
	err := a.publisher.Publish(ctx, a.dltExchange, data)
	if err != nil {
		log.Error().Err(err).Msg("error writing to dlt")
	}
}
