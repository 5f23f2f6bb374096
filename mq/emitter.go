package mq

import (
	"context"
	"encoding/json"
	"log"

	"fabritrack/models"
	"fabritrack/orders"
	"fabritrack/rdx"
)

// Channel carries order lifecycle events between the engine and the
// websocket fan-out worker.
const Channel = "order-events"

// Event is the wire form of an order lifecycle notification.
type Event struct {
	Kind          string `json:"kind"`
	OrderID       string `json:"orderId"`
	UserEmail     string `json:"userEmail"`
	OrderStatus   string `json:"orderStatus"`
	PaymentStatus string `json:"paymentStatus"`
	DisplayStatus string `json:"displayStatus"`
}

// Emitter publishes order events to redis. It satisfies the engine's
// Publisher interface; a nil cache turns it into a no-op.
type Emitter struct {
	Cache *rdx.Cache
}

func (e *Emitter) OrderEvent(ctx context.Context, kind string, o *models.Order) {
	ev := Event{
		Kind:          kind,
		OrderID:       o.ID.Hex(),
		UserEmail:     o.UserEmail,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		DisplayStatus: o.DisplayStatus(),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("mq: marshal event: %v", err)
		return
	}
	if err := e.Cache.Publish(ctx, Channel, data); err != nil {
		log.Printf("mq: publish %s: %v", kind, err)
	}
}

// StartOrderEventWorker forwards published events to the websocket
// hub until the context is cancelled.
func StartOrderEventWorker(ctx context.Context, cache *rdx.Cache, hub *orders.Hub) {
	sub := cache.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	log.Println("order event worker: listening")
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			hub.Broadcast([]byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}
