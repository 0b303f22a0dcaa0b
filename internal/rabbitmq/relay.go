package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

const userKeyPrefix = "chat.user."

// Sink receives notices consumed from the broker. The websocket hub
// implements it.
type Sink interface {
	Publish(ctx context.Context, userID int64, channel string, payload any) error
}

// Notice is the broker message carrying one per-user delivery.
type Notice struct {
	UserID  int64           `json:"userId"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Relay moves per-user notices through the exchange so that every instance
// can deliver to the sessions it holds.
type Relay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRelay connects to the broker. Unlike the event publisher there is no
// noop fallback: without the broker no instance would receive notices.
func NewRelay(amqpURL, exchange string) (*Relay, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	conn, ch, err := dialExchange(amqpURL, exchange)
	if err != nil {
		return nil, fmt.Errorf("connect relay: %w", err)
	}
	log.Printf("rabbitmq relay connected exchange=%s", exchange)
	return &Relay{conn: conn, ch: ch, exchange: exchange}, nil
}

// UserRoutingKey is the routing key of notices addressed to userID.
func UserRoutingKey(userID int64) string {
	return userKeyPrefix + strconv.FormatInt(userID, 10)
}

// Publish sends a notice for userID to the exchange.
func (r *Relay) Publish(ctx context.Context, userID int64, channel string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Notice{UserID: userID, Channel: channel, Payload: raw})
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx, r.exchange, UserRoutingKey(userID), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Body:         body,
	})
}

// Run binds an exclusive queue to every user key and hands each notice to
// sink until ctx is done or the delivery channel closes.
func (r *Relay) Run(ctx context.Context, sink Sink) error {
	consumeCh, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	defer consumeCh.Close()

	queue, err := consumeCh.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare relay queue: %w", err)
	}
	if err := consumeCh.QueueBind(queue.Name, userKeyPrefix+"*", r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind relay queue: %w", err)
	}
	deliveries, err := consumeCh.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume relay queue: %w", err)
	}

	log.Printf("rabbitmq relay consuming queue=%s", queue.Name)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("relay delivery channel closed")
			}
			r.dispatch(ctx, sink, d.RoutingKey, d.Body)
		}
	}
}

func (r *Relay) dispatch(ctx context.Context, sink Sink, routingKey string, body []byte) {
	var notice Notice
	if err := json.Unmarshal(body, &notice); err != nil {
		log.Printf("relay dropped malformed notice routing_key=%s: %v", routingKey, err)
		return
	}
	if notice.UserID == 0 {
		id, err := strconv.ParseInt(strings.TrimPrefix(routingKey, userKeyPrefix), 10, 64)
		if err != nil {
			log.Printf("relay dropped notice without user routing_key=%s", routingKey)
			return
		}
		notice.UserID = id
	}
	if err := sink.Publish(ctx, notice.UserID, notice.Channel, notice.Payload); err != nil {
		log.Printf("relay delivery failed user_id=%d channel=%s: %v", notice.UserID, notice.Channel, err)
	}
}

func (r *Relay) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
