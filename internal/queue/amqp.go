package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

const retryHeader = "x-retry-count"

var (
	_ Queue = (*AMQPQueue)(nil)
	_ Queue = (*InMemoryQueue)(nil)
)

// AMQPQueue publishes JSON payloads to durable RabbitMQ queues named after
// the topic. Failed deliveries are republished with an incremented
// x-retry-count header until the retry limit is reached.
type AMQPQueue struct {
	conn       *amqp.Connection
	logger     *slog.Logger
	maxRetries int

	mu       sync.Mutex
	declared map[string]bool
}

func NewAMQPQueue(url string, logger *slog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQPQueue{
		conn:       conn,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		declared:   map[string]bool{},
	}, nil
}

func (q *AMQPQueue) Close() error {
	return q.conn.Close()
}

func (q *AMQPQueue) declare(ch *amqp.Channel, topic string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.declared[topic] {
		return nil
	}
	if _, err := ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

// Publish marshals payload as JSON unless it is already []byte.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := encodePayload(payload)
	if err != nil {
		return err
	}

	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := q.declare(ch, topic); err != nil {
		return err
	}
	return publish(ch, topic, body, 0)
}

// Subscribe consumes topic on its own channel until the connection closes.
// The handler receives the raw message body.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	if err := q.declare(ch, topic); err != nil {
		ch.Close()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		defer ch.Close()
		for d := range msgs {
			q.handleDelivery(ch, topic, d, handler)
		}
		q.logger.Info("consumer stopped", "topic", topic)
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(ch *amqp.Channel, topic string, d amqp.Delivery, handler func(payload any) error) {
	err := handler(d.Body)
	if err == nil {
		d.Ack(false)
		return
	}

	attempt := retryCount(d.Headers)
	if isPermanent(err) || attempt >= q.maxRetries {
		q.logger.Error("dropping message", "topic", topic, "attempts", attempt+1, "error", err)
		d.Ack(false)
		return
	}

	q.logger.Warn("message failed, requeueing", "topic", topic, "attempt", attempt+1, "error", err)
	if perr := publish(ch, topic, d.Body, attempt+1); perr != nil {
		q.logger.Error("republish failed", "topic", topic, "error", perr)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func publish(ch *amqp.Channel, topic string, body []byte, retries int) error {
	return ch.Publish(
		"",    // default exchange
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{retryHeader: int32(retries)},
			Body:         body,
		})
}

func encodePayload(payload any) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return body, nil
}

// retryCount reads x-retry-count, which arrives as a different integer type
// depending on who published the message.
func retryCount(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	default:
		return 0
	}
}
