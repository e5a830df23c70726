package events

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandlerFunc processes one delivered message body. Errors are the
// handler's own to log; the consumer never retries or re-queues.
type HandlerFunc func(body []byte)

// Consumer binds an anonymous queue to a fanout exchange and delivers each
// message at most once.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewConsumer connects to RabbitMQ and declares the fanout exchange.
func NewConsumer(url, exchange string, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		exchange,
		amqp.ExchangeFanout,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Consumer{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// Start declares a broker-named exclusive queue, binds it to the exchange
// and feeds deliveries to the handler. Auto-ack keeps the at-most-once
// contract: a message is gone the moment the broker hands it over. Start
// blocks until the channel closes.
func (c *Consumer) Start(handler HandlerFunc) error {
	queue, err := c.channel.QueueDeclare(
		"",    // broker-assigned name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(
		queue.Name,
		"", // fanout ignores the binding key
		c.exchange,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := c.channel.Consume(
		queue.Name,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("Consuming from exchange", zap.String("exchange", c.exchange), zap.String("queue", queue.Name))

	for msg := range msgs {
		handler(msg.Body)
	}

	return nil
}

// Close closes the consumer connection
func (c *Consumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
