package notifier

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Connect открывает соединение и канал RabbitMQ.
func Connect(url string) (*amqp.Connection, *amqp.Channel, error) {
	const op = "notifier.Connect"
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return conn, ch, nil
}
