// Package notifier публикует события для пользователей в RabbitMQ.
// Бот-магазин читает очередь и доставляет сообщения в чат. Доставка
// необязательная: сбой публикации логируется и никогда не откатывает
// уже применённое изменение состояния.
package notifier

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// Виды событий, которые бот превращает в сообщения пользователю.
const (
	EventBanned           = "banned"
	EventUnbanned         = "unbanned"
	EventPaymentConfirmed = "payment_confirmed"
	EventKeyActivated     = "key_activated"
	EventSubscription     = "subscription_granted"
)

// Event — одно уведомление для одного пользователя.
type Event struct {
	UserID  int64  `json:"user_id"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Notifier публикует события в именованную очередь.
type Notifier struct {
	ch    *amqp.Channel
	queue string
}

// New объявляет очередь и возвращает готовый Notifier.
func New(ch *amqp.Channel, queue string) (*Notifier, error) {
	const op = "notifier.New"
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Notifier{ch: ch, queue: queue}, nil
}

// Publish кладёт событие в очередь.
func (n *Notifier) Publish(event Event) error {
	const op = "notifier.Publish"
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = n.ch.Publish(
		"",
		n.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
