package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON keyed by user id, so all
// messages for one user land on the same partition.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	key := n.UserID
	if key == "" {
		key = n.Email
	}
	msg := kafka.Message{Key: []byte(key), Value: data, Time: time.Now().UTC()}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// ParseBrokers splits a comma separated broker list, skipping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
