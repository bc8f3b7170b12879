// Package mq delivers record collections to the message broker, one topic
// per record class.
package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lambda256/aptos-indexer-go/internal/network"
)

// Producer is the publisher capability. Two variants exist: the Kafka
// producer and a no-op used when no brokers are configured. Selection happens
// in New, by the emptiness of the broker list.
type Producer interface {
	// SendToMQ delivers every payload to topic and waits for acknowledgement
	// of all of them before returning. Delivery is at-least-once; ordering
	// within a call is not guaranteed.
	SendToMQ(ctx context.Context, topic string, payloads [][]byte) error
	Close()
}

// New selects the producer variant for the configured broker list
// (comma-separated bootstrap servers; empty means no-op).
func New(brokers string) (Producer, error) {
	if brokers == "" {
		return NoopProducer{}, nil
	}
	return NewKafkaProducer(brokers)
}

// Topic builds the per-network topic name for a record kind, e.g.
// "aptos.mainnet.user.transactions".
func Topic(net network.Network, kind string) string {
	return fmt.Sprintf("aptos.%s.%s", net, kind)
}

// SendRecords serializes each record to JSON and sends the collection to
// topic. An empty collection is a successful no-op.
func SendRecords[T any](ctx context.Context, p Producer, topic string, records []T) error {
	if len(records) == 0 {
		return nil
	}
	payloads := make([][]byte, 0, len(records))
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record for %s: %w", topic, err)
		}
		payloads = append(payloads, payload)
	}
	return p.SendToMQ(ctx, topic, payloads)
}

// NoopProducer accepts everything and performs no I/O.
type NoopProducer struct{}

func (NoopProducer) SendToMQ(ctx context.Context, topic string, payloads [][]byte) error {
	return nil
}

func (NoopProducer) Close() {}
