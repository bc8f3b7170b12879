package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Broker defaults are compatibility-sensitive: downstream consumers were
// provisioned against these limits.
const (
	defaultDeliveryTimeout = 5000 * time.Millisecond
	defaultLinger          = 2000 * time.Millisecond
	maxMessageBytes        = 10_000_000
	maxBufferedBytes       = 50_000_000
)

// KafkaProducer publishes records through a shared franz-go client. The
// client is thread-safe; concurrent SendToMQ calls across record classes are
// expected.
type KafkaProducer struct {
	client *kgo.Client
}

func NewKafkaProducer(brokers string) (*KafkaProducer, error) {
	seeds := strings.Split(brokers, ",")
	for i := range seeds {
		seeds[i] = strings.TrimSpace(seeds[i])
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordDeliveryTimeout(defaultDeliveryTimeout),
		kgo.ProducerLinger(defaultLinger),
		kgo.ProducerBatchMaxBytes(maxMessageBytes),
		kgo.MaxBufferedBytes(maxBufferedBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &KafkaProducer{client: client}, nil
}

// SendToMQ produces every payload to topic and waits for all deliveries.
// Records carry no key, so partitioning is round-robin; consumers dedup on
// (transaction_version, *_index) fields inside the payload.
func (p *KafkaProducer) SendToMQ(ctx context.Context, topic string, payloads [][]byte) error {
	if len(payloads) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(payloads))
	for _, payload := range payloads {
		records = append(records, &kgo.Record{Topic: topic, Value: payload})
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d records to %s: %w", len(records), topic, err)
	}
	return nil
}

func (p *KafkaProducer) Close() {
	p.client.Close()
}
