// kafka.go - Publishes account events to Kafka

package events

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// KafkaPublisher sends events to <prefix>.<type>, keyed by user id so one
// user's events stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	prefix   string
}

func NewKafkaPublisher(brokers []string, prefix string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	var producer sarama.SyncProducer
	var err error
	for i := 1; i <= 5; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			log.Printf("kafka: producer connected to %v", brokers)
			return newKafkaPublisher(producer, prefix), nil
		}
		log.Printf("kafka: failed to connect (try %d/5): %v", i, err)
		time.Sleep(time.Duration(i) * time.Second)
	}
	return nil, fmt.Errorf("kafka: could not connect to %v: %w", brokers, err)
}

func newKafkaPublisher(producer sarama.SyncProducer, prefix string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, prefix: prefix}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := e.Payload()
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: kafkaTopic(p.prefix, e.Type),
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(e.UserID), 10)),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
