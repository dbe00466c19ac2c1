package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	maxRetries   = 3
	writeTimeout = 10 * time.Second
)

type Producer struct {
	mu   sync.Mutex
	conn *kafka.Conn
}

func CreateKafkaProducer(config *config.Config) (*Producer, error) {
	conn, err := kafka.DialLeader(context.Background(), "tcp", config.KafkaConfig.BrokerAddress, config.KafkaConfig.BrokerTopic, config.KafkaConfig.BrokerPartition)
	if err != nil {
		return nil, err
	}

	return &Producer{conn: conn}, nil
}

// Publish writes msg keyed by key, retrying with a linear backoff.
func (p *Producer) Publish(ctx context.Context, key string, msg dto.KafkaMessage) (err error) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Kafka message: %w", err)
	}

	for i := 0; i < maxRetries; i++ {
		err = p.write(key, jsonMsg)
		if err == nil {
			return nil
		}
		log.Error().Err(err).Str("component", "Publish").Str("event_type", msg.EventType).Int("attempt", i+1).Msg("")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to write Kafka message after %d attempts: %w", maxRetries, err)
}

func (p *Producer) write(key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	_, err := p.conn.WriteMessages(kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	return err
}

func (p *Producer) Close() error {
	return p.conn.Close()
}

// NopProducer drops events; used when no broker is configured.
type NopProducer struct{}

func (NopProducer) Publish(ctx context.Context, key string, msg dto.KafkaMessage) error {
	log.Debug().Str("component", "NopProducer").Str("event_type", msg.EventType).Str("key", key).Msg("event dropped")
	return nil
}
