package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const TopicVisualCreated = "visual.created"

type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
	Close() error
}

// VisualCreated is emitted after an export has been stored and recorded.
type VisualCreated struct {
	VisualID     string    `json:"visual_id"`
	CampaignID   string    `json:"campaign_id"`
	EventID      string    `json:"event_id"`
	SessionToken string    `json:"session_token"`
	ImageURL     string    `json:"image_url"`
	CreatedAt    time.Time `json:"created_at"`
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher writes to the given brokers. With no brokers it returns a
// publisher that only logs.
func NewPublisher(brokers []string) Publisher {
	if len(brokers) == 0 {
		logrus.Info("no kafka brokers configured, events are logged only")
		return &logPublisher{}
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	logrus.WithField("brokers", brokers).Info("kafka publisher configured")
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type logPublisher struct{}

func (logPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	logrus.WithFields(logrus.Fields{"topic": topic, "key": key, "payload": payload}).Debug("event")
	return nil
}

func (logPublisher) Close() error { return nil }
