package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"plant-monitor/internal/config"
	"plant-monitor/internal/sensor"
)

// Publisher sends plant metrics to the broker, one topic per plant.
type Publisher struct {
	*conn
	topicFmt string
}

// NewPublisher derives the per-plant topic from the subscriber's wildcard
// topic: plants/+/metrics publishes to plants/<id>/metrics.
func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:     newConn(cfg, cfg.MQTTClientID+"-publisher", logger, nil),
		topicFmt: TopicFormat(cfg.MQTTTopic),
	}
}

func (p *Publisher) Connect(ctx context.Context) error {
	return p.connect(ctx)
}

func (p *Publisher) Disconnect() {
	p.stop(nil)
	p.logger.Info("mqtt publisher disconnected")
}

// PublishMetric publishes m for plantID, stamping RecordedAt when unset.
func (p *Publisher) PublishMetric(plantID string, m sensor.MetricInsert) error {
	if !p.IsConnected() {
		return errors.New("mqtt client not connected")
	}
	if m.RecordedAt == nil {
		now := time.Now().UTC()
		m.RecordedAt = &now
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metric: %w", err)
	}

	topic := fmt.Sprintf(p.topicFmt, plantID)
	if err := waitToken(p.client.Publish(topic, 1, false, data), "publish "+topic); err != nil {
		p.logger.Error("failed to publish metric", "topic", topic, "error", err)
		return err
	}
	p.logger.Debug("published metric", "topic", topic, "plant_id", plantID)
	return nil
}

// TopicFormat turns a subscription topic with a single-level wildcard into
// a Sprintf format for one plant. Topics without "+" get the plant appended.
func TopicFormat(subscription string) string {
	for i := 0; i < len(subscription); i++ {
		if subscription[i] == '+' {
			return subscription[:i] + "%s" + subscription[i+1:]
		}
	}
	return subscription + "/%s"
}
