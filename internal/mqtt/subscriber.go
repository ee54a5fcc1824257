package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"plant-monitor/internal/config"
	"plant-monitor/internal/sensor"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MetricHandler stores one validated reading set published by a plant.
type MetricHandler func(plantID string, m sensor.MetricInsert) error

// MetricSubscriber is what feature modules need from the subscriber.
type MetricSubscriber interface {
	SetMessageHandler(handler MetricHandler)
}

// Subscriber receives plant metrics from the broker. The subscription is
// (re)established from the on-connect callback, so auto-reconnects resume
// delivery without extra bookkeeping.
type Subscriber struct {
	*conn
	topic string

	handlerMu sync.RWMutex
	handler   MetricHandler
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	s := &Subscriber{topic: cfg.MQTTTopic}
	s.conn = newConn(cfg, cfg.MQTTClientID, logger, func() {
		if err := s.subscribe(); err != nil {
			s.logger.Error("mqtt subscribe failed", "topic", s.topic, "error", err)
		}
	})
	return s
}

func (s *Subscriber) SetMessageHandler(handler MetricHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Connect establishes the broker connection. Subscribing happens in the
// on-connect callback.
func (s *Subscriber) Connect(ctx context.Context) error {
	return s.connect(ctx)
}

// Disconnect unsubscribes and closes the connection. Safe to call more than once.
func (s *Subscriber) Disconnect() {
	s.stop(func() {
		if err := waitToken(s.client.Unsubscribe(s.topic), "unsubscribe "+s.topic); err != nil {
			s.logger.Warn("mqtt unsubscribe failed", "error", err)
		}
	})
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) subscribe() error {
	const qos = byte(1)
	token := s.client.Subscribe(s.topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if err := waitToken(token, "subscribe "+s.topic); err != nil {
		return err
	}
	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	plantID := plantFromTopic(topic)
	s.logger.Debug("received mqtt message", "topic", topic, "plant_id", plantID, "size", len(payload))

	var m sensor.MetricInsert
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		s.logger.Warn("failed to parse metric message", "topic", topic, "error", err, "payload", string(payload))
		return
	}
	if err := validateMetric(m); err != nil {
		s.logger.Warn("invalid metric message", "topic", topic, "plant_id", plantID, "error", err)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		s.logger.Warn("no metric handler set, dropping message", "topic", topic)
		return
	}
	if err := handler(plantID, m); err != nil {
		s.logger.Error("metric handler failed", "topic", topic, "plant_id", plantID, "error", err)
	}
}

// validateMetric accepts partial readings, unlike POST /metric.
func validateMetric(m sensor.MetricInsert) error {
	if err := m.RequireAny(); err != nil {
		return err
	}
	return m.Validate()
}

// plantFromTopic extracts {plant} from plants/{plant}/metrics style topics.
func plantFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 3 {
		return parts[len(parts)-2]
	}
	return ""
}
