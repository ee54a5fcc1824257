package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"plant-monitor/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var errStopped = errors.New("mqtt client stopped")

const (
	retryInterval     = 5 * time.Second
	maxReconnectDelay = time.Minute
	keepAlive         = 30 * time.Second
	pingTimeout       = 10 * time.Second
	connectPoll       = 200 * time.Millisecond
	tokenTimeout      = 5 * time.Second
)

// conn is the connection state shared by Subscriber and Publisher.
type conn struct {
	client    mqtt.Client
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func newConn(cfg config.Config, clientID string, logger *slog.Logger, onConnect func()) *conn {
	if logger == nil {
		logger = slog.Default()
	}
	c := &conn{logger: logger, stopCh: make(chan struct{})}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retryInterval)
	opts.SetMaxReconnectInterval(maxReconnectDelay)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "client_id", clientID)
		if onConnect != nil {
			onConnect()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// connect waits for the initial connection while honouring ctx and stop.
func (c *conn) connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return errStopped
	default:
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	for {
		if token.WaitTimeout(connectPoll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			c.client.Disconnect(0)
			return ctx.Err()
		case <-c.stopCh:
			c.client.Disconnect(0)
			return errStopped
		default:
		}
	}
}

// IsConnected reports whether the broker session is up.
func (c *conn) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

func (c *conn) stop(before func()) {
	c.stopOnce.Do(func() { close(c.stopCh) })
	if before != nil && c.IsConnected() {
		before()
	}
	c.client.Disconnect(250)
	c.setConnected(false)
}

func (c *conn) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func waitToken(t mqtt.Token, what string) error {
	if !t.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("%s: timeout", what)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
