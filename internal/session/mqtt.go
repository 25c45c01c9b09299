package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/claude/rehabreps/internal/exercise"
)

// MQTTConfig configures the event publisher.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// MQTTNotifier publishes session events so bedside displays can play cues
// and show counts. Topics are {prefix}/{session}/{kind}.
type MQTTNotifier struct {
	cfg    MQTTConfig
	client mqtt.Client
	log    *slog.Logger

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

// MQTTStats counts publish outcomes.
type MQTTStats struct {
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Errors    uint64 `json:"errors"`
}

// NewMQTTNotifier creates an unconnected notifier.
func NewMQTTNotifier(cfg MQTTConfig, log *slog.Logger) *MQTTNotifier {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "rehabreps/sessions"
	}
	return &MQTTNotifier{cfg: cfg, log: log}
}

// Connect dials the broker. The client reconnects on its own afterwards.
func (n *MQTTNotifier) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", n.cfg.Broker))
	opts.SetClientID(n.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		n.setConnected(true)
		n.log.Info("mqtt connected", "broker", n.cfg.Broker, "client_id", n.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		n.setConnected(false)
		n.log.Warn("mqtt connection lost", "broker", n.cfg.Broker, "error", err)
	}

	n.client = mqtt.NewClient(opts)
	token := n.client.Connect()

	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	n.setConnected(true)
	return nil
}

// Notify publishes ev on the session's topic.
func (n *MQTTNotifier) Notify(sessionID string, ev exercise.Event) error {
	if !n.isConnected() {
		n.countError()
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := eventPayload(sessionID, ev)
	if err != nil {
		n.countError()
		return err
	}
	topic := eventTopic(n.cfg.TopicPrefix, sessionID, ev.Kind)

	token := n.client.Publish(topic, n.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		n.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		n.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	n.mu.Lock()
	n.published++
	n.mu.Unlock()
	n.log.Debug("event published", "topic", topic, "size", len(payload))
	return nil
}

// Disconnect closes the broker connection.
func (n *MQTTNotifier) Disconnect() {
	if n.client != nil && n.client.IsConnected() {
		n.client.Disconnect(250)
		n.log.Info("mqtt disconnected")
	}
	n.setConnected(false)
}

// Stats returns publish counters.
func (n *MQTTNotifier) Stats() MQTTStats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return MQTTStats{Connected: n.connected, Published: n.published, Errors: n.errors}
}

func (n *MQTTNotifier) isConnected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.connected
}

func (n *MQTTNotifier) setConnected(v bool) {
	n.mu.Lock()
	n.connected = v
	n.mu.Unlock()
}

func (n *MQTTNotifier) countError() {
	n.mu.Lock()
	n.errors++
	n.mu.Unlock()
}

func eventTopic(prefix, sessionID string, kind exercise.EventKind) string {
	return fmt.Sprintf("%s/%s/%s", prefix, sessionID, kind)
}

type eventMessage struct {
	Session string `json:"session"`
	exercise.Event
}

func eventPayload(sessionID string, ev exercise.Event) ([]byte, error) {
	data, err := json.Marshal(eventMessage{Session: sessionID, Event: ev})
	if err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}
	return data, nil
}
