package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jpalmerr/sensorbridge/telemetry"
)

const (
	DefaultMQTTBroker   = "tcp://localhost:1883"
	DefaultMQTTClientID = "sensorbridge"
	DefaultMQTTTopic    = "sensorbridge/%s"

	defaultConnectTimeout = 10 * time.Second
	disconnectQuiesceMs   = 250
)

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string

	// ClientID identifies this connection to the broker.
	ClientID string

	// Topic is the publish topic; "%s" is replaced with the device name.
	Topic string

	Username string
	Password string

	// QoS is the MQTT quality of service level (0, 1 or 2).
	QoS byte

	// Retained makes the broker keep the last sample per topic.
	Retained bool

	// ConnectTimeout bounds the initial connection. Defaults to 10s.
	ConnectTimeout time.Duration
}

// publisher is the subset of mqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes samples as JSON to an MQTT broker.
type MQTT struct {
	client   publisher
	topic    string
	qos      byte
	retained bool
}

// NewMQTT connects to the broker and returns the sink.
//
// The paho client reconnects on its own after the initial connection, so a
// broker restart does not require a new sink.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	cfg = withMQTTDefaults(cfg)
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", cfg.QoS)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out after %s", cfg.Broker, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}

	return newMQTT(client, cfg), nil
}

func newMQTT(client publisher, cfg MQTTConfig) *MQTT {
	cfg = withMQTTDefaults(cfg)
	return &MQTT{
		client:   client,
		topic:    cfg.Topic,
		qos:      cfg.QoS,
		retained: cfg.Retained,
	}
}

func withMQTTDefaults(cfg MQTTConfig) MQTTConfig {
	if cfg.Broker == "" {
		cfg.Broker = DefaultMQTTBroker
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultMQTTClientID
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	return cfg
}

func (m *MQTT) Name() string { return "mqtt" }

// Publish sends the sample and waits for the broker acknowledgement or ctx.
func (m *MQTT) Publish(ctx context.Context, s telemetry.Sample) error {
	if m.client == nil {
		return errors.New("mqtt client not connected")
	}

	payload, err := encode(s)
	if err != nil {
		return err
	}

	topic := topicFor(m.topic, s.Device)
	token := m.client.Publish(topic, m.qos, m.retained, payload)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish %s: %w", topic, ctx.Err())
	}
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.client != nil {
		m.client.Disconnect(disconnectQuiesceMs)
	}
	return nil
}
