package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/chaz8081/sonicare-ble/internal/sonicare"
)

// MQTTOptions configures the MQTT sink.
type MQTTOptions struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	// PublishTimeout bounds how long a publish waits for the broker.
	PublishTimeout time.Duration
}

// publisher is the subset of mqtt.Client used by the sink.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes identities to {prefix}/{device_id}/device and snapshots to
// {prefix}/{device_id}/state as JSON.
type MQTT struct {
	client publisher
	opts   MQTTOptions
}

// Compile-time interface satisfaction check.
var _ Sink = (*MQTT)(nil)

// DialMQTT connects to the broker and returns a sink.
func DialMQTT(opts MQTTOptions) (*MQTT, error) {
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetKeepAlive(60 * time.Second)
	co.SetPingTimeout(10 * time.Second)
	co.SetOnConnectHandler(func(mqtt.Client) {
		slog.Info("[mqtt] connected", "broker", opts.Broker)
	})
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("[mqtt] connection lost", "error", err)
	})

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", opts.Broker, token.Error())
	}
	return newMQTT(client, opts), nil
}

func newMQTT(client publisher, opts MQTTOptions) *MQTT {
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &MQTT{client: client, opts: opts}
}

// Topic returns the topic for a device and leaf, e.g. "sonicare/aabbccddeeff/state".
func (m *MQTT) Topic(address, leaf string) string {
	return m.opts.TopicPrefix + "/" + DeviceID(address) + "/" + leaf
}

func (m *MQTT) PublishIdentity(id sonicare.Identity) error {
	payload, err := json.Marshal(newIdentityPayload(id))
	if err != nil {
		return fmt.Errorf("mqtt: marshal identity: %w", err)
	}
	// Announcements are always retained so late subscribers see the device.
	return m.publish(m.Topic(id.Address, "device"), true, payload)
}

func (m *MQTT) PublishSnapshot(id sonicare.Identity, snap sonicare.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("mqtt: marshal snapshot: %w", err)
	}
	return m.publish(m.Topic(id.Address, "state"), m.opts.Retain, payload)
}

func (m *MQTT) publish(topic string, retain bool, payload []byte) error {
	token := m.client.Publish(topic, m.opts.QoS, retain, payload)
	if !token.WaitTimeout(m.opts.PublishTimeout) {
		return fmt.Errorf("mqtt: publish to %s: timed out after %s", topic, m.opts.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish to %s: %w", topic, err)
	}
	slog.Debug("[mqtt] published", "topic", topic, "bytes", len(payload))
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
