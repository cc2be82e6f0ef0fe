// Package mqttpub publishes JSON messages to an MQTT broker.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 10 * time.Second
	qosAtLeastOnce = 1
	quiesceMillis  = 250
)

var log = logrus.WithField("package", "mqttpub")

type Config struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string // random when empty
	Username string
	Password string
	Retained bool
	Timeout  time.Duration
}

// client is the part of mqtt.Client we use.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	client   client
	retained bool
	timeout  time.Duration
}

// Dial connects to the broker. Reconnects are disabled: a publisher lives for
// the duration of one command.
func Dial(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqttpub: broker is required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "w1temp-" + uuid.NewString()[:8]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(cfg.Timeout)

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, errors.Errorf("mqttpub: connecting to %s timed out after %s", cfg.Broker, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqttpub: connect to %s", cfg.Broker)
	}
	log.Debugf("connected to %s as %s", cfg.Broker, cfg.ClientID)

	return newPublisher(c, cfg.Retained, cfg.Timeout), nil
}

func newPublisher(c client, retained bool, timeout time.Duration) *Publisher {
	return &Publisher{client: c, retained: retained, timeout: timeout}
}

// Publish marshals v as JSON and waits for the broker to acknowledge it.
func (p *Publisher) Publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "mqttpub: marshal payload")
	}
	token := p.client.Publish(topic, qosAtLeastOnce, p.retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return errors.Errorf("mqttpub: publishing to %s timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "mqttpub: publish to %s", topic)
	}
	return nil
}

func (p *Publisher) Close() {
	p.client.Disconnect(quiesceMillis)
}

// Topic joins a prefix and a device id, e.g. "home/w1temp" + "28-0001".
func Topic(prefix string, deviceID string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return deviceID
	}
	return fmt.Sprintf("%s/%s", prefix, deviceID)
}
