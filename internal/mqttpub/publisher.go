// Package mqttpub publishes fix snapshots to an MQTT broker as retained JSON
// messages.
package mqttpub

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 2 * time.Second

type Config struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// client is the subset of mqtt.Client the publisher needs.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	c     client
	topic string
	qos   byte
}

// New connects to the broker and returns a publisher bound to cfg.Topic.
func New(cfg Config) (*Publisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("mqtt topic is required")
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("mqtt qos must be 0..2, got %d", cfg.QoS)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Printf("mqtt connection lost broker=%s: %v", cfg.Broker, err)
		})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("mqtt connected broker=%s topic=%s", cfg.Broker, cfg.Topic)
	return newPublisher(c, cfg.Topic, cfg.QoS), nil
}

func newPublisher(c client, topic string, qos byte) *Publisher {
	return &Publisher{c: c, topic: topic, qos: qos}
}

func (p *Publisher) Topic() string { return p.topic }

// Publish marshals v to JSON and publishes it retained, so late subscribers
// receive the last fix immediately.
func (p *Publisher) Publish(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	token := p.c.Publish(p.topic, p.qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	if p == nil || p.c == nil {
		return
	}
	p.c.Disconnect(250)
}
