package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jgoulah/velocount/internal/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 10 * time.Second
)

// MQTT publishes aggregates as retained JSON messages, one topic per counter
type MQTT struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTT connects to the configured broker. It gives up after the connect
// timeout or when ctx is done.
func NewMQTT(ctx context.Context, cfg config.MQTTConfig) (*MQTT, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("MQTT publishing is not enabled in config")
	}
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address is required when enabled")
	}

	// Configure MQTT client options
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID("velocount")
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	// Create and connect client
	client := mqtt.NewClient(opts)
	token := client.Connect()

	timer := time.NewTimer(connectTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: timed out after %s", cfg.Broker, connectTimeout)
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker: %w", err)
	}

	return newMQTTWithClient(client, cfg.GetTopicPrefix()), nil
}

func newMQTTWithClient(client mqtt.Client, topicPrefix string) *MQTT {
	return &MQTT{client: client, topicPrefix: topicPrefix}
}

// Name returns the sink name used for published tracking
func (p *MQTT) Name() string {
	return "mqtt"
}

// Topic returns the topic a counter's aggregates are published to
func (p *MQTT) Topic(counter string) string {
	return fmt.Sprintf("%s/%s/monthly", p.topicPrefix, Slug(counter))
}

// Publish sends each record and waits for the broker to acknowledge it
func (p *MQTT) Publish(ctx context.Context, records []Record) error {
	for _, r := range records {
		// Stop early if the caller gave up
		if err := ctx.Err(); err != nil {
			return err
		}

		body, err := json.Marshal(NewPayload(r))
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}

		// Publish retained so new subscribers see the latest month
		token := p.client.Publish(p.Topic(r.Aggregate.CounterName), 1, true, body)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publishing %s: timed out", r.Aggregate.CounterName)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publishing %s: %w", r.Aggregate.CounterName, err)
		}
	}
	return nil
}

// Close disconnects from the MQTT broker
func (p *MQTT) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
