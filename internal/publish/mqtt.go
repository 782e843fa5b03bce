// Package publish sends weather reports to Home Assistant over MQTT.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/models"
)

const (
	qos = 1

	PayloadOnline  = "online"
	PayloadOffline = "offline"

	DefaultTimeout = 10 * time.Second
)

type Topics struct {
	State        string
	Attributes   string
	Availability string
}

// TopicsFromPrefix returns the topic layout used by the discovery
// descriptor: {prefix}/state, {prefix}/attr, {prefix}/availability.
func TopicsFromPrefix(prefix string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	return Topics{
		State:        prefix + "/state",
		Attributes:   prefix + "/attr",
		Availability: prefix + "/availability",
	}
}

type BrokerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Broker is the part of the paho client the publisher uses.
type Broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Publisher struct {
	broker  Broker
	topics  Topics
	timeout time.Duration
	log     *zap.SugaredLogger
}

// Connect dials the broker with a fresh client id and waits for the
// connection to be acknowledged.
func Connect(ctx context.Context, cfg BrokerConfig, topics Topics, log *zap.SugaredLogger) (*Publisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID("jmaweather-" + uuid.NewString()).
		SetConnectTimeout(cfg.Timeout).
		SetAutoReconnect(false).
		SetCleanSession(true)
	if cfg.Username != "" || cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if err := wait(ctx, client.Connect(), cfg.Timeout); err != nil {
		return nil, errs.Wrap(errs.TransientFetch, "mqtt connect", err)
	}
	log.Infow("publish: connected", "broker", cfg.Host, "port", cfg.Port)
	return NewPublisher(client, topics, cfg.Timeout, log), nil
}

func NewPublisher(b Broker, topics Topics, timeout time.Duration, log *zap.SugaredLogger) *Publisher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Publisher{broker: b, topics: topics, timeout: timeout, log: log}
}

// Publish sends the condition, the attribute JSON and online availability,
// each retained at QoS 1, and waits for every acknowledgement.
func (p *Publisher) Publish(ctx context.Context, report *models.FusedWeatherReport) error {
	attrs, err := Encode(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	msgs := []struct {
		topic   string
		payload []byte
	}{
		{p.topics.State, []byte(report.Condition)},
		{p.topics.Attributes, attrs},
		{p.topics.Availability, []byte(PayloadOnline)},
	}
	for _, m := range msgs {
		if err := p.publish(ctx, m.topic, m.payload); err != nil {
			return err
		}
	}
	p.log.Infow("publish: report sent", "condition", report.Condition, "bytes", len(attrs))
	return nil
}

func (p *Publisher) publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return fmt.Errorf("publish: empty topic")
	}
	if err := wait(ctx, p.broker.Publish(topic, qos, true, payload), p.timeout); err != nil {
		return errs.Wrap(errs.TransientFetch, "mqtt publish "+topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.broker.Disconnect(250)
}

// Encode renders v as JSON with non-ASCII text and HTML characters left
// as they are.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func wait(ctx context.Context, tok mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("no acknowledgement within %s", timeout)
	}
}
